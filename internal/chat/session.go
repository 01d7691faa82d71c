package chat

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/andy6609/rchan/internal/frame"
	"github.com/andy6609/rchan/internal/protocol"
	"github.com/google/uuid"
)

// handleSession is the per-connection dispatcher. It returns when the peer
// disconnects, a read fails or the peer overflows the frame buffer.
func (s *Server) handleSession(id uuid.UUID, sess *Session) {
	log := s.logger.With("session", id.String(), "remote", sess.remote)
	defer s.closeSession(id, sess, log)

	startOutboundWriter(sess)
	log.Info("client connected")

	s.sendDirectory(sess)

	dec := frame.NewDecoder(s.cfg.MaxRemainder)
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := sess.conn.Read(buf)
		if n > 0 {
			msgs, dropped, ferr := dec.Feed(buf[:n])
			if dropped > 0 {
				FramesDropped.Add(float64(dropped))
				log.Debug("dropped malformed frames", "count", dropped)
			}
			for _, m := range msgs {
				s.dispatch(sess, m, log)
			}
			if ferr != nil {
				ProtocolViolations.WithLabelValues("remainder_overflow").Inc()
				log.Warn("closing session", "error", ferr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("read failed", "error", err)
			}
			return
		}
	}
}

// closeSession runs exactly once per dispatcher. Replies already queued are
// flushed before the connection is closed; an evicted or shut down session
// has closed already and skips the flush.
func (s *Server) closeSession(id uuid.UUID, sess *Session, log *slog.Logger) {
	if s.sessions.Unregister(id) {
		ConnectedClients.Dec()
	}
	sess.drain(s.cfg.DrainTimeout)
	<-sess.writerDone
	sess.closeWrite(s.cfg.DrainTimeout)
	sess.close()

	if s.cfg.ReleaseUsernames {
		for _, name := range sess.claimed {
			s.usernames.Release(name)
		}
	}
	log.Info("client disconnected")
}

func (s *Server) dispatch(sess *Session, m protocol.Message, log *slog.Logger) {
	start := time.Now()

	switch m.Type {
	case protocol.TypeGetServers:
		s.sendDirectory(sess)
	case protocol.TypeChatHistory:
		s.handleChatHistory(sess, log)
	case protocol.TypeUsername:
		s.handleUsername(sess, m, log)
	case protocol.TypeAddServer:
		s.handleAddServer(sess, m, log)
	case protocol.TypeRemoveServer:
		s.handleRemoveServer(sess, m, log)
	case protocol.TypeChat:
		s.handleChat(sess, m, log)
	default:
		IgnoredMessages.Inc()
		log.Debug("ignoring message", "type", m.Type)
		return
	}

	MessagesTotal.WithLabelValues(m.Type).Inc()
	EventProcessingDuration.WithLabelValues(m.Type).Observe(time.Since(start).Seconds())
}

func (s *Server) reply(sess *Session, m protocol.Message) {
	payload, err := protocol.Encode(m)
	if err != nil {
		s.logger.Error("encode reply", "type", m.Type, "error", err)
		return
	}
	sess.Send(payload)
}

// broadcast encodes m once and queues it on every registered session.
func (s *Server) broadcast(m protocol.Message) {
	payload, err := protocol.Encode(m)
	if err != nil {
		s.logger.Error("encode broadcast", "type", m.Type, "error", err)
		return
	}
	s.sessions.ForEach(func(sess *Session) {
		sess.Send(payload)
	})
}

// Directory snapshots are taken and queued under dirMu, so a later frame on
// any session never carries an older directory than an earlier one.
func (s *Server) sendDirectory(sess *Session) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	s.reply(sess, protocol.Directory(s.servers.Directory()))
}

func (s *Server) broadcastDirectory() {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	s.broadcast(protocol.Directory(s.servers.Directory()))
}
