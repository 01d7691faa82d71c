package chat

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Session is one accepted connection. Its read side and claimed names
// belong to the dispatcher goroutine; Send may be called from any goroutine.
type Session struct {
	conn   net.Conn
	remote string
	out    chan []byte
	logger *slog.Logger

	done       chan struct{}
	draining   chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	drainOnce  sync.Once

	claimed []string
}

func newSession(conn net.Conn, queue int, logger *slog.Logger) *Session {
	if queue <= 0 {
		queue = 64
	}
	return &Session{
		conn:       conn,
		remote:     conn.RemoteAddr().String(),
		out:        make(chan []byte, queue),
		logger:     logger,
		done:       make(chan struct{}),
		draining:   make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// Send queues an encoded frame for the writer goroutine. It never blocks:
// a session whose queue is full is evicted rather than stalling the caller.
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	case <-s.draining:
		return false
	default:
	}

	select {
	case s.out <- payload:
		return true
	case <-s.done:
		return false
	case <-s.draining:
		return false
	default:
		SlowConsumerEvictions.Inc()
		s.logger.Warn("outbound queue full, evicting session", "remote", s.remote)
		s.close()
		return false
	}
}

// close is idempotent. Closing the connection also unblocks the read loop.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// drain stops accepting frames and tells the writer to flush what is already
// queued and exit. The write deadline bounds how long a stuck peer can hold it.
func (s *Session) drain(timeout time.Duration) {
	s.drainOnce.Do(func() {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
		close(s.draining)
	})
}

// closeWrite half-closes a live connection and discards whatever the peer
// still has in flight, so the final close does not reset the connection
// before the peer has read its replies.
func (s *Session) closeWrite(timeout time.Duration) {
	select {
	case <-s.done:
		return
	default:
	}
	cw, ok := s.conn.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	_, _ = io.Copy(io.Discard, s.conn)
}
