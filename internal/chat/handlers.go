package chat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/andy6609/rchan/internal/protocol"
	"github.com/andy6609/rchan/internal/registry"
)

// TimeLayout stamps chat lines.
const TimeLayout = "2006-01-02 15:04:05"

// FormatChatLine renders the line stored in history and broadcast to clients.
func FormatChatLine(at, username, text string) string {
	return fmt.Sprintf("[%s] %s> %s", at, username, text)
}

// rejectInvalid answers a recognized request that is missing fields. The
// session stays open.
func (s *Server) rejectInvalid(sess *Session, typ string, err error, log *slog.Logger) {
	ProtocolViolations.WithLabelValues("invalid_request").Inc()
	log.Warn("invalid request", "type", typ, "error", err)
	s.reply(sess, protocol.Error(typ, err.Error()))
}

func (s *Server) rejectDirectoryChange(sess *Session, typ, name string, err error, log *slog.Logger) {
	if errors.Is(err, ErrHashFailed) {
		log.Error("hash credentials", "server", name, "error", err)
	} else {
		log.Warn("directory change rejected", "type", typ, "server", name, "error", err)
	}
	s.reply(sess, protocol.Error(typ, directoryFailure(name, err)))
}

// directoryFailure is the text sent back when add_server or remove_server fails.
func directoryFailure(name string, err error) string {
	switch {
	case errors.Is(err, ErrHashFailed):
		return fmt.Sprintf("Failed to secure credentials for server %s", name)
	case errors.Is(err, registry.ErrServerExists):
		return fmt.Sprintf("Server %s already exists, please try a different server name", name)
	case errors.Is(err, registry.ErrServerNotFound):
		return fmt.Sprintf("Server %s does not exist", name)
	case errors.Is(err, registry.ErrWrongPassword):
		return fmt.Sprintf("Incorrect root password for server %s", name)
	default:
		return fmt.Sprintf("Failed to update server %s", name)
	}
}

func (s *Server) handleChatHistory(sess *Session, log *slog.Logger) {
	text, err := s.history.ReadAll()
	if err != nil {
		log.Error("read chat history", "error", err)
		s.reply(sess, protocol.Error(protocol.TypeChatHistory, "Failed to load chat history"))
		return
	}
	s.reply(sess, protocol.Success(protocol.TypeChatHistory, text))
}

func (s *Server) handleUsername(sess *Session, m protocol.Message, log *slog.Logger) {
	req, err := m.UsernameRequest()
	if err != nil {
		s.rejectInvalid(sess, protocol.TypeUsername, err, log)
		return
	}

	if !s.usernames.TryClaim(req.Username) {
		s.reply(sess, protocol.Error(protocol.TypeUsername,
			fmt.Sprintf("Username %s already taken, please try a different user name", req.Username)))
		return
	}
	sess.claimed = append(sess.claimed, req.Username)

	log.Info("user registered", "username", req.Username)
	s.reply(sess, protocol.Success(protocol.TypeUsername,
		fmt.Sprintf("Username %s successfully set", req.Username)))
}

func (s *Server) handleAddServer(sess *Session, m protocol.Message, log *slog.Logger) {
	req, err := m.AddServerRequest()
	if err != nil {
		s.rejectInvalid(sess, protocol.TypeAddServer, err, log)
		return
	}

	rootDigest, err := s.digest(req.RootPassword)
	if err == nil {
		var serverDigest string
		serverDigest, err = s.digest(req.ServerPassword)
		if err == nil {
			err = s.servers.Add(registry.ServerEntry{
				Name:         req.ServerName,
				Address:      req.ServerIP,
				Port:         req.ServerPort,
				RootDigest:   rootDigest,
				ServerDigest: serverDigest,
			})
		}
	}

	if err != nil {
		s.rejectDirectoryChange(sess, protocol.TypeAddServer, req.ServerName, err, log)
		return
	}

	resp := protocol.Success(protocol.TypeAddServer, fmt.Sprintf("Server %s successfully added", req.ServerName))
	resp.ServerPort = req.ServerPort
	s.reply(sess, resp)

	log.Info("server joined", "server", req.ServerName)
	s.broadcastDirectory()
}

func (s *Server) handleRemoveServer(sess *Session, m protocol.Message, log *slog.Logger) {
	req, err := m.RemoveServerRequest()
	if err != nil {
		s.rejectInvalid(sess, protocol.TypeRemoveServer, err, log)
		return
	}

	rootDigest, err := s.digest(req.RootPassword)
	if err == nil {
		err = s.servers.Remove(req.ServerName, rootDigest)
	}

	if err != nil {
		s.rejectDirectoryChange(sess, protocol.TypeRemoveServer, req.ServerName, err, log)
		return
	}

	s.reply(sess, protocol.Success(protocol.TypeRemoveServer,
		fmt.Sprintf("Server %s successfully removed", req.ServerName)))

	log.Info("server left", "server", req.ServerName)
	s.broadcastDirectory()
}

func (s *Server) handleChat(sess *Session, m protocol.Message, log *slog.Logger) {
	req, err := m.ChatRequest()
	if err != nil {
		s.rejectInvalid(sess, protocol.TypeChat, err, log)
		return
	}

	line := FormatChatLine(s.now().Format(TimeLayout), req.Username, req.Text)
	if err := s.history.AppendLine(line); err != nil {
		// History is best effort; the chat still goes out.
		log.Warn("append chat history", "error", err)
	}
	s.broadcast(protocol.ChatLine(line))
}
