package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/andy6609/rchan/internal/history"
	"github.com/andy6609/rchan/internal/registry"
)

var ErrServerClosed = errors.New("chat: server closed")

// Config holds the relay's tunables. The Name/PublicIP/Port triple is the
// fixed directory entry advertising this relay.
type Config struct {
	Name             string
	PublicIP         string
	Port             int
	ReadBufferSize   int
	MaxRemainder     int
	OutboundQueue    int
	DrainTimeout     time.Duration
	ReleaseUsernames bool
}

type Option func(*Server)

// WithHashFunc replaces the credential hash, mainly for tests.
func WithHashFunc(h HashFunc) Option {
	return func(s *Server) { s.hash = h }
}

// WithClock sets the time source used to stamp chat lines.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

type Server struct {
	addr    string
	cfg     Config
	logger  *slog.Logger
	history history.Store
	hash    HashFunc
	now     func() time.Time

	sessions  *registry.Sessions[*Session]
	usernames *registry.Usernames
	servers   *registry.Servers
	dirMu     sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

func NewServer(addr string, cfg Config, store history.Store, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = 64
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Second
	}

	var fixed []registry.ServerEntry
	if cfg.Name != "" {
		fixed = append(fixed, registry.ServerEntry{Name: cfg.Name, Address: cfg.PublicIP, Port: cfg.Port})
	}

	s := &Server{
		addr:      addr,
		cfg:       cfg,
		logger:    logger,
		history:   store,
		hash:      SHA256Hex,
		now:       time.Now,
		sessions:  registry.NewSessions[*Session](),
		usernames: registry.NewUsernames(),
		servers:   registry.NewServers(fixed...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on the configured address and serves until
// Shutdown or a fatal accept error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and runs one dispatcher per connection.
// It returns nil after Shutdown; any other accept failure is returned as is
// and is meant to be fatal.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("server started", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shuttingDown() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		sess := newSession(conn, s.cfg.OutboundQueue, s.logger)

		// Registration and closing are ordered by s.mu, so Shutdown's
		// snapshot sees every session it has to close.
		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		id := s.sessions.Register(sess)
		s.wg.Add(1)
		s.mu.Unlock()

		ConnectedClients.Inc()
		go func() {
			defer s.wg.Done()
			s.handleSession(id, sess)
		}()
	}
}

// Addr is the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, closes every live session and waits for their
// dispatchers to finish cleanup or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.sessions.ForEach(func(sess *Session) {
		sess.close()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedSessions is the number of registered sessions.
func (s *Server) ConnectedSessions() int {
	return s.sessions.Len()
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closing
}
