// Package client implements the user side of a relay connection: one read
// loop feeding a UI, plus user actions that write through a single lock.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"sync"
	"time"

	"github.com/andy6609/rchan/internal/protocol"
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrUnknownServer = errors.New("unknown server")
)

type Config struct {
	ReadBufferSize int
	MaxRemainder   int
	DialTimeout    time.Duration
}

type Dialer func(ctx context.Context, addr string) (net.Conn, error)

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// HostRequest describes a sub-server to publish in the directory.
type HostRequest struct {
	Name           string
	IP             string
	Port           int
	RootPassword   string
	ServerPassword string
}

type Client struct {
	cfg    Config
	ui     UI
	logger *slog.Logger
	dial   Dialer

	// mu is the write lock. It also guards the connection swap in Enter,
	// so no frame is ever written to a half-replaced connection.
	mu       sync.Mutex
	conn     net.Conn
	addr     string
	stop     chan struct{}
	readDone chan struct{}

	stateMu  sync.RWMutex
	servers  map[string]string
	username string
}

func New(cfg Config, ui UI, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	c := &Client{
		cfg:     cfg,
		ui:      ui,
		logger:  logger,
		servers: map[string]string{},
	}
	c.dial = c.defaultDial
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Connect opens the first connection. Any previous connection is torn down.
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reconnectLocked(ctx, addr)
}

// Enter moves to the named server from the cached directory: the current
// read loop is stopped and waited for, the old connection released, a new
// one opened and its chat history requested.
func (c *Client) Enter(ctx context.Context, name string) error {
	c.stateMu.RLock()
	addr, ok := c.servers[name]
	c.stateMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reconnectLocked(ctx, addr); err != nil {
		return err
	}
	c.logger.Info("entered server", "server", name, "addr", addr)
	return c.writeLocked(protocol.Message{Type: protocol.TypeChatHistory})
}

func (c *Client) reconnectLocked(ctx context.Context, addr string) error {
	c.teardownLocked()

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	c.conn = conn
	c.addr = addr
	c.stop = make(chan struct{})
	c.readDone = make(chan struct{})
	go c.readLoop(conn, c.stop, c.readDone)
	return nil
}

func (c *Client) teardownLocked() {
	if c.conn == nil {
		return
	}
	close(c.stop)
	// A past deadline unblocks the pending Read without closing the socket.
	_ = c.conn.SetReadDeadline(time.Now())
	<-c.readDone
	_ = c.conn.Close()
	c.conn = nil
	c.addr = ""
}

// Close stops the read loop and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	return nil
}

// Addr is the relay currently connected to, or "".
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addr
}

func (c *Client) SetUsername(name string) error {
	c.stateMu.Lock()
	c.username = name
	c.stateMu.Unlock()

	return c.write(protocol.Message{Type: protocol.TypeUsername, Username: name})
}

func (c *Client) Username() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.username
}

// Send posts one chat line under the current username.
func (c *Client) Send(text string) error {
	return c.write(protocol.Message{Type: protocol.TypeChat, Username: c.Username(), Message: text})
}

func (c *Client) Host(req HostRequest) error {
	return c.write(protocol.Message{
		Type:           protocol.TypeAddServer,
		ServerName:     req.Name,
		ServerIP:       req.IP,
		ServerPort:     req.Port,
		RootPassword:   req.RootPassword,
		ServerPassword: req.ServerPassword,
	})
}

func (c *Client) Unhost(name, rootPassword string) error {
	return c.write(protocol.Message{Type: protocol.TypeRemoveServer, ServerName: name, RootPassword: rootPassword})
}

func (c *Client) RequestHistory() error {
	return c.write(protocol.Message{Type: protocol.TypeChatHistory})
}

func (c *Client) RequestDirectory() error {
	return c.write(protocol.Message{Type: protocol.TypeGetServers})
}

// Servers returns the last directory received.
func (c *Client) Servers() map[string]string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return maps.Clone(c.servers)
}

func (c *Client) write(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writeLocked(m)
}

func (c *Client) writeLocked(m protocol.Message) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", m.Type, err)
	}
	return nil
}
