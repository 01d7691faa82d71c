package chat

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/andy6609/rchan/internal/frame"
	"github.com/andy6609/rchan/internal/history"
	"github.com/andy6609/rchan/internal/protocol"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func testConfig() Config {
	return Config{
		Name:           "Rchan",
		PublicIP:       "127.0.0.1",
		Port:           8080,
		ReadBufferSize: 64,
		MaxRemainder:   4096,
		OutboundQueue:  64,
	}
}

func fileStore(t *testing.T) history.Store {
	t.Helper()
	s, err := history.OpenFile(filepath.Join(t.TempDir(), "chat_history.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// startServer runs a relay on a loopback port until the test ends.
func startServer(t *testing.T, cfg Config, store history.Store, opts ...Option) *Server {
	t.Helper()
	if store == nil {
		store = fileStore(t)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := NewServer("127.0.0.1:0", cfg, store, nil, opts...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, srv.Shutdown(ctx))
		require.NoError(t, <-served)
	})

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
	return srv
}

type peer struct {
	t     *testing.T
	conn  net.Conn
	dec   *frame.Decoder
	queue []protocol.Message
}

// connect dials srv and consumes the directory sent on entry, which also
// guarantees the session is registered.
func connect(t *testing.T, srv *Server) *peer {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &peer{t: t, conn: conn, dec: frame.NewDecoder(0)}
	first := p.next()
	require.Equal(t, protocol.TypeAvailableServers, first.Type)
	return p
}

func (p *peer) send(raw string) {
	p.t.Helper()
	_, err := p.conn.Write([]byte(raw))
	require.NoError(p.t, err)
}

func (p *peer) sendMsg(m protocol.Message) {
	p.t.Helper()
	b, err := protocol.Encode(m)
	require.NoError(p.t, err)
	p.send(string(b))
}

func (p *peer) fill(timeout time.Duration) error {
	buf := make([]byte, 512)
	_ = p.conn.SetReadDeadline(time.Now().Add(timeout))
	n, err := p.conn.Read(buf)
	if n > 0 {
		msgs, _, _ := p.dec.Feed(buf[:n])
		p.queue = append(p.queue, msgs...)
	}
	return err
}

func (p *peer) next() protocol.Message {
	p.t.Helper()
	for len(p.queue) == 0 {
		require.NoError(p.t, p.fill(2*time.Second))
	}
	m := p.queue[0]
	p.queue = p.queue[1:]
	return m
}

func (p *peer) nextOfType(typ string) protocol.Message {
	p.t.Helper()
	for {
		if m := p.next(); m.Type == typ {
			return m
		}
	}
}

// expectSilence fails if any message arrives within d.
func (p *peer) expectSilence(d time.Duration) {
	p.t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) && len(p.queue) == 0 {
		err := p.fill(time.Until(deadline))
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			break
		}
		require.NoError(p.t, err)
	}
	require.Empty(p.t, p.queue)
}

// expectClosed drains until the relay closes the connection.
func (p *peer) expectClosed() {
	p.t.Helper()
	for {
		err := p.fill(2 * time.Second)
		if err == nil {
			continue
		}
		var ne net.Error
		require.False(p.t, errors.As(err, &ne) && ne.Timeout(), "connection still open")
		return
	}
}
