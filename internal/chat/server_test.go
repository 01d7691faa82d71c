package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/andy6609/rchan/internal/frame"
	"github.com/andy6609/rchan/internal/mocks"
	"github.com/andy6609/rchan/internal/protocol"
	"github.com/andy6609/rchan/internal/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestServer_SendsDirectoryOnConnect(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	req.NoError(err)
	defer conn.Close()
	p := &peer{t: t, conn: conn, dec: frame.NewDecoder(0)}

	got := p.next()

	req.Equal(protocol.Directory(map[string]string{"Rchan": "127.0.0.1:8080"}), got)
}

func TestServer_UsernameClaimedOnce(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	alice := connect(t, srv)
	other := connect(t, srv)

	alice.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "alice"})
	got := alice.next()
	req.Equal(protocol.Success(protocol.TypeUsername, "Username alice successfully set"), got)

	other.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "alice"})
	got = other.next()
	req.True(got.IsError())
	req.Equal("Username alice already taken, please try a different user name", got.Message)
}

func TestServer_ChatFanOut(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	a, b, c := connect(t, srv), connect(t, srv), connect(t, srv)

	// When A sends one chat
	a.sendMsg(protocol.Message{Type: protocol.TypeChat, Username: "amy", Message: "hello"})

	// Then every session, A included, receives it exactly once
	want := protocol.ChatLine("[2024-01-02 03:04:05] amy> hello")
	for _, p := range []*peer{a, b, c} {
		req.Equal(want, p.next())
	}
	for _, p := range []*peer{a, b, c} {
		p.expectSilence(100 * time.Millisecond)
	}
}

func TestServer_ChatIsRecorded(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().AppendLine("[2024-01-02 03:04:05] bob> hi").Return(nil)
	store.EXPECT().ReadAll().Return("[2024-01-02 03:04:05] bob> hi\n", nil)

	srv := startServer(t, testConfig(), store)
	p := connect(t, srv)

	p.sendMsg(protocol.Message{Type: protocol.TypeChat, Username: "bob", Message: "hi"})
	req.Equal(protocol.TypeChat, p.next().Type)

	p.sendMsg(protocol.Message{Type: protocol.TypeChatHistory})
	got := p.next()
	req.Equal(protocol.Success(protocol.TypeChatHistory, "[2024-01-02 03:04:05] bob> hi\n"), got)
}

func TestServer_HistoryFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().ReadAll().Return("", errors.New("disk gone"))

	srv := startServer(t, testConfig(), store)
	p := connect(t, srv)

	p.sendMsg(protocol.Message{Type: protocol.TypeChatHistory})

	require.Equal(t, protocol.Error(protocol.TypeChatHistory, "Failed to load chat history"), p.next())
}

func TestServer_AddAndRemoveServer(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	host, watcher := connect(t, srv), connect(t, srv)

	// When host registers a sub-server
	host.sendMsg(protocol.Message{
		Type: protocol.TypeAddServer, ServerName: "den", ServerIP: "10.0.0.7", ServerPort: 9000,
		RootPassword: "root", ServerPassword: "pw",
	})

	// Then host gets a success echoing the port
	got := host.next()
	req.Equal(protocol.StatusSuccess, got.Status)
	req.Equal(protocol.TypeAddServer, got.Type)
	req.Equal(9000, got.ServerPort)

	// And everyone gets the new directory
	want := map[string]string{"Rchan": "127.0.0.1:8080", "den": "10.0.0.7:9000"}
	req.Equal(want, host.nextOfType(protocol.TypeAvailableServers).Servers)
	req.Equal(want, watcher.next().Servers)

	// When the wrong root password is used
	host.sendMsg(protocol.Message{Type: protocol.TypeRemoveServer, ServerName: "den", RootPassword: "nope"})

	// Then only the sender hears about it
	req.Equal(protocol.Error(protocol.TypeRemoveServer, "Incorrect root password for server den"), host.next())
	watcher.expectSilence(100 * time.Millisecond)

	// When the right one is used
	host.sendMsg(protocol.Message{Type: protocol.TypeRemoveServer, ServerName: "den", RootPassword: "root"})

	req.Equal(protocol.Success(protocol.TypeRemoveServer, "Server den successfully removed"), host.next())
	want = map[string]string{"Rchan": "127.0.0.1:8080"}
	req.Equal(want, host.next().Servers)
	req.Equal(want, watcher.next().Servers)
}

func TestServer_AddServerDuplicate(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)

	p.sendMsg(protocol.Message{
		Type: protocol.TypeAddServer, ServerName: "Rchan", ServerIP: "10.0.0.7", ServerPort: 9000,
		RootPassword: "root", ServerPassword: "pw",
	})

	req.Equal(protocol.Error(protocol.TypeAddServer,
		"Server Rchan already exists, please try a different server name"), p.next())
	p.expectSilence(100 * time.Millisecond)
}

func TestServer_RemoveUnknownServer(t *testing.T) {
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)

	p.sendMsg(protocol.Message{Type: protocol.TypeRemoveServer, ServerName: "ghost", RootPassword: "x"})

	require.Equal(t, protocol.Error(protocol.TypeRemoveServer, "Server ghost does not exist"), p.next())
}

func TestServer_HashFailureIsAnError(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil, WithHashFunc(func(string) string { return "" }))
	p := connect(t, srv)

	p.sendMsg(protocol.Message{
		Type: protocol.TypeAddServer, ServerName: "den", ServerIP: "10.0.0.7", ServerPort: 9000,
		RootPassword: "root", ServerPassword: "pw",
	})

	req.Equal(protocol.Error(protocol.TypeAddServer, "Failed to secure credentials for server den"), p.next())

	p.sendMsg(protocol.Message{Type: protocol.TypeGetServers})
	req.Equal(map[string]string{"Rchan": "127.0.0.1:8080"}, p.next().Servers)
}

func TestServer_MissingFieldKeepsSessionOpen(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)
	before := testutil.ToFloat64(ProtocolViolations.WithLabelValues("invalid_request"))

	// Given an add_server without server_port
	p.send(`{"type":"add_server","server_name":"den","server_ip":"10.0.0.7","root_password":"r","server_password":"s"}`)

	// Then an error names the field
	got := p.next()
	req.Equal(protocol.TypeAddServer, got.Type)
	req.True(got.IsError())
	req.Equal("invalid add_server request: missing or invalid field server_port", got.Message)
	req.Equal(before+1, testutil.ToFloat64(ProtocolViolations.WithLabelValues("invalid_request")))

	// And the session still answers
	p.sendMsg(protocol.Message{Type: protocol.TypeGetServers})
	req.Equal(protocol.TypeAvailableServers, p.next().Type)
}

func TestServer_MalformedAndUnknownFramesAreSkipped(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)
	dropped := testutil.ToFloat64(FramesDropped)
	ignored := testutil.ToFloat64(IgnoredMessages)

	p.send(`{"type":}{"type":"dance"}{"status":"x"}{"type":"get_servers"}`)

	req.Equal(protocol.TypeAvailableServers, p.next().Type)
	req.Equal(dropped+1, testutil.ToFloat64(FramesDropped))
	req.Equal(ignored+2, testutil.ToFloat64(IgnoredMessages))
	p.expectSilence(100 * time.Millisecond)
}

func TestServer_ByteAtATime(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)

	frame := `{"type":"chat","username":"bob","message":"{not} a \"brace\""}`
	for i := 0; i < len(frame); i++ {
		p.send(frame[i : i+1])
	}

	req.Equal(protocol.ChatLine(`[2024-01-02 03:04:05] bob> {not} a "brace"`), p.next())
}

func TestServer_RemainderOverflowClosesSession(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.MaxRemainder = 32
	srv := startServer(t, cfg, nil)
	p := connect(t, srv)
	before := testutil.ToFloat64(ProtocolViolations.WithLabelValues("remainder_overflow"))

	// Given a complete request followed by an unterminated frame in one read
	p.send(`{"type":"get_servers"}{"type":"chat","message":"` + strings.Repeat("a", 64))

	// Then the session closes, but only after answering the complete request
	p.expectClosed()
	req.Len(p.queue, 1)
	req.Equal(protocol.TypeAvailableServers, p.queue[0].Type)
	req.Eventually(func() bool { return srv.ConnectedSessions() == 0 }, time.Second, 5*time.Millisecond)
	req.Equal(before+1, testutil.ToFloat64(ProtocolViolations.WithLabelValues("remainder_overflow")))
}

func TestServer_RepliesReachHalfClosedPeer(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)

	for i := 0; i < 20; i++ {
		p := connect(t, srv)

		// Given requests immediately followed by a half-close
		p.send(`{"type":"get_servers"}{"type":"chat_history"}`)
		req.NoError(p.conn.(*net.TCPConn).CloseWrite())

		// Then every reply arrives before the relay closes its side
		p.expectClosed()
		req.Len(p.queue, 2, "run %d", i)
		req.Equal(protocol.TypeAvailableServers, p.queue[0].Type)
		req.Equal(protocol.TypeChatHistory, p.queue[1].Type)
	}
	req.Eventually(func() bool { return srv.ConnectedSessions() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServer_MistypedFieldIsAnError(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)
	p := connect(t, srv)
	before := testutil.ToFloat64(FramesDropped)

	p.send(`{"type":"username","username":42}`)
	resp := p.next()

	req.Equal(protocol.TypeUsername, resp.Type)
	req.True(resp.IsError())
	req.Contains(resp.Message, "username")
	req.Equal(before, testutil.ToFloat64(FramesDropped))

	// And a mistyped port on add_server is rejected the same way
	p.send(`{"type":"add_server","server_name":"den","server_ip":"127.0.0.1","server_port":"9000","root_password":"r","server_password":"s"}`)
	resp = p.next()

	req.Equal(protocol.TypeAddServer, resp.Type)
	req.True(resp.IsError())
	req.Contains(resp.Message, "server_port")

	// And the session is still usable
	p.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "amy"})
	req.False(p.next().IsError())
}

func TestServer_UsernamesStayClaimedByDefault(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, testConfig(), nil)

	first := connect(t, srv)
	first.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "amy"})
	req.False(first.next().IsError())
	_ = first.conn.Close()
	req.Eventually(func() bool { return srv.ConnectedSessions() == 0 }, time.Second, 5*time.Millisecond)

	second := connect(t, srv)
	second.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "amy"})
	req.True(second.next().IsError())
}

func TestServer_ReleaseUsernamesOnDisconnect(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.ReleaseUsernames = true
	srv := startServer(t, cfg, nil)

	first := connect(t, srv)
	first.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "amy"})
	req.False(first.next().IsError())
	_ = first.conn.Close()
	req.Eventually(func() bool { return srv.ConnectedSessions() == 0 }, time.Second, 5*time.Millisecond)

	second := connect(t, srv)
	second.sendMsg(protocol.Message{Type: protocol.TypeUsername, Username: "amy"})
	req.False(second.next().IsError())
}

func TestServer_ShutdownWaitsForSessions(t *testing.T) {
	req := require.New(t)
	srv := NewServer("127.0.0.1:0", testConfig(), fileStore(t), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	req.Eventually(func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	a, b := connect(t, srv), connect(t, srv)
	req.Equal(2, srv.ConnectedSessions())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req.NoError(srv.Shutdown(ctx))
	req.NoError(<-served)

	req.Zero(srv.ConnectedSessions())
	a.expectClosed()
	b.expectClosed()
	req.ErrorIs(srv.Serve(ln), ErrServerClosed)
}

type brokenListener struct {
	net.Listener
}

func (brokenListener) Accept() (net.Conn, error) {
	return nil, errors.New("too many open files")
}

func TestServer_AcceptFailureIsFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	srv := NewServer("", testConfig(), fileStore(t), nil)

	err = srv.Serve(brokenListener{ln})

	require.ErrorContains(t, err, "too many open files")
}

func TestSHA256Hex(t *testing.T) {
	req := require.New(t)

	d := SHA256Hex("root")

	req.Len(d, 64)
	req.Equal("4813494d137e1631bba301d5acab6e7bb7aa74ce1185d456565ef51d737677b2", d)
}

func TestDirectoryFailure(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrHashFailed, "Failed to secure credentials for server den"},
		{fmt.Errorf("add: %w", registry.ErrServerExists), "Server den already exists, please try a different server name"},
		{registry.ErrServerNotFound, "Server den does not exist"},
		{registry.ErrWrongPassword, "Incorrect root password for server den"},
		{errors.New("disk full"), "Failed to update server den"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, directoryFailure("den", tt.err))
	}
}
