package chat

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/andy6609/tcp-chat-server/internal/config"
	"github.com/andy6609/tcp-chat-server/internal/store"
	"github.com/andy6609/tcp-chat-server/internal/wire"
)

type testClient struct {
	conn net.Conn
	enc  *wire.Encoder
	dec  *wire.Decoder
}

func dial(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{conn: conn, enc: wire.NewEncoder(conn), dec: wire.NewDecoder(conn)}
	require.Equal(t, wire.Notice(StartupNotice), c.next(t))
	return c
}

func (c *testClient) send(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, c.enc.Encode(wire.Message{Text: text}))
}

func (c *testClient) next(t *testing.T) wire.Message {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	m, err := c.dec.Decode()
	require.NoError(t, err)
	return m
}

type testServer struct {
	srv    *Server
	cancel context.CancelFunc
	done   chan error
}

func startServer(t *testing.T, snapshot string) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.SnapshotPath = snapshot
	cfg.ReplayDelay = time.Millisecond

	srv := NewServer(cfg, nil)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{srv: srv, cancel: cancel, done: make(chan error, 1)}
	go func() { ts.done <- srv.Serve(ctx) }()
	t.Cleanup(func() { ts.stop(t) })
	return ts
}

func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	ts.cancel()
	select {
	case err := <-ts.done:
		require.NoError(t, err)
		ts.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Scenario(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "backup.gob"))

	a := dial(t, ts.srv.Addr())
	a.send(t, "/register alice secret")
	require.Equal(t, wire.Notice(NoticeRegistered), a.next(t))

	b := dial(t, ts.srv.Addr())
	b.send(t, "/login alice wrong")
	require.Equal(t, wire.Notice("Login or password entered incorrectly"), b.next(t))

	b.send(t, "/login alice secret")
	require.Equal(t, wire.Notice(NoticeLoggedIn), b.next(t))

	a.send(t, "hello")
	got := b.next(t)
	require.Equal(t, "alice", got.Sender)
	require.Equal(t, "hello", got.Text)

	// A's next message must be the PM, not an echo of its own broadcast.
	c := dial(t, ts.srv.Addr())
	c.send(t, "/register carol pw")
	require.Equal(t, wire.Notice(NoticeRegistered), c.next(t))
	require.Equal(t, "hello", c.next(t).Text, "history replay")
	c.send(t, "/pm alice ping")
	require.Equal(t, wire.Message{Sender: "PM carol", To: "alice", Text: "ping"}, a.next(t))
	require.Equal(t, wire.Message{Sender: "PM carol", To: "alice", Text: "ping"}, b.next(t))

	require.NoError(t, a.conn.Close())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(LoggedInSessions) == 2
	}, 2*time.Second, 10*time.Millisecond)

	c.send(t, "after a left")
	require.Equal(t, "after a left", b.next(t).Text)

	ts.stop(t)
	require.Len(t, ts.srv.router.registry.SessionsFor("alice"), 1)
}

func TestServer_AnonymousIsRestricted(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "backup.gob"))

	bob := dial(t, ts.srv.Addr())
	bob.send(t, "/register bob pw")
	require.Equal(t, wire.Notice(NoticeRegistered), bob.next(t))

	anon := dial(t, ts.srv.Addr())
	anon.send(t, "hello everyone")
	require.Equal(t, wire.Notice("Command not found"), anon.next(t))
	anon.send(t, "/pm bob hi")
	require.Equal(t, wire.Notice("Command not found"), anon.next(t))
	anon.send(t, "/register")
	require.Equal(t, wire.Notice("Command not found"), anon.next(t))

	// Nothing from the anonymous attempts reached bob: eve's PM is his first message.
	anon.send(t, "/register eve pw")
	require.Equal(t, wire.Notice(NoticeRegistered), anon.next(t))
	anon.send(t, "/pm bob now it works")
	require.Equal(t, wire.Message{Sender: "PM eve", To: "bob", Text: "now it works"}, bob.next(t))
}

func TestServer_SnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gob")

	first := startServer(t, path)
	a := dial(t, first.srv.Addr())
	a.send(t, "/register alice secret")
	require.Equal(t, wire.Notice(NoticeRegistered), a.next(t))
	a.send(t, "/pm alice self")
	require.Equal(t, wire.Notice("Can not send message to yourself"), a.next(t))
	a.send(t, "one")
	a.send(t, "two")
	a.send(t, "/pm ghost hi")
	require.Equal(t, wire.Notice("User with that nickname not exists"), a.next(t))
	first.stop(t)

	snap, ok, err := store.NewGateway(path, nil).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []store.Account{{Nickname: "alice", Password: "secret"}}, snap.Accounts)
	require.Len(t, snap.History, 2)

	second := startServer(t, path)
	b := dial(t, second.srv.Addr())
	b.send(t, "/register alice other")
	require.Equal(t, wire.Notice("That nickname already registered"), b.next(t))
	b.send(t, "/login alice secret")
	require.Equal(t, wire.Notice(NoticeLoggedIn), b.next(t))
	require.Equal(t, wire.Message{Sender: "alice", To: wire.All, Text: "one"}, b.next(t))
	require.Equal(t, wire.Message{Sender: "alice", To: wire.All, Text: "two"}, b.next(t))
}

func TestServer_DecodeFailureEndsSession(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "backup.gob"))

	c := dial(t, ts.srv.Addr())
	_, err := c.conn.Write([]byte("}}}garbage"))
	require.NoError(t, err)

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = c.dec.Decode()
	require.Error(t, err, "server closes the connection")
}

func TestServer_ListenFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Addr = ln.Addr().String()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "backup.gob")
	require.Error(t, NewServer(cfg, nil).Listen())
}
