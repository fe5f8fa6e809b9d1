package pusher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/backroom/internal/realtime"
)

func quoted(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// newFakeServer accepts websocket connections, completes the Pusher handshake
// and hands each connection to the test.
func newFakeServer(t *testing.T) (string, <-chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/app/key") || r.URL.Query().Get("protocol") != "7" {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(frame{
			Event: "pusher:connection_established",
			Data:  quoted(`{"socket_id":"123.456","activity_timeout":30}`),
		})
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func startClient(t *testing.T, hub *realtime.Hub, cfg Config) *Client {
	t.Helper()
	c, err := New(hub, cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestClient_SubscribesAndDispatches(t *testing.T) {
	url, conns := newFakeServer(t)
	hub := realtime.NewHub(nil)

	received := make(chan json.RawMessage, 1)
	hub.Channel("orders").Listen("OrderUpdated", func(p json.RawMessage) { received <- p })

	startClient(t, hub, Config{URL: url, AppKey: "key", BaseBackoff: 10 * time.Millisecond})
	conn := receive(t, conns)

	f := readFrame(t, conn)
	assert.Equal(t, "pusher:subscribe", f.Event)
	assert.JSONEq(t, `{"channel":"orders"}`, string(f.Data))

	require.NoError(t, conn.WriteJSON(frame{
		Event:   `App\Events\OrderUpdated`,
		Channel: "orders",
		Data:    quoted(`{"id":7}`),
	}))
	assert.JSONEq(t, `{"id":7}`, string(receive(t, received)))

	require.NoError(t, conn.WriteJSON(frame{Event: "pusher:ping", Data: json.RawMessage(`{}`)}))
	assert.Equal(t, "pusher:pong", readFrame(t, conn).Event)

	hub.Leave("orders")
	f = readFrame(t, conn)
	assert.Equal(t, "pusher:unsubscribe", f.Event)
	assert.JSONEq(t, `{"channel":"orders"}`, string(f.Data))
}

type fakeAuthorizer struct {
	mu                sync.Mutex
	socketID, channel string
}

func (a *fakeAuthorizer) AuthorizeChannel(_ context.Context, socketID, channel string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.socketID, a.channel = socketID, channel
	return "key:signature", nil
}

func TestClient_AuthorizesPrivateChannels(t *testing.T) {
	url, conns := newFakeServer(t)
	hub := realtime.NewHub(nil)
	auth := &fakeAuthorizer{}

	c := startClient(t, hub, Config{URL: url, AppKey: "key", Authorizer: auth})
	conn := receive(t, conns)
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	hub.Channel("private-users")
	f := readFrame(t, conn)
	assert.Equal(t, "pusher:subscribe", f.Event)
	assert.JSONEq(t, `{"channel":"private-users","auth":"key:signature"}`, string(f.Data))
	auth.mu.Lock()
	defer auth.mu.Unlock()
	assert.Equal(t, "123.456", auth.socketID)
	assert.Equal(t, "private-users", auth.channel)
}

func TestClient_ResubscribesAfterReconnect(t *testing.T) {
	url, conns := newFakeServer(t)
	hub := realtime.NewHub(nil)

	errs := make(chan error, 4)
	ch := hub.Channel("inventory")
	ch.Error(func(err error) { errs <- err })

	startClient(t, hub, Config{URL: url, AppKey: "key", BaseBackoff: 10 * time.Millisecond})

	first := receive(t, conns)
	assert.Equal(t, "pusher:subscribe", readFrame(t, first).Event)
	require.NoError(t, first.Close())

	assert.Error(t, receive(t, errs))

	second := receive(t, conns)
	f := readFrame(t, second)
	assert.Equal(t, "pusher:subscribe", f.Event)
	assert.JSONEq(t, `{"channel":"inventory"}`, string(f.Data))
}

func TestEndpointURL(t *testing.T) {
	got, err := endpointURL("https://push.example.com/", "abc")
	require.NoError(t, err)
	assert.Equal(t, "wss://push.example.com/app/abc?client=backroom&protocol=7", got)

	_, err = endpointURL("", "abc")
	assert.Error(t, err)
	_, err = endpointURL("ws://x", " ")
	assert.Error(t, err)
	_, err = endpointURL("ftp://x", "abc")
	assert.Error(t, err)
}

func TestDecodeData(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(decodeData(quoted(`{"a":1}`))))
	assert.JSONEq(t, `{"a":1}`, string(decodeData(json.RawMessage(`{"a":1}`))))
	assert.Equal(t, `"plain text"`, string(decodeData(quoted("plain text"))))
	assert.Empty(t, decodeData(nil))
}
