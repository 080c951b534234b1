package ws

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer exposes a handler over a real HTTP listener, hijacking the
// connection the way the engine does, and returns the ws:// URL.
func wsServer(t *testing.T, h *Handler, m *Manager) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok, "response writer must support hijacking")
		netConn, rw, err := hj.Hijack()
		require.NoError(t, err)

		var initial []byte
		if buffered := rw.Reader.Buffered(); buffered > 0 {
			initial, _ = rw.Reader.Peek(buffered)
		}
		_, _ = Upgrade(r, netConn, initial, h, nil, m)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, dialer *websocket.Dialer) *websocket.Conn {
	t.Helper()
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestUpgradeEcho(t *testing.T) {
	h := &Handler{
		Rules: []Rule{{
			Match:    func(_ *Conn, msg *Message) bool { return msg.Data == "ping" },
			Response: "pong",
		}},
	}
	url := wsServer(t, h, NewManager())
	conn := dial(t, url, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`"ping"`)))

	kind, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, "pong", string(payload))
}

func TestUpgradeTracksConnections(t *testing.T) {
	connected := make(chan *Conn, 1)
	h := &Handler{OnConnect: func(c *Conn) { connected <- c }}
	m := NewManager()
	url := wsServer(t, h, m)
	dial(t, url, nil)

	select {
	case c := <-connected:
		assert.True(t, c.IsOpen())
		_, ok := m.Get(c.ID())
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("connect hook never fired")
	}
}

func TestUpgradeNegotiatesSubprotocol(t *testing.T) {
	h := &Handler{Subprotocols: []string{"chat"}}
	url := wsServer(t, h, NewManager())

	dialer := &websocket.Dialer{Subprotocols: []string{"graphql", "chat"}}
	conn := dial(t, url, dialer)

	assert.Equal(t, "chat", conn.Subprotocol())
}

func TestUpgradeRejectsUnauthorized(t *testing.T) {
	h := &Handler{Authenticate: func(*http.Request) (bool, error) { return false, nil }}
	url := wsServer(t, h, NewManager())

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Unauthorized", string(body))
}

func TestUpgradeRejectsPlainHTTP(t *testing.T) {
	url := wsServer(t, &Handler{}, NewManager())
	httpURL := "http" + strings.TrimPrefix(url, "ws")

	resp, err := http.Get(httpURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Upgrade header must be websocket", string(body))
}

func TestUpgradeWithCompression(t *testing.T) {
	h := &Handler{
		Deflate: &DeflatePolicy{Enabled: true},
		Rules: []Rule{{
			ResponseFunc: func(_ *Conn, msg *Message) any { return msg.Data },
		}},
	}
	url := wsServer(t, h, NewManager())

	dialer := &websocket.Dialer{EnableCompression: true}
	conn := dial(t, url, dialer)

	docs := []string{
		`{"seq": 1, "body": "first message across the compressed channel"}`,
		`{"seq": 2, "body": "second message across the compressed channel"}`,
		`{"seq": 3, "body": "third message across the compressed channel"}`,
	}
	for _, doc := range docs {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(doc)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(payload))
	}
}

func TestUpgradePingPong(t *testing.T) {
	url := wsServer(t, &Handler{}, NewManager())
	conn := dial(t, url, nil)

	pongs := make(chan string, 1)
	conn.SetPongHandler(func(appData string) error {
		pongs <- appData
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, conn.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second)))

	select {
	case payload := <-pongs:
		assert.Equal(t, "hb", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestUpgradeCloseHandshake(t *testing.T) {
	closes := make(chan closeEvent, 1)
	h := &Handler{OnClose: func(_ *Conn, code int, reason string) { closes <- closeEvent{code, reason} }}
	url := wsServer(t, h, NewManager())
	conn := dial(t, url, nil)

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "leaving")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, deadline))

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	assert.Equal(t, "leaving", closeErr.Text)

	ev := awaitClose(t, closes)
	assert.Equal(t, CloseGoingAway, ev.code)
	assert.Equal(t, "leaving", ev.reason)
}

func TestUpgradeRejectsMalformedClosePayload(t *testing.T) {
	url := wsServer(t, &Handler{}, NewManager())
	conn := dial(t, url, nil)

	// a one byte close payload cannot carry a close code
	deadline := time.Now().Add(time.Second)
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, []byte{0x01}, deadline))

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseProtocolError, closeErr.Code)
	assert.Equal(t, "Protocol error: invalid close payload", closeErr.Text)
}

func TestUpgradeBroadcast(t *testing.T) {
	h := &Handler{
		Rules: []Rule{{
			Match: func(_ *Conn, msg *Message) bool {
				doc, ok := msg.Data.(map[string]any)
				return ok && doc["action"] == "announce"
			},
			Response:  map[string]any{"event": "announcement"},
			Broadcast: true,
		}},
	}
	m := NewManager()
	url := wsServer(t, h, m)

	sender := dial(t, url, nil)
	listener := dial(t, url, nil)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"action":"announce"}`)))

	for name, conn := range map[string]*websocket.Conn{"sender": sender, "listener": listener} {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, name)
		assert.JSONEq(t, `{"event": "announcement"}`, string(payload), name)
	}
}
