package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"word-guess/internal/game"
)

func newWSServer(t *testing.T, h *Hub, playerID int64) *httptest.Server {
	t.Helper()
	upgrader := NewUpgrader()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.ServeConn(context.Background(), conn, h.NewSubscriber(1, playerID), DefaultConnConfig())
	}))
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeConnDeliversEvents(t *testing.T) {
	h := New()
	ts := newWSServer(t, h, 0)
	conn := dialWS(t, ts)

	require.Eventually(t, func() bool { return h.Count(1) == 1 }, time.Second, 5*time.Millisecond)
	h.Publish(1, game.RoundSuccess{RoundID: 4, Word: "apple"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	event, err := game.DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, game.RoundSuccess{RoundID: 4, Word: "apple"}, event)
}

func TestServeConnAnswersPing(t *testing.T) {
	h := New()
	ts := newWSServer(t, h, 0)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestServeConnLeavesOnDisconnect(t *testing.T) {
	membership := &fakeMembership{}
	h := New()
	h.UseMembership(membership)
	ts := newWSServer(t, h, 3)
	conn := dialWS(t, ts)

	require.Eventually(t, func() bool { return h.Count(1) == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return membership.leaveCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.Count(1))
}
