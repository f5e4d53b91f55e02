package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"word-guess/internal/presence"
)

func dialGame(t *testing.T, ts *httptest.Server, gameID string, userID int64) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/" + gameID
	header := http.Header{}
	if userID != 0 {
		header.Set(userHeader, strconv.FormatInt(userID, 10))
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readWSMessageType(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return envelope.Type
}

func waitForSubscribers(t *testing.T, srv *Server, gameID string, want int) {
	t.Helper()
	id, _ := strconv.ParseInt(gameID, 10, 64)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if srv.hub.Count(id) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers, got %d", want, srv.hub.Count(id))
}

func waitForPlayers(t *testing.T, ts *httptest.Server, gameID string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		players := fetchSnapshot(t, ts, gameID)["players"].([]any)
		if len(players) == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d players, got %d", want, len(players))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, ts := newTestApp(t, nil)
	resp := doRequest(t, ts, 0, http.MethodGet, "/ws/games/999", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestWebsocketStreamsRoundEvents(t *testing.T) {
	srv, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	joinGame(t, ts, bob, gameID)

	conn := dialGame(t, ts, gameID, bob)
	waitForSubscribers(t, srv, gameID, 1)

	startGame(t, ts, ada, gameID)
	for _, want := range []string{"game_started", "round_started"} {
		if got := readWSMessageType(t, conn, 5*time.Second); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}

	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/end_round", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := readWSMessageType(t, conn, 5*time.Second); got != "round_ended" {
		t.Fatalf("expected round_ended, got %s", got)
	}
}

func TestWebsocketConnectJoinsAndDisconnectLeaves(t *testing.T) {
	srv, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	cy := createUser(t, ts, "cy")
	gameID := createGame(t, ts, ada, "apple")

	watcher := dialGame(t, ts, gameID, ada)
	waitForSubscribers(t, srv, gameID, 1)

	conn := dialGame(t, ts, gameID, cy)
	waitForSubscribers(t, srv, gameID, 2)
	if got := readWSMessageType(t, watcher, 5*time.Second); got != "player_joined" {
		t.Fatalf("expected player_joined, got %s", got)
	}
	if players := fetchSnapshot(t, ts, gameID)["players"].([]any); len(players) != 2 {
		t.Fatalf("expected 2 players after connect, got %d", len(players))
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	if got := readWSMessageType(t, watcher, 5*time.Second); got != "player_left" {
		t.Fatalf("expected player_left, got %s", got)
	}
	if players := fetchSnapshot(t, ts, gameID)["players"].([]any); len(players) != 1 {
		t.Fatalf("expected 1 player after disconnect, got %d", len(players))
	}
}

func TestWebsocketClosedWhenGameDeleted(t *testing.T) {
	srv, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	gameID := createGame(t, ts, ada, "apple")

	conn := dialGame(t, ts, gameID, 0)
	waitForSubscribers(t, srv, gameID, 1)

	resp := doRequest(t, ts, ada, http.MethodDelete, "/games/"+gameID, nil)
	expectStatus(t, resp, http.StatusOK)

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.Fatalf("expected close frame, got %v", err)
			}
			return
		}
	}
}

func TestWebsocketJoinSurvivesSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sampler := &toggleSampler{}
	srv, ts := newTestApp(t, nil, WithClock(clock), WithSampler(sampler))
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	id, _ := strconv.ParseInt(gameID, 10, 64)

	conn := dialGame(t, ts, gameID, bob)
	waitForPlayers(t, ts, gameID, 2)

	clock.Advance(30 * time.Second)
	sampler.set(true)
	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/heartbeat", nil)
	expectStatus(t, resp, http.StatusOK)
	if players := fetchSnapshot(t, ts, gameID)["players"].([]any); len(players) != 2 {
		t.Fatalf("expected connected bob to survive the sweep, got %d players", len(players))
	}
	resp = doRequest(t, ts, bob, http.MethodPost, "/games/"+gameID+"/heartbeat", nil)
	expectStatus(t, resp, http.StatusOK)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitForSubscribers(t, srv, gameID, 0)
	deadline := time.Now().Add(5 * time.Second)
	for srv.tracker.Store().Alive(presence.Key{PlayerID: bob, GameID: id}) {
		if time.Now().After(deadline) {
			t.Fatalf("expected bob's presence to be cleared after leaving")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
