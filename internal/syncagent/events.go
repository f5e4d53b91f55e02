package syncagent

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"word-guess/internal/game"
)

// WSEvents reads the game topic from the server's websocket endpoint.
type WSEvents struct {
	conn *websocket.Conn
}

// DialEvents opens the event stream for gameID. A zero userID connects as a
// spectator.
func DialEvents(ctx context.Context, baseURL string, gameID, userID int64) (*WSEvents, error) {
	wsURL := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	wsURL += "/ws/games/" + strconv.FormatInt(gameID, 10)

	header := http.Header{}
	if userID != 0 {
		header.Set(userHeader, strconv.FormatInt(userID, 10))
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &WSEvents{conn: conn}, nil
}

func (s *WSEvents) Next(ctx context.Context) (game.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		event, err := game.DecodeEvent(data)
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		// pong replies to our keepalive are not game events
		if event.Type() == "pong" {
			continue
		}
		return event, nil
	}
}

func (s *WSEvents) Close() error {
	return s.conn.Close()
}
