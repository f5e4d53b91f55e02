package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type ConnConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
	}
}

func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

var pongFrame = []byte(`{"type":"pong"}`)

// ServeConn subscribes sub and pumps its messages over conn until either
// side goes away. It blocks until the connection is finished.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn, sub *Subscriber, cfg ConnConfig) {
	defer conn.Close()
	if err := h.Subscribe(ctx, sub); err != nil {
		log.Warn().Err(err).Int64("game_id", sub.GameID).Int64("player_id", sub.PlayerID).Msg("ws subscribe failed")
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscribe failed"),
			time.Now().Add(cfg.WriteTimeout),
		)
		return
	}
	log.Info().Str("subscriber_id", sub.ID).Int64("game_id", sub.GameID).Int64("player_id", sub.PlayerID).Msg("ws connected")

	go h.writePump(conn, sub, cfg)
	h.readPump(conn, sub, cfg)
	h.Unsubscribe(context.WithoutCancel(ctx), sub)
	log.Info().Str("subscriber_id", sub.ID).Int64("game_id", sub.GameID).Msg("ws disconnected")
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscriber, cfg ConnConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case message := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("subscriber_id", sub.ID).Msg("ws write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "topic closed"))
			return
		}
	}
}

func (h *Hub) readPump(conn *websocket.Conn, sub *Subscriber, cfg ConnConfig) {
	conn.SetReadLimit(cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("unexpected ws close")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(message, &frame) == nil && frame.Type == "ping" {
			sub.offer(pongFrame)
		}
	}
}
