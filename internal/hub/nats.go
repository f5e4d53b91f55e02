package hub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

const DefaultSubjectPrefix = "wordguess.games"

// ConnectNATS dials url and keeps reconnecting forever.
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("word-guess"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSSink mirrors every envelope onto <prefix>.<gameID>.events so other
// processes can follow a game.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSSink(conn *nats.Conn, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{conn: conn, prefix: prefix}
}

func (s *NATSSink) Deliver(gameID int64, kind game.EventType, payload []byte) error {
	msg := nats.NewMsg(Subject(s.prefix, gameID))
	msg.Header.Set("Event-Type", string(kind))
	msg.Data = payload
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s for game %d: %w", kind, gameID, err)
	}
	return nil
}

func Subject(prefix string, gameID int64) string {
	return fmt.Sprintf("%s.%d.events", prefix, gameID)
}
