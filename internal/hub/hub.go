package hub

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

const DefaultBufferSize = 64

// Membership is how subscribing and unsubscribing change a game's roster.
type Membership interface {
	Join(ctx context.Context, gameID, userID int64) (bool, error)
	Leave(ctx context.Context, gameID, userID int64) (bool, error)
}

// Sink receives a copy of every envelope published on any topic.
type Sink interface {
	Deliver(gameID int64, kind game.EventType, payload []byte) error
}

// Subscriber is one listener on a game topic. A PlayerID of zero means an
// anonymous spectator.
type Subscriber struct {
	ID       string
	GameID   int64
	PlayerID int64

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	leaveOnce sync.Once
}

// Messages yields encoded envelopes in publish order.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Done is closed once the hub stops delivering to this subscriber.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// offer enqueues without blocking and reports whether there was room.
func (s *Subscriber) offer(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

type Hub struct {
	mu         sync.RWMutex
	topics     map[int64]map[*Subscriber]struct{}
	membership Membership
	sinks      []Sink
	bufferSize int
}

type Option func(*Hub)

func WithSink(sink Sink) Option {
	return func(h *Hub) {
		h.sinks = append(h.sinks, sink)
	}
}

func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

func New(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[int64]map[*Subscriber]struct{}),
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// UseMembership wires the roster after construction; the scheduler that
// implements it needs the hub as its publisher first.
func (h *Hub) UseMembership(m Membership) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.membership = m
}

func (h *Hub) NewSubscriber(gameID, playerID int64) *Subscriber {
	return &Subscriber{
		ID:       uuid.NewString(),
		GameID:   gameID,
		PlayerID: playerID,
		send:     make(chan []byte, h.bufferSize),
		done:     make(chan struct{}),
	}
}

// Subscribe registers sub on its game topic and, for a known player, joins
// them to the game. A player who can no longer join stays on as a spectator.
func (h *Hub) Subscribe(ctx context.Context, sub *Subscriber) error {
	h.mu.Lock()
	topic := h.topics[sub.GameID]
	if topic == nil {
		topic = make(map[*Subscriber]struct{})
		h.topics[sub.GameID] = topic
	}
	topic[sub] = struct{}{}
	membership := h.membership
	h.mu.Unlock()

	log.Debug().Str("subscriber_id", sub.ID).Int64("game_id", sub.GameID).Int64("player_id", sub.PlayerID).Msg("subscribed")
	if membership == nil || sub.PlayerID == 0 {
		return nil
	}
	if _, err := membership.Join(ctx, sub.GameID, sub.PlayerID); err != nil {
		if errors.Is(err, game.ErrInvalidState) {
			log.Debug().Int64("game_id", sub.GameID).Int64("player_id", sub.PlayerID).Msg("subscribed as spectator")
			return nil
		}
		h.remove(sub)
		sub.close()
		return err
	}
	return nil
}

// Unsubscribe stops delivery to sub. The player leaves the game only when no
// other subscription of theirs remains on the topic.
func (h *Hub) Unsubscribe(ctx context.Context, sub *Subscriber) {
	h.remove(sub)
	sub.close()

	h.mu.RLock()
	membership := h.membership
	stillHere := false
	for other := range h.topics[sub.GameID] {
		if other.PlayerID == sub.PlayerID {
			stillHere = true
			break
		}
	}
	h.mu.RUnlock()

	if membership == nil || sub.PlayerID == 0 || stillHere {
		return
	}
	sub.leaveOnce.Do(func() {
		if _, err := membership.Leave(ctx, sub.GameID, sub.PlayerID); err != nil && !errors.Is(err, game.ErrNotFound) {
			log.Warn().Err(err).Int64("game_id", sub.GameID).Int64("player_id", sub.PlayerID).Msg("leave on unsubscribe failed")
		}
	})
	log.Debug().Str("subscriber_id", sub.ID).Int64("game_id", sub.GameID).Msg("unsubscribed")
}

func (h *Hub) remove(sub *Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	topic := h.topics[sub.GameID]
	if _, ok := topic[sub]; !ok {
		return false
	}
	delete(topic, sub)
	if len(topic) == 0 {
		delete(h.topics, sub.GameID)
	}
	return true
}

// Publish encodes event once and hands it to every subscriber of the game in
// call order. Subscribers that cannot keep up are dropped.
func (h *Hub) Publish(gameID int64, event game.Event) {
	data, err := game.MarshalEvent(event)
	if err != nil {
		log.Error().Err(err).Int64("game_id", gameID).Str("event", string(event.Type())).Msg("encode event")
		return
	}

	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.topics[gameID]))
	for sub := range h.topics[gameID] {
		targets = append(targets, sub)
	}
	sinks := h.sinks
	h.mu.RUnlock()

	for _, sub := range targets {
		if sub.offer(data) {
			continue
		}
		log.Warn().Str("subscriber_id", sub.ID).Int64("game_id", gameID).Msg("subscriber too slow, dropping")
		h.remove(sub)
		sub.close()
	}
	for _, sink := range sinks {
		if err := sink.Deliver(gameID, event.Type(), data); err != nil {
			log.Warn().Err(err).Int64("game_id", gameID).Msg("event sink failed")
		}
	}
	log.Debug().Int64("game_id", gameID).Str("event", string(event.Type())).Int("subscribers", len(targets)).Msg("event published")
}

// CloseTopic drops every subscriber of a game without touching membership.
func (h *Hub) CloseTopic(gameID int64) {
	h.mu.Lock()
	topic := h.topics[gameID]
	delete(h.topics, gameID)
	h.mu.Unlock()
	for sub := range topic {
		sub.leaveOnce.Do(func() {})
		sub.close()
	}
}

func (h *Hub) Count(gameID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[gameID])
}
