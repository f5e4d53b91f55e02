package game

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventGameStarted  EventType = "game_started"
	EventRoundStarted EventType = "round_started"
	EventRoundEnded   EventType = "round_ended"
	EventRoundSuccess EventType = "round_success"
	EventGameFinished EventType = "game_finished"
)

// Event is one broadcast message. The set of implementations is closed: the
// unexported marker keeps other packages from adding variants, so a type
// switch over the structs below is exhaustive apart from UnknownEvent.
type Event interface {
	Type() EventType
	event()
}

// Publisher receives events after the state change that caused them has
// been committed.
type Publisher interface {
	Publish(gameID int64, event Event)
}

type PlayerInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	IsCreator bool   `json:"is_creator"`
}

type PlayerJoined struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeft struct {
	PlayerID int64 `json:"player_id"`
}

type GameStarted struct{}

type RoundStarted struct {
	RoundID    int64     `json:"round_id"`
	PlayerID   int64     `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Word       string    `json:"word"`
	Duration   int       `json:"duration"`
	EndsAt     time.Time `json:"ends_at"`
}

type RoundEnded struct {
	RoundID              int64     `json:"round_id"`
	PlayerID             int64     `json:"player_id"`
	PlayerName           string    `json:"player_name"`
	Word                 string    `json:"word"`
	NextRoundAvailableAt time.Time `json:"next_round_available_at"`
}

type RoundSuccess struct {
	RoundID int64  `json:"round_id"`
	Word    string `json:"word"`
}

type GameFinished struct{}

// UnknownEvent is what DecodeEvent returns for a type it does not know.
// Consumers are expected to ignore it.
type UnknownEvent struct {
	Kind string
	Raw  json.RawMessage
}

func (PlayerJoined) Type() EventType { return EventPlayerJoined }
func (PlayerLeft) Type() EventType   { return EventPlayerLeft }
func (GameStarted) Type() EventType  { return EventGameStarted }
func (RoundStarted) Type() EventType { return EventRoundStarted }
func (RoundEnded) Type() EventType   { return EventRoundEnded }
func (RoundSuccess) Type() EventType { return EventRoundSuccess }
func (GameFinished) Type() EventType { return EventGameFinished }
func (e UnknownEvent) Type() EventType {
	return EventType(e.Kind)
}

func (PlayerJoined) event() {}
func (PlayerLeft) event()   {}
func (GameStarted) event()  {}
func (RoundStarted) event() {}
func (RoundEnded) event()   {}
func (RoundSuccess) event() {}
func (GameFinished) event() {}
func (UnknownEvent) event() {}

// MarshalEvent encodes the flat `{type, ...payload}` envelope.
func MarshalEvent(e Event) ([]byte, error) {
	if unknown, ok := e.(UnknownEvent); ok && len(unknown.Raw) > 0 {
		return unknown.Raw, nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(e.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}

func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	var target Event
	switch EventType(head.Type) {
	case EventPlayerJoined:
		var e PlayerJoined
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		target = e
	case EventPlayerLeft:
		var e PlayerLeft
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		target = e
	case EventGameStarted:
		target = GameStarted{}
	case EventRoundStarted:
		var e RoundStarted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		target = e
	case EventRoundEnded:
		var e RoundEnded
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		target = e
	case EventRoundSuccess:
		var e RoundSuccess
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		target = e
	case EventGameFinished:
		target = GameFinished{}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		target = UnknownEvent{Kind: head.Type, Raw: raw}
	}
	return target, nil
}
