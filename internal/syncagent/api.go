package syncagent

import (
	"context"
	"errors"

	"word-guess/internal/game"
)

var (
	// ErrRoundActive is returned by NextRound when another client already
	// started the round.
	ErrRoundActive = errors.New("round already active")
	// ErrNoActiveRound is returned by EndRound when there is nothing to end.
	ErrNoActiveRound = errors.New("no active round")
)

type NextRoundResult struct {
	Success      bool `json:"success"`
	GameFinished bool `json:"game_finished"`
}

// API is the slice of the game server the agent drives.
type API interface {
	Snapshot(ctx context.Context, gameID int64) (game.Snapshot, error)
	EndRound(ctx context.Context, gameID int64) error
	NextRound(ctx context.Context, gameID int64) (NextRoundResult, error)
	Heartbeat(ctx context.Context, gameID int64) error
}

// EventSource yields pushed game events in order.
type EventSource interface {
	Next(ctx context.Context) (game.Event, error)
	Close() error
}
