package game

import (
	"context"
	"time"
)

// Snapshot is the pull-path view of a game. Clients seed their countdowns
// from TimeRemaining and SecondsUntilNextRound rather than from the absolute
// timestamps, so clock skew between client and server does not matter.
type Snapshot struct {
	GameID          int64            `json:"game_id"`
	Players         []SnapshotPlayer `json:"players"`
	CurrentRound    *SnapshotRound   `json:"current_round"`
	NextRoundInfo   *NextRoundInfo   `json:"next_round_info"`
	GameStatus      Status           `json:"game_status"`
	RoundsAvailable bool             `json:"rounds_available"`
}

type SnapshotPlayer struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	IsCreator       bool   `json:"is_creator"`
	IsCurrentPlayer bool   `json:"is_current_player"`
}

type SnapshotRound struct {
	ID            int64     `json:"id"`
	PlayerID      int64     `json:"player_id"`
	Word          string    `json:"word"`
	EndsAt        time.Time `json:"ends_at"`
	TimeRemaining int       `json:"time_remaining"`
}

type NextRoundInfo struct {
	NextRoundAt           time.Time `json:"next_round_at"`
	SecondsUntilNextRound int       `json:"seconds_until_next_round"`
}

func BuildSnapshot(game *Game, now time.Time) Snapshot {
	snap := Snapshot{
		GameID:          game.ID,
		Players:         make([]SnapshotPlayer, 0, len(game.Players)),
		GameStatus:      game.Status,
		RoundsAvailable: game.RoundsRemaining(),
	}
	active := game.ActiveRound()
	for _, member := range game.OrderedPlayers() {
		snap.Players = append(snap.Players, SnapshotPlayer{
			ID:              member.PlayerID,
			Username:        member.Username,
			IsCreator:       member.PlayerID == game.CreatorID,
			IsCurrentPlayer: active != nil && active.PlayerID == member.PlayerID,
		})
	}
	if active != nil && active.EndsAt != nil {
		snap.CurrentRound = &SnapshotRound{
			ID:            active.ID,
			PlayerID:      active.PlayerID,
			Word:          active.Word,
			EndsAt:        active.EndsAt.UTC(),
			TimeRemaining: secondsUntil(*active.EndsAt, now),
		}
		return snap
	}
	if game.Status != StatusInProgress {
		return snap
	}
	if last := game.LastCompletedRound(); last != nil && last.NextRoundAt != nil {
		snap.NextRoundInfo = &NextRoundInfo{
			NextRoundAt:           last.NextRoundAt.UTC(),
			SecondsUntilNextRound: secondsUntil(*last.NextRoundAt, now),
		}
	}
	return snap
}

func (s *Scheduler) Snapshot(ctx context.Context, gameID int64) (Snapshot, error) {
	game, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(game, s.Now()), nil
}

// secondsUntil rounds up to whole seconds and never goes below zero.
func secondsUntil(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	seconds := remaining / time.Second
	if remaining%time.Second != 0 {
		seconds++
	}
	return int(seconds)
}
