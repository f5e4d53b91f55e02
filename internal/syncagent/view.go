package syncagent

import (
	"time"

	"word-guess/internal/game"
)

// View is the agent's local picture of a game. Deadlines are local clock
// instants derived from the relative values the server reports.
type View struct {
	GameID          int64
	Status          game.Status
	Players         []game.SnapshotPlayer
	Round           *RoundView
	NextRoundAt     *time.Time
	RoundsAvailable bool
}

type RoundView struct {
	ID         int64
	PlayerID   int64
	PlayerName string
	Word       string
	EndsAt     time.Time
}

func (v View) clone() View {
	out := v
	out.Players = append([]game.SnapshotPlayer(nil), v.Players...)
	if v.Round != nil {
		round := *v.Round
		out.Round = &round
	}
	if v.NextRoundAt != nil {
		at := *v.NextRoundAt
		out.NextRoundAt = &at
	}
	return out
}

func (v *View) hasPlayer(id int64) bool {
	for _, player := range v.Players {
		if player.ID == id {
			return true
		}
	}
	return false
}

func (v *View) removePlayer(id int64) {
	for i, player := range v.Players {
		if player.ID == id {
			v.Players = append(v.Players[:i], v.Players[i+1:]...)
			return
		}
	}
}

func (v *View) markCurrentPlayer() {
	for i := range v.Players {
		v.Players[i].IsCurrentPlayer = v.Round != nil && v.Players[i].ID == v.Round.PlayerID
	}
}
