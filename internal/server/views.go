package server

import (
	"time"

	"word-guess/internal/game"
)

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type playerView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	IsCreator bool   `json:"is_creator"`
}

type roundView struct {
	ID          int64            `json:"id"`
	Order       int              `json:"order"`
	PlayerID    int64            `json:"player_id"`
	Status      game.RoundStatus `json:"status"`
	Word        string           `json:"word,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	EndsAt      *time.Time       `json:"ends_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Successful  bool             `json:"successful"`
	WinnerID    *int64           `json:"winner_id,omitempty"`
}

type gameSummary struct {
	ID          int64       `json:"id"`
	Status      game.Status `json:"status"`
	CreatorID   int64       `json:"creator_id"`
	PlayerCount int         `json:"player_count"`
	CreatedAt   time.Time   `json:"created_at"`
}

type gameView struct {
	ID                int64        `json:"id"`
	Status            game.Status  `json:"status"`
	CreatorID         int64        `json:"creator_id"`
	CurrentRoundOrder int          `json:"current_round_order"`
	RoundDuration     int          `json:"round_duration"`
	RoundPause        int          `json:"round_pause"`
	WordCount         int          `json:"word_count"`
	Players           []playerView `json:"players"`
	Rounds            []roundView  `json:"rounds"`
}

func newUserView(user *game.User) userView {
	return userView{ID: user.ID, Username: user.Username}
}

func newSummary(g *game.Game) gameSummary {
	return gameSummary{
		ID:          g.ID,
		Status:      g.Status,
		CreatorID:   g.CreatorID,
		PlayerCount: len(g.Players),
		CreatedAt:   g.CreatedAt,
	}
}

func newGameView(g *game.Game) gameView {
	view := gameView{
		ID:                g.ID,
		Status:            g.Status,
		CreatorID:         g.CreatorID,
		CurrentRoundOrder: g.CurrentRoundOrder,
		RoundDuration:     int(g.RoundDuration / time.Second),
		RoundPause:        int(g.RoundPause / time.Second),
		WordCount:         len(g.Words),
		Players:           make([]playerView, 0, len(g.Players)),
		Rounds:            make([]roundView, 0, len(g.Rounds)),
	}
	for _, member := range g.OrderedPlayers() {
		view.Players = append(view.Players, playerView{
			ID:        member.PlayerID,
			Username:  member.Username,
			Score:     member.Score,
			IsCreator: member.PlayerID == g.CreatorID,
		})
	}
	for _, round := range g.Rounds {
		view.Rounds = append(view.Rounds, newRoundView(&round, false))
	}
	return view
}

// newRoundView hides the word of unfinished rounds unless reveal is set.
func newRoundView(round *game.Round, reveal bool) roundView {
	view := roundView{
		ID:          round.ID,
		Order:       round.Order,
		PlayerID:    round.PlayerID,
		Status:      round.Status,
		StartedAt:   round.StartedAt,
		EndsAt:      round.EndsAt,
		CompletedAt: round.CompletedAt,
		Successful:  round.Successful,
		WinnerID:    round.WinnerID,
	}
	if reveal || round.Status == game.RoundCompleted {
		view.Word = round.Word
	}
	return view
}
