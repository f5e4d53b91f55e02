package db

import (
	"encoding/json"
	"fmt"
	"time"

	"word-guess/internal/game"
)

func toUser(record User) *game.User {
	return &game.User{
		ID:        record.ID,
		Username:  record.Username,
		CreatedAt: record.CreatedAt.UTC(),
	}
}

func toGame(record Game) (*game.Game, error) {
	var words []string
	if len(record.Words) > 0 {
		if err := json.Unmarshal(record.Words, &words); err != nil {
			return nil, fmt.Errorf("decode words for game %d: %w", record.ID, err)
		}
	}
	g := &game.Game{
		ID:                record.ID,
		Status:            game.Status(record.Status),
		CreatorID:         record.CreatorID,
		CurrentRoundOrder: record.CurrentRoundOrder,
		Words:             words,
		Players:           make([]game.Member, 0, len(record.Players)),
		Rounds:            make([]game.Round, 0, len(record.Rounds)),
		RoundDuration:     time.Duration(record.RoundSeconds) * time.Second,
		RoundPause:        time.Duration(record.PauseSeconds) * time.Second,
		CreatedAt:         record.CreatedAt.UTC(),
		UpdatedAt:         record.UpdatedAt.UTC(),
	}
	for _, player := range record.Players {
		g.Players = append(g.Players, game.Member{
			PlayerID: player.UserID,
			Username: player.User.Username,
			Score:    player.Score,
			JoinedAt: player.JoinedAt.UTC(),
		})
	}
	for _, round := range record.Rounds {
		g.Rounds = append(g.Rounds, toRound(round))
	}
	return g, nil
}

func toRound(record Round) game.Round {
	return game.Round{
		ID:          record.ID,
		GameID:      record.GameID,
		PlayerID:    record.PlayerID,
		Word:        record.Word,
		Order:       record.Order,
		Status:      game.RoundStatus(record.Status),
		StartedAt:   utcPtr(record.StartedAt),
		EndsAt:      utcPtr(record.EndsAt),
		CompletedAt: utcPtr(record.CompletedAt),
		NextRoundAt: utcPtr(record.NextRoundAt),
		Successful:  record.Successful,
		WinnerID:    record.WinnerID,
	}
}

func fromRound(gameID int64, round game.Round) Round {
	return Round{
		ID:          round.ID,
		GameID:      gameID,
		PlayerID:    round.PlayerID,
		Word:        round.Word,
		Order:       round.Order,
		Status:      string(round.Status),
		StartedAt:   round.StartedAt,
		EndsAt:      round.EndsAt,
		CompletedAt: round.CompletedAt,
		NextRoundAt: round.NextRoundAt,
		Successful:  round.Successful,
		WinnerID:    round.WinnerID,
	}
}

func sameRound(a, b game.Round) bool {
	return a.Status == b.Status &&
		a.Successful == b.Successful &&
		sameTime(a.StartedAt, b.StartedAt) &&
		sameTime(a.EndsAt, b.EndsAt) &&
		sameTime(a.CompletedAt, b.CompletedAt) &&
		sameTime(a.NextRoundAt, b.NextRoundAt) &&
		sameID(a.WinnerID, b.WinnerID)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
