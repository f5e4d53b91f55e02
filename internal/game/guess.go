package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type GuessResult struct {
	Outcome Outcome
	Correct bool
	Round   *Round
}

// MatchGuess compares case-insensitively after trimming surrounding space.
func MatchGuess(word, guess string) bool {
	return strings.EqualFold(strings.TrimSpace(word), strings.TrimSpace(guess))
}

// EvaluateGuess checks a guess against the active round. A correct guess
// marks the round successful, emits round_success and then ends the round
// through the same path as EndActiveRound. A wrong guess changes nothing.
func (s *Scheduler) EvaluateGuess(ctx context.Context, gameID, playerID int64, text string) (GuessResult, error) {
	result := GuessResult{Outcome: OutcomeApplied}
	var ended Round
	game, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		if !game.HasPlayer(playerID) {
			return nil, fmt.Errorf("player %d in game %d: %w", playerID, gameID, ErrNotFound)
		}
		active := game.ActiveRound()
		if active == nil {
			result.Outcome = OutcomeNoActiveRound
			return nil, errNoChange
		}
		if active.PlayerID == playerID {
			return nil, fmt.Errorf("player %d is giving round %d: %w", playerID, active.ID, ErrForbidden)
		}
		if !MatchGuess(active.Word, text) {
			ended = *active
			return nil, errNoChange
		}
		result.Correct = true
		winner := playerID
		active.Successful = true
		active.WinnerID = &winner
		events := []Event{RoundSuccess{RoundID: active.ID, Word: active.Word}}
		events = append(events, s.completeRound(game, active, s.Now())...)
		ended = *active
		return events, nil
	}, func(game *Game) {
		s.roundClock.RoundEnded(gameID)
	})
	if err != nil {
		return GuessResult{}, err
	}
	if result.Outcome != OutcomeApplied {
		return result, nil
	}
	result.Round = &ended
	if !result.Correct {
		return result, nil
	}
	log.Info().Int64("game_id", gameID).Int64("round_id", ended.ID).Int64("player_id", playerID).Msg("round guessed")
	s.logRoundEnded(game, ended)
	return result, nil
}
