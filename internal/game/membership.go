package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Join adds userID to the game. Joining twice is a no-op that reports false
// and publishes nothing. Newcomers can only join while the game is waiting.
func (s *Scheduler) Join(ctx context.Context, gameID, userID int64) (bool, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	game, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		if game.HasPlayer(userID) {
			return nil, errNoChange
		}
		if game.Status != StatusWaiting {
			return nil, fmt.Errorf("game %d is %s: %w", gameID, game.Status, ErrInvalidState)
		}
		game.Players = append(game.Players, Member{
			PlayerID: user.ID,
			Username: user.Username,
			JoinedAt: s.Now(),
		})
		return []Event{PlayerJoined{Player: PlayerInfo{
			ID:        user.ID,
			Username:  user.Username,
			IsCreator: game.CreatorID == user.ID,
		}}}, nil
	}, nil)
	if err != nil {
		return false, err
	}
	if game == nil {
		return false, nil
	}
	log.Info().Int64("game_id", gameID).Int64("player_id", userID).Str("username", user.Username).Msg("player joined")
	return true, nil
}

// Leave removes userID while the game is still waiting. Once a game has
// started, leaving has no effect on membership.
func (s *Scheduler) Leave(ctx context.Context, gameID, userID int64) (bool, error) {
	return s.Evict(ctx, gameID, userID, nil)
}

// Evict removes playerID from a waiting game if stillStale (evaluated under
// the game's lock) agrees. A nil stillStale always agrees.
func (s *Scheduler) Evict(ctx context.Context, gameID, playerID int64, stillStale func() bool) (bool, error) {
	game, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		if game.Status != StatusWaiting || !game.HasPlayer(playerID) {
			return nil, errNoChange
		}
		if stillStale != nil && !stillStale() {
			return nil, errNoChange
		}
		game.RemovePlayer(playerID)
		return []Event{PlayerLeft{PlayerID: playerID}}, nil
	}, nil)
	if err != nil {
		return false, err
	}
	if game == nil {
		return false, nil
	}
	log.Info().Int64("game_id", gameID).Int64("player_id", playerID).Msg("player left")
	return true, nil
}
