package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

const DefaultTTL = 60 * time.Second

// Roster is the part of the scheduler the tracker needs.
type Roster interface {
	GetGame(ctx context.Context, gameID int64) (*game.Game, error)
	Evict(ctx context.Context, gameID, playerID int64, stillStale func() bool) (bool, error)
}

type Tracker struct {
	store   Store
	roster  Roster
	sampler Sampler
	ttl     time.Duration
}

func NewTracker(store Store, roster Roster, sampler Sampler, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sampler == nil {
		sampler = NewProbabilitySampler(DefaultSweepProbability, nil)
	}
	return &Tracker{
		store:   store,
		roster:  roster,
		sampler: sampler,
		ttl:     ttl,
	}
}

func (t *Tracker) Store() Store {
	return t.store
}

// Heartbeat records that playerID is still present in gameID. Now and then
// it also sweeps the game; a failed sweep never fails the heartbeat.
func (t *Tracker) Heartbeat(ctx context.Context, gameID, playerID int64) error {
	g, err := t.roster.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !g.HasPlayer(playerID) {
		return fmt.Errorf("player %d in game %d: %w", playerID, gameID, game.ErrNotFound)
	}
	t.store.Touch(Key{PlayerID: playerID, GameID: gameID}, t.ttl)

	if !t.sampler.ShouldSweep() {
		return nil
	}
	if _, err := t.Sweep(ctx, gameID, playerID); err != nil {
		log.Warn().Err(err).Int64("game_id", gameID).Msg("presence sweep failed")
	}
	return nil
}

// Sweep removes every player of a waiting game, other than exceptPlayerID,
// who has no live presence entry. It returns the ids actually removed.
func (t *Tracker) Sweep(ctx context.Context, gameID, exceptPlayerID int64) ([]int64, error) {
	g, err := t.roster.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusWaiting {
		return nil, nil
	}
	var removed []int64
	for _, member := range g.Players {
		if member.PlayerID == exceptPlayerID {
			continue
		}
		key := Key{PlayerID: member.PlayerID, GameID: gameID}
		if t.store.Alive(key) {
			continue
		}
		evicted, err := t.roster.Evict(ctx, gameID, member.PlayerID, func() bool {
			return !t.store.Alive(key)
		})
		if err != nil {
			return removed, err
		}
		if !evicted {
			continue
		}
		t.store.Delete(key)
		removed = append(removed, member.PlayerID)
		log.Info().Int64("game_id", gameID).Int64("player_id", member.PlayerID).Msg("stale player removed")
	}
	return removed, nil
}

// Touch records presence without checking membership. Callers use it to
// cover a player who is about to join.
func (t *Tracker) Touch(gameID, playerID int64) {
	t.store.Touch(Key{PlayerID: playerID, GameID: gameID}, t.ttl)
}

func (t *Tracker) Forget(gameID, playerID int64) {
	t.store.Delete(Key{PlayerID: playerID, GameID: gameID})
}
