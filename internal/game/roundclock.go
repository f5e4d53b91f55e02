package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RoundClock is told about every round start and end. It is the hook for
// any server-side deadline authority; the scheduler's transitions do not
// depend on what it does.
type RoundClock interface {
	RoundStarted(gameID, roundID int64, endsAt time.Time)
	RoundEnded(gameID int64)
	Stop()
}

// ClientDrivenClock does nothing: rounds end only when a client (or a
// correct guess) ends them. A round nobody ends stays active.
type ClientDrivenClock struct{}

func (ClientDrivenClock) RoundStarted(gameID, roundID int64, endsAt time.Time) {}
func (ClientDrivenClock) RoundEnded(gameID int64)                              {}
func (ClientDrivenClock) Stop()                                                {}

// DeadlineClock ends a round on the server once its deadline passes.
type DeadlineClock struct {
	clock  clockwork.Clock
	expire func(ctx context.Context, gameID, roundID int64)

	mu      sync.Mutex
	timers  map[int64]deadline
	stopped bool
}

type deadline struct {
	roundID int64
	timer   clockwork.Timer
}

func NewDeadlineClock(clock clockwork.Clock, expire func(ctx context.Context, gameID, roundID int64)) *DeadlineClock {
	return &DeadlineClock{
		clock:  clock,
		expire: expire,
		timers: make(map[int64]deadline),
	}
}

func (c *DeadlineClock) RoundStarted(gameID, roundID int64, endsAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if existing, ok := c.timers[gameID]; ok {
		existing.timer.Stop()
	}
	delay := endsAt.Sub(c.clock.Now())
	if delay < 0 {
		delay = 0
	}
	timer := c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		if current, ok := c.timers[gameID]; ok && current.roundID == roundID {
			delete(c.timers, gameID)
		}
		c.mu.Unlock()
		log.Info().Int64("game_id", gameID).Int64("round_id", roundID).Msg("round deadline reached")
		c.expire(context.Background(), gameID, roundID)
	})
	c.timers[gameID] = deadline{roundID: roundID, timer: timer}
}

func (c *DeadlineClock) RoundEnded(gameID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.timers[gameID]; ok {
		current.timer.Stop()
		delete(c.timers, gameID)
	}
}

func (c *DeadlineClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *DeadlineClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, current := range c.timers {
		current.timer.Stop()
		delete(c.timers, id)
	}
}
