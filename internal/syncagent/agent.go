package syncagent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

const DefaultHeartbeatInterval = 15 * time.Second

// heartbeatBackoff multiplies the interval after a failed heartbeat.
const heartbeatBackoff = 3

// Agent keeps a local view of one game in step with the server. Pushed
// events update it immediately; snapshots correct it. When a local countdown
// runs out the agent asks the server to end the round or start the next one,
// and the server decides whether that still applies.
type Agent struct {
	api       API
	gameID    int64
	clock     clockwork.Clock
	heartbeat time.Duration
	onChange  func(View)

	mu         sync.Mutex
	ctx        context.Context
	view       View
	roundTimer clockwork.Timer
	pauseTimer clockwork.Timer
	ending     bool
	advancing  bool
}

type Option func(*Agent)

func WithClock(clock clockwork.Clock) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.heartbeat = d
		}
	}
}

// OnChange registers fn to receive a copy of the view after every update.
func OnChange(fn func(View)) Option {
	return func(a *Agent) {
		a.onChange = fn
	}
}

func New(api API, gameID int64, opts ...Option) *Agent {
	a := &Agent{
		api:       api,
		gameID:    gameID,
		clock:     clockwork.NewRealClock(),
		heartbeat: DefaultHeartbeatInterval,
		ctx:       context.Background(),
		view:      View{GameID: gameID},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.clone()
}

// Run resyncs, then applies events from src and sends heartbeats until ctx is
// done or src fails. The source is closed on return.
func (a *Agent) Run(ctx context.Context, src EventSource) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	defer a.stopTimers()

	go func() {
		<-ctx.Done()
		_ = src.Close()
	}()
	go a.heartbeatLoop(ctx)

	if err := a.Resync(ctx); err != nil {
		log.Warn().Err(err).Int64("game_id", a.gameID).Msg("initial resync failed")
	}
	for {
		event, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.HandleEvent(ctx, event)
	}
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	interval := a.heartbeat
	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()
	backedOff := false

	beat := func() {
		err := a.api.Heartbeat(ctx, a.gameID)
		switch {
		case err != nil && !backedOff:
			log.Warn().Err(err).Int64("game_id", a.gameID).Msg("heartbeat failed; slowing down")
			backedOff = true
			ticker.Reset(interval * heartbeatBackoff)
		case err == nil && backedOff:
			backedOff = false
			ticker.Reset(interval)
		}
	}
	beat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			beat()
		}
	}
}

// HandleEvent applies a pushed event to the view. Unknown events are ignored.
func (a *Agent) HandleEvent(ctx context.Context, event game.Event) {
	resync := false
	a.mu.Lock()
	switch e := event.(type) {
	case game.PlayerJoined:
		if !a.view.hasPlayer(e.Player.ID) {
			a.view.Players = append(a.view.Players, game.SnapshotPlayer{
				ID:        e.Player.ID,
				Username:  e.Player.Username,
				IsCreator: e.Player.IsCreator,
			})
		}
	case game.PlayerLeft:
		a.view.removePlayer(e.PlayerID)
	case game.GameStarted:
		a.view.Status = game.StatusInProgress
		a.view.RoundsAvailable = true
	case game.RoundStarted:
		a.view.Status = game.StatusInProgress
		a.setRoundLocked(&RoundView{
			ID:         e.RoundID,
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Word:       e.Word,
		}, time.Duration(e.Duration)*time.Second)
	case game.RoundSuccess:
		log.Debug().Int64("game_id", a.gameID).Int64("round_id", e.RoundID).Msg("round guessed")
	case game.RoundEnded:
		if a.view.Round != nil && a.view.Round.ID == e.RoundID {
			a.clearRoundLocked()
		}
		// The pause length comes from the server's own countdown.
		resync = a.view.Status == game.StatusInProgress
	case game.GameFinished:
		a.view.Status = game.StatusFinished
		a.view.RoundsAvailable = false
		a.clearRoundLocked()
		a.clearPauseLocked()
	default:
		a.mu.Unlock()
		return
	}
	a.notifyLocked()
	a.mu.Unlock()

	if resync {
		if err := a.Resync(ctx); err != nil {
			log.Warn().Err(err).Int64("game_id", a.gameID).Msg("resync after round end failed")
		}
	}
}

// Resync replaces the view with the server snapshot and re-seeds both
// countdowns from the relative times it reports.
func (a *Agent) Resync(ctx context.Context) error {
	snap, err := a.api.Snapshot(ctx, a.gameID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.view.Status = snap.GameStatus
	a.view.RoundsAvailable = snap.RoundsAvailable
	a.view.Players = append([]game.SnapshotPlayer(nil), snap.Players...)

	if current := snap.CurrentRound; current != nil {
		name := ""
		for _, player := range snap.Players {
			if player.ID == current.PlayerID {
				name = player.Username
			}
		}
		a.setRoundLocked(&RoundView{
			ID:         current.ID,
			PlayerID:   current.PlayerID,
			PlayerName: name,
			Word:       current.Word,
		}, time.Duration(current.TimeRemaining)*time.Second)
	} else {
		a.clearRoundLocked()
	}

	switch {
	case snap.GameStatus != game.StatusInProgress:
		a.clearPauseLocked()
	case snap.NextRoundInfo != nil && snap.CurrentRound == nil:
		a.setPauseLocked(time.Duration(snap.NextRoundInfo.SecondsUntilNextRound) * time.Second)
	}
	a.notifyLocked()
	return nil
}

// setRoundLocked makes round the active one and arms its countdown. A new
// round id clears the pending-end flag; the same id keeps it.
func (a *Agent) setRoundLocked(round *RoundView, remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	if a.view.Round == nil || a.view.Round.ID != round.ID {
		a.ending = false
	}
	round.EndsAt = a.clock.Now().Add(remaining)
	a.view.Round = round
	a.view.markCurrentPlayer()
	a.clearPauseLocked()

	if a.roundTimer != nil {
		a.roundTimer.Stop()
	}
	roundID := round.ID
	if remaining == 0 {
		a.roundTimer = nil
		go a.roundExpired(roundID)
		return
	}
	a.roundTimer = a.clock.AfterFunc(remaining, func() {
		a.roundExpired(roundID)
	})
}

func (a *Agent) clearRoundLocked() {
	if a.roundTimer != nil {
		a.roundTimer.Stop()
		a.roundTimer = nil
	}
	a.view.Round = nil
	a.view.markCurrentPlayer()
	a.ending = false
}

func (a *Agent) setPauseLocked(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	at := a.clock.Now().Add(remaining)
	a.view.NextRoundAt = &at
	if a.pauseTimer != nil {
		a.pauseTimer.Stop()
		a.pauseTimer = nil
	}
	if remaining == 0 {
		go a.pauseExpired()
		return
	}
	a.pauseTimer = a.clock.AfterFunc(remaining, a.pauseExpired)
}

func (a *Agent) clearPauseLocked() {
	if a.pauseTimer != nil {
		a.pauseTimer.Stop()
		a.pauseTimer = nil
	}
	a.view.NextRoundAt = nil
}

func (a *Agent) stopTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.roundTimer != nil {
		a.roundTimer.Stop()
		a.roundTimer = nil
	}
	if a.pauseTimer != nil {
		a.pauseTimer.Stop()
		a.pauseTimer = nil
	}
}

func (a *Agent) notifyLocked() {
	if a.onChange != nil {
		a.onChange(a.view.clone())
	}
}

// roundExpired asks the server to end roundID, at most once per round.
func (a *Agent) roundExpired(roundID int64) {
	a.mu.Lock()
	if a.view.Round == nil || a.view.Round.ID != roundID || a.ending {
		a.mu.Unlock()
		return
	}
	a.ending = true
	ctx := a.ctx
	a.mu.Unlock()

	err := a.api.EndRound(ctx, a.gameID)
	switch {
	case err == nil:
		log.Debug().Int64("game_id", a.gameID).Int64("round_id", roundID).Msg("round end requested")
	case errors.Is(err, ErrNoActiveRound):
		a.resyncQuietly(ctx)
	default:
		log.Warn().Err(err).Int64("game_id", a.gameID).Int64("round_id", roundID).Msg("end round failed")
	}
}

// pauseExpired asks the server for the next round. Losing the race to
// another client is normal and only triggers a resync.
func (a *Agent) pauseExpired() {
	a.mu.Lock()
	if a.advancing || a.view.Round != nil || a.view.Status != game.StatusInProgress {
		a.mu.Unlock()
		return
	}
	a.advancing = true
	a.view.NextRoundAt = nil
	ctx := a.ctx
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.advancing = false
		a.mu.Unlock()
	}()

	result, err := a.api.NextRound(ctx, a.gameID)
	switch {
	case errors.Is(err, ErrRoundActive):
		a.resyncQuietly(ctx)
	case err != nil:
		log.Warn().Err(err).Int64("game_id", a.gameID).Msg("next round failed")
	case result.GameFinished:
		a.mu.Lock()
		a.view.Status = game.StatusFinished
		a.view.RoundsAvailable = false
		a.notifyLocked()
		a.mu.Unlock()
	}
}

func (a *Agent) resyncQuietly(ctx context.Context) {
	if err := a.Resync(ctx); err != nil {
		log.Warn().Err(err).Int64("game_id", a.gameID).Msg("resync failed")
	}
}
