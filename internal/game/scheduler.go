package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRoundsPerGame = 3
	DefaultRoundDuration = 80 * time.Second
	DefaultRoundPause    = 5 * time.Second
)

// Outcome tells a caller what a transition did. Everything except
// OutcomeApplied is a no-op: nothing was written and nothing was published.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyActive
	OutcomeNoActiveRound
	OutcomeExhausted
	OutcomeNotInProgress
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyActive:
		return "already_active"
	case OutcomeNoActiveRound:
		return "no_active_round"
	case OutcomeExhausted:
		return "no_more_rounds"
	case OutcomeNotInProgress:
		return "not_in_progress"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Config struct {
	RoundsPerGame int
	RoundDuration time.Duration
	RoundPause    time.Duration
}

func (c Config) withDefaults() Config {
	if c.RoundsPerGame <= 0 {
		c.RoundsPerGame = DefaultRoundsPerGame
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = DefaultRoundDuration
	}
	if c.RoundPause <= 0 {
		c.RoundPause = DefaultRoundPause
	}
	return c
}

// Scheduler owns the game and round state machine. Every mutation of a game
// goes through mutate, which serializes callers per game and publishes the
// resulting events before the next caller for that game can proceed.
type Scheduler struct {
	repo       Repository
	pub        Publisher
	cfg        Config
	clock      clockwork.Clock
	roundClock RoundClock
	locks      *gameLocks

	useDeadlines bool

	randMu sync.Mutex
	rand   *rand.Rand
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		s.rand = r
	}
}

func WithRoundClock(rc RoundClock) Option {
	return func(s *Scheduler) {
		s.roundClock = rc
	}
}

// WithDeadlineEnforcement makes the server end rounds whose deadline has
// passed, instead of waiting for a client to do it.
func WithDeadlineEnforcement() Option {
	return func(s *Scheduler) {
		s.roundClock = nil
		s.useDeadlines = true
	}
}

func NewScheduler(repo Repository, pub Publisher, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:  repo,
		pub:   pub,
		cfg:   cfg.withDefaults(),
		clock: clockwork.NewRealClock(),
		locks: newGameLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	if s.useDeadlines {
		s.roundClock = NewDeadlineClock(s.clock, s.expireRound)
	}
	if s.roundClock == nil {
		s.roundClock = ClientDrivenClock{}
	}
	return s
}

func (s *Scheduler) RoundClock() RoundClock {
	return s.roundClock
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Scheduler) Close() {
	s.roundClock.Stop()
}

// mutate runs fn as one atomic repository update while holding the game's
// lock. Events are published in order, and after runs, before the lock is
// released. A fn returning errNoChange leaves the game untouched and mutate
// returns (nil, nil).
func (s *Scheduler) mutate(ctx context.Context, gameID int64, fn func(game *Game) ([]Event, error), after func(game *Game)) (*Game, error) {
	unlock := s.locks.lock(gameID)
	defer unlock()

	game, events, err := s.repo.UpdateGame(ctx, gameID, fn)
	if errors.Is(err, errNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.pub != nil {
		for _, event := range events {
			s.pub.Publish(gameID, event)
		}
	}
	if after != nil {
		after(game)
	}
	return game, nil
}

func (s *Scheduler) GetGame(ctx context.Context, gameID int64) (*Game, error) {
	return s.repo.GetGame(ctx, gameID)
}

func (s *Scheduler) ListGames(ctx context.Context) ([]*Game, error) {
	return s.repo.ListGames(ctx, StatusWaiting, StatusInProgress)
}

// CreateGame stores a new waiting game with the creator as its first player.
func (s *Scheduler) CreateGame(ctx context.Context, creatorID int64, words []string) (*Game, error) {
	cleaned := NormalizeWords(words)
	if len(cleaned) == 0 {
		return nil, NewValidationError("words", "must contain at least one word")
	}
	creator, err := s.repo.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	game, err := s.repo.CreateGame(ctx, &Game{
		Status:            StatusWaiting,
		CreatorID:         creator.ID,
		CurrentRoundOrder: -1,
		Words:             cleaned,
		Players: []Member{{
			PlayerID: creator.ID,
			Username: creator.Username,
			JoinedAt: now,
		}},
		RoundDuration: s.cfg.RoundDuration,
		RoundPause:    s.cfg.RoundPause,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("game_id", game.ID).Int64("creator_id", creator.ID).Int("words", len(cleaned)).Msg("game created")
	return game, nil
}

// DeleteGame removes a game with its rounds and memberships. Only the
// creator may do this.
func (s *Scheduler) DeleteGame(ctx context.Context, gameID, actorID int64) error {
	unlock := s.locks.lock(gameID)
	defer unlock()
	game, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.CreatorID != actorID {
		return fmt.Errorf("only the creator can delete game %d: %w", gameID, ErrForbidden)
	}
	if err := s.repo.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	s.roundClock.RoundEnded(gameID)
	log.Info().Int64("game_id", gameID).Msg("game deleted")
	return nil
}

type StartResult struct {
	Game  *Game
	Round *Round
	// ActivationErr is set when the game started but its first round could
	// not be activated. The game is then in progress with no active round,
	// and ActivateNextRound can be retried.
	ActivationErr error
}

// StartGame moves a waiting game into progress, creates its rounds and
// activates the first one.
func (s *Scheduler) StartGame(ctx context.Context, gameID, actorID int64) (StartResult, error) {
	_, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		if game.CreatorID != actorID {
			return nil, fmt.Errorf("only the creator can start game %d: %w", gameID, ErrForbidden)
		}
		if game.Status != StatusWaiting {
			return nil, fmt.Errorf("game %d is %s: %w", gameID, game.Status, ErrInvalidState)
		}
		if len(game.Players) == 0 {
			return nil, fmt.Errorf("game %d has no players: %w", gameID, ErrInvalidState)
		}
		if len(game.Words) == 0 {
			return nil, NewValidationError("words", "must contain at least one word")
		}
		game.Status = StatusInProgress
		game.Rounds = s.buildRounds(game)
		return []Event{GameStarted{}}, nil
	}, nil)
	if err != nil {
		return StartResult{}, err
	}
	log.Info().Int64("game_id", gameID).Msg("game started")

	result := StartResult{}
	outcome, round, activateErr := s.ActivateNextRound(ctx, gameID)
	switch {
	case activateErr != nil:
		log.Warn().Err(activateErr).Int64("game_id", gameID).Msg("first round activation failed")
		result.ActivationErr = activateErr
	case outcome != OutcomeApplied:
		log.Debug().Int64("game_id", gameID).Str("outcome", outcome.String()).Msg("first round not activated")
	default:
		result.Round = round
	}
	game, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return result, err
	}
	result.Game = game
	return result, nil
}

func (s *Scheduler) buildRounds(game *Game) []Round {
	players := game.OrderedPlayers()
	rounds := make([]Round, s.cfg.RoundsPerGame)
	for i := range rounds {
		rounds[i] = Round{
			GameID:   game.ID,
			PlayerID: players[i%len(players)].PlayerID,
			Word:     game.Words[s.intn(len(game.Words))],
			Order:    i,
			Status:   RoundPending,
		}
	}
	return rounds
}

func (s *Scheduler) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Intn(n)
}

// ActivateNextRound activates the round after CurrentRoundOrder. Losing a
// race to another caller is reported as OutcomeAlreadyActive, not an error.
func (s *Scheduler) ActivateNextRound(ctx context.Context, gameID int64) (Outcome, *Round, error) {
	outcome := OutcomeApplied
	var started Round
	_, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		if game.Status != StatusInProgress {
			outcome = OutcomeNotInProgress
			return nil, errNoChange
		}
		if game.ActiveRound() != nil {
			outcome = OutcomeAlreadyActive
			return nil, errNoChange
		}
		next := game.RoundByOrder(game.CurrentRoundOrder + 1)
		if next == nil {
			// completeRound normally finishes the game first; this covers a
			// game left in progress with nothing to play.
			outcome = OutcomeExhausted
			game.Status = StatusFinished
			return []Event{GameFinished{}}, nil
		}
		now := s.Now()
		duration := s.roundDuration(game)
		endsAt := now.Add(duration)
		startedAt := now
		game.CurrentRoundOrder = next.Order
		next.Status = RoundActive
		next.StartedAt = &startedAt
		next.EndsAt = &endsAt
		next.CompletedAt = nil
		next.NextRoundAt = nil
		started = *next
		return []Event{RoundStarted{
			RoundID:    next.ID,
			PlayerID:   next.PlayerID,
			PlayerName: game.PlayerName(next.PlayerID),
			Word:       next.Word,
			Duration:   int(duration / time.Second),
			EndsAt:     endsAt,
		}}, nil
	}, func(game *Game) {
		if round := game.ActiveRound(); round != nil {
			started = *round
			s.roundClock.RoundStarted(gameID, round.ID, *round.EndsAt)
		}
	})
	if err != nil {
		return outcome, nil, err
	}
	if outcome != OutcomeApplied {
		return outcome, nil, nil
	}
	log.Info().
		Int64("game_id", gameID).
		Int64("round_id", started.ID).
		Int("order", started.Order).
		Int64("player_id", started.PlayerID).
		Msg("round started")
	return outcome, &started, nil
}

// EndActiveRound completes the active round and finishes the game when no
// rounds are left.
func (s *Scheduler) EndActiveRound(ctx context.Context, gameID int64) (Outcome, *Round, error) {
	return s.endRound(ctx, gameID, 0)
}

// expireRound ends roundID if it is still the active round.
func (s *Scheduler) expireRound(ctx context.Context, gameID, roundID int64) {
	outcome, _, err := s.endRound(ctx, gameID, roundID)
	if err != nil {
		log.Error().Err(err).Int64("game_id", gameID).Int64("round_id", roundID).Msg("deadline end round failed")
		return
	}
	log.Debug().Int64("game_id", gameID).Int64("round_id", roundID).Str("outcome", outcome.String()).Msg("deadline end round")
}

func (s *Scheduler) endRound(ctx context.Context, gameID, expectedRoundID int64) (Outcome, *Round, error) {
	outcome := OutcomeApplied
	var ended Round
	game, err := s.mutate(ctx, gameID, func(game *Game) ([]Event, error) {
		active := game.ActiveRound()
		if active == nil || (expectedRoundID != 0 && active.ID != expectedRoundID) {
			outcome = OutcomeNoActiveRound
			return nil, errNoChange
		}
		events := s.completeRound(game, active, s.Now())
		ended = *active
		return events, nil
	}, func(game *Game) {
		s.roundClock.RoundEnded(gameID)
	})
	if err != nil {
		return outcome, nil, err
	}
	if outcome != OutcomeApplied {
		return outcome, nil, nil
	}
	s.logRoundEnded(game, ended)
	return outcome, &ended, nil
}

// completeRound marks round completed and applies the game-over rule. It
// must run inside a mutate callback.
func (s *Scheduler) completeRound(game *Game, round *Round, now time.Time) []Event {
	completedAt := now
	nextAt := now.Add(s.roundPause(game))
	round.Status = RoundCompleted
	round.CompletedAt = &completedAt
	round.NextRoundAt = &nextAt
	events := []Event{RoundEnded{
		RoundID:              round.ID,
		PlayerID:             round.PlayerID,
		PlayerName:           game.PlayerName(round.PlayerID),
		Word:                 round.Word,
		NextRoundAvailableAt: nextAt,
	}}
	if game.IsOver() {
		game.Status = StatusFinished
		events = append(events, GameFinished{})
	}
	return events
}

func (s *Scheduler) logRoundEnded(game *Game, round Round) {
	log.Info().
		Int64("game_id", game.ID).
		Int64("round_id", round.ID).
		Int("order", round.Order).
		Bool("successful", round.Successful).
		Msg("round ended")
	if game.Status == StatusFinished {
		log.Info().Int64("game_id", game.ID).Msg("game finished")
	}
}

func (s *Scheduler) roundDuration(game *Game) time.Duration {
	if game.RoundDuration > 0 {
		return game.RoundDuration
	}
	return s.cfg.RoundDuration
}

func (s *Scheduler) roundPause(game *Game) time.Duration {
	if game.RoundPause > 0 {
		return game.RoundPause
	}
	return s.cfg.RoundPause
}

// NormalizeWords trims every word and drops blanks. Order is kept and
// duplicates are allowed.
func NormalizeWords(words []string) []string {
	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Join(strings.Fields(word), " ")
		if word == "" {
			continue
		}
		cleaned = append(cleaned, word)
	}
	return cleaned
}

// SplitWords parses a comma separated word list.
func SplitWords(raw string) []string {
	return NormalizeWords(strings.Split(raw, ","))
}
