package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type published struct {
	gameID int64
	event  Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(gameID int64, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{gameID: gameID, event: event})
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.Type())
	}
	return out
}

func (p *recordingPublisher) count(kind EventType) int {
	n := 0
	for _, t := range p.types() {
		if t == kind {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	repo  *MemoryRepository
	pub   *recordingPublisher
	clock *clockwork.FakeClock
	sched *Scheduler
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMemoryRepository()
	repo.now = func() time.Time { return clock.Now().UTC() }
	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(clock), WithRand(rand.New(rand.NewSource(1)))}, opts...)
	sched := NewScheduler(repo, pub, cfg, opts...)
	t.Cleanup(sched.Close)
	return &fixture{repo: repo, pub: pub, clock: clock, sched: sched}
}

func (f *fixture) user(t *testing.T, name string) *User {
	t.Helper()
	user, err := f.repo.CreateUser(context.Background(), name)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// startedGame creates a game owned by the first name, joins the rest and
// starts it.
func (f *fixture) startedGame(t *testing.T, words []string, names ...string) (*Game, []*User) {
	t.Helper()
	ctx := context.Background()
	users := make([]*User, 0, len(names))
	for _, name := range names {
		users = append(users, f.user(t, name))
	}
	game, err := f.sched.CreateGame(ctx, users[0].ID, words)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, user := range users[1:] {
		if _, err := f.sched.Join(ctx, game.ID, user.ID); err != nil {
			t.Fatalf("join %s: %v", user.Username, err)
		}
	}
	result, err := f.sched.StartGame(ctx, game.ID, users[0].ID)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if result.ActivationErr != nil {
		t.Fatalf("activate first round: %v", result.ActivationErr)
	}
	return result.Game, users
}
