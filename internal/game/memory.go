package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps everything in process. Every call holds a single
// mutex, so UpdateGame is trivially atomic.
type MemoryRepository struct {
	mu          sync.Mutex
	nextGameID  int64
	nextRoundID int64
	nextUserID  int64
	games       map[int64]*Game
	users       map[int64]*User
	now         func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextGameID:  1,
		nextRoundID: 1,
		nextUserID:  1,
		games:       make(map[int64]*Game),
		users:       make(map[int64]*User),
		now:         timeNowUTC,
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, username) {
			return nil, fmt.Errorf("username %q taken: %w", username, ErrConflict)
		}
	}
	user := &User{
		ID:        r.nextUserID,
		Username:  username,
		CreatedAt: r.now(),
	}
	r.nextUserID++
	r.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) CreateGame(ctx context.Context, game *Game) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := game.Clone()
	stored.ID = r.nextGameID
	r.nextGameID++
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.assignRoundIDs(stored)
	r.games[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *MemoryRepository) GetGame(ctx context.Context, id int64) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	return game.Clone(), nil
}

func (r *MemoryRepository) ListGames(ctx context.Context, statuses ...Status) ([]*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Game, 0, len(r.games))
	for _, game := range r.games {
		if len(statuses) > 0 && !containsStatus(statuses, game.Status) {
			continue
		}
		list = append(list, game.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *MemoryRepository) DeleteGame(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	delete(r.games, id)
	return nil
}

func (r *MemoryRepository) UpdateGame(ctx context.Context, id int64, fn func(game *Game) ([]Event, error)) (*Game, []Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.games[id]
	if !ok {
		return nil, nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	working := current.Clone()
	events, err := fn(working)
	if err != nil {
		return nil, nil, err
	}
	working.ID = id
	working.UpdatedAt = r.now()
	r.assignRoundIDs(working)
	r.games[id] = working
	return working.Clone(), events, nil
}

func (r *MemoryRepository) assignRoundIDs(game *Game) {
	for i := range game.Rounds {
		if game.Rounds[i].ID != 0 {
			continue
		}
		game.Rounds[i].ID = r.nextRoundID
		game.Rounds[i].GameID = game.ID
		r.nextRoundID++
	}
}

func containsStatus(statuses []Status, status Status) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
