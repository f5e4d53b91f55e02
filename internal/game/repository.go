package game

import "context"

// Repository is the durable store for users, games and their rounds.
//
// UpdateGame is the only mutation path for an existing game. It must run fn
// against the current state and commit the result atomically: if fn returns
// an error nothing is written. The events fn returns are committed alongside
// the state (implementations may record them) and handed back to the caller.
type Repository interface {
	CreateUser(ctx context.Context, username string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateGame(ctx context.Context, game *Game) (*Game, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	ListGames(ctx context.Context, statuses ...Status) ([]*Game, error)
	DeleteGame(ctx context.Context, id int64) error
	UpdateGame(ctx context.Context, id int64, fn func(game *Game) ([]Event, error)) (*Game, []Event, error)
}
