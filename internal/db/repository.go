package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgxconn "github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"word-guess/internal/game"
)

// Repository stores games in Postgres. UpdateGame holds a row lock on the
// game for the whole callback, so concurrent writers in other processes are
// serialized as well.
type Repository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) CreateUser(ctx context.Context, username string) (*game.User, error) {
	var existing int64
	if err := r.conn.WithContext(ctx).Model(&User{}).Where("lower(username) = ?", strings.ToLower(username)).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("username %q taken: %w", username, game.ErrConflict)
	}
	record := User{Username: username}
	if err := r.conn.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q taken: %w", username, game.ErrConflict)
		}
		return nil, err
	}
	return toUser(record), nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*game.User, error) {
	var record User
	if err := r.conn.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return toUser(record), nil
}

func (r *Repository) CreateGame(ctx context.Context, g *game.Game) (*game.Game, error) {
	var created *game.Game
	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		words, err := json.Marshal(g.Words)
		if err != nil {
			return err
		}
		record := Game{
			Status:            string(g.Status),
			CreatorID:         g.CreatorID,
			CurrentRoundOrder: g.CurrentRoundOrder,
			Words:             datatypes.JSON(words),
			RoundSeconds:      int(g.RoundDuration / time.Second),
			PauseSeconds:      int(g.RoundPause / time.Second),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, member := range g.Players {
			if err := tx.Create(&GamePlayer{
				GameID:   record.ID,
				UserID:   member.PlayerID,
				Score:    member.Score,
				JoinedAt: member.JoinedAt,
			}).Error; err != nil {
				return err
			}
		}
		for _, round := range g.Rounds {
			row := fromRound(record.ID, round)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		created, err = loadGame(tx, record.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repository) GetGame(ctx context.Context, id int64) (*game.Game, error) {
	return loadGame(r.conn.WithContext(ctx), id, false)
}

func (r *Repository) ListGames(ctx context.Context, statuses ...game.Status) ([]*game.Game, error) {
	query := r.conn.WithContext(ctx).Model(&Game{}).Order("id")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where("status IN ?", values)
	}
	var records []Game
	if err := preloadGame(query).Find(&records).Error; err != nil {
		return nil, err
	}
	games := make([]*game.Game, 0, len(records))
	for _, record := range records {
		g, err := toGame(record)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

func (r *Repository) DeleteGame(ctx context.Context, id int64) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&Event{}, &Round{}, &GamePlayer{}} {
			if err := tx.Where("game_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&Game{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("game %d: %w", id, game.ErrNotFound)
		}
		return nil
	})
}

func (r *Repository) UpdateGame(ctx context.Context, id int64, fn func(g *game.Game) ([]game.Event, error)) (*game.Game, []game.Event, error) {
	var (
		updated *game.Game
		events  []game.Event
	)
	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := loadGame(tx, id, true)
		if err != nil {
			return err
		}
		working := before.Clone()
		events, err = fn(working)
		if err != nil {
			return err
		}
		if err := saveGame(tx, before, working); err != nil {
			return err
		}
		if err := appendEvents(tx, id, events); err != nil {
			return err
		}
		updated, err = loadGame(tx, id, false)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, events, nil
}

func preloadGame(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at, user_id") }).
		Preload("Players.User").
		Preload("Rounds", func(db *gorm.DB) *gorm.DB { return db.Order("round_order") })
}

func loadGame(tx *gorm.DB, id int64, forUpdate bool) (*game.Game, error) {
	if forUpdate {
		var locked Game
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked, id).Error; err != nil {
			return nil, notFound(err, "game %d", id)
		}
	}
	var record Game
	if err := preloadGame(tx).First(&record, id).Error; err != nil {
		return nil, notFound(err, "game %d", id)
	}
	return toGame(record)
}

// saveGame writes the difference between before and after.
func saveGame(tx *gorm.DB, before, after *game.Game) error {
	words, err := json.Marshal(after.Words)
	if err != nil {
		return err
	}
	if err := tx.Model(&Game{}).Where("id = ?", after.ID).Updates(map[string]any{
		"status":              string(after.Status),
		"current_round_order": after.CurrentRoundOrder,
		"words":               datatypes.JSON(words),
		"updated_at":          time.Now().UTC(),
	}).Error; err != nil {
		return err
	}

	for _, member := range before.Players {
		if after.HasPlayer(member.PlayerID) {
			continue
		}
		if err := tx.Where("game_id = ? AND user_id = ?", after.ID, member.PlayerID).Delete(&GamePlayer{}).Error; err != nil {
			return err
		}
	}
	for _, member := range after.Players {
		if existing, ok := before.Player(member.PlayerID); ok {
			if existing.Score != member.Score {
				if err := tx.Model(&GamePlayer{}).
					Where("game_id = ? AND user_id = ?", after.ID, member.PlayerID).
					Update("score", member.Score).Error; err != nil {
					return err
				}
			}
			continue
		}
		row := GamePlayer{
			GameID:   after.ID,
			UserID:   member.PlayerID,
			Score:    member.Score,
			JoinedAt: member.JoinedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("player %d already in game %d: %w", member.PlayerID, after.ID, game.ErrConflict)
			}
			return err
		}
	}

	for _, round := range after.Rounds {
		row := fromRound(after.ID, round)
		if round.ID == 0 {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			continue
		}
		if previous := before.RoundByID(round.ID); previous != nil && sameRound(*previous, round) {
			continue
		}
		if err := tx.Model(&Round{}).Where("id = ?", round.ID).Updates(map[string]any{
			"status":        row.Status,
			"started_at":    row.StartedAt,
			"ends_at":       row.EndsAt,
			"completed_at":  row.CompletedAt,
			"next_round_at": row.NextRoundAt,
			"successful":    row.Successful,
			"winner_id":     row.WinnerID,
			"updated_at":    time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func appendEvents(tx *gorm.DB, gameID int64, events []game.Event) error {
	for _, event := range events {
		payload, err := game.MarshalEvent(event)
		if err != nil {
			return err
		}
		roundID, playerID := eventRefs(event)
		if err := tx.Create(&Event{
			GameID:   gameID,
			RoundID:  roundID,
			PlayerID: playerID,
			Type:     string(event.Type()),
			Payload:  datatypes.JSON(payload),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func eventRefs(event game.Event) (roundID, playerID *int64) {
	ref := func(id int64) *int64 {
		if id == 0 {
			return nil
		}
		return &id
	}
	switch e := event.(type) {
	case game.PlayerJoined:
		return nil, ref(e.Player.ID)
	case game.PlayerLeft:
		return nil, ref(e.PlayerID)
	case game.RoundStarted:
		return ref(e.RoundID), ref(e.PlayerID)
	case game.RoundEnded:
		return ref(e.RoundID), ref(e.PlayerID)
	case game.RoundSuccess:
		return ref(e.RoundID), nil
	default:
		return nil, nil
	}
}

// isUniqueViolation recognizes both pgconn generations; the gorm postgres
// driver reports errors through pgx v5.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pgxErr *pgxconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == uniqueViolation
	}
	return false
}

const uniqueViolation = "23505"

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, game.ErrNotFound)...)
	}
	return err
}
