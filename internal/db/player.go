package db

import "time"

// GamePlayer is a user's membership in a game.
type GamePlayer struct {
	ID        int64     `gorm:"primaryKey"`
	GameID    int64     `gorm:"not null;index;uniqueIndex:idx_game_players_game_user"`
	UserID    int64     `gorm:"not null;index;uniqueIndex:idx_game_players_game_user"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Score     int       `gorm:"not null;default:0"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
