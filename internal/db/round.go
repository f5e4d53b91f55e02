package db

import "time"

type Round struct {
	ID          int64      `gorm:"primaryKey"`
	GameID      int64      `gorm:"not null;index;uniqueIndex:idx_rounds_game_order"`
	PlayerID    int64      `gorm:"not null;index"`
	Word        string     `gorm:"size:255;not null"`
	Order       int        `gorm:"column:round_order;not null;uniqueIndex:idx_rounds_game_order"`
	Status      string     `gorm:"size:32;not null;index"`
	StartedAt   *time.Time
	EndsAt      *time.Time
	CompletedAt *time.Time
	NextRoundAt *time.Time
	Successful  bool      `gorm:"not null;default:false"`
	WinnerID    *int64    `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}
