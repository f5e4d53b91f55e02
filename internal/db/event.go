package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is the audit log of everything broadcast for a game.
type Event struct {
	ID        int64          `gorm:"primaryKey"`
	GameID    int64          `gorm:"index;not null"`
	RoundID   *int64         `gorm:"index"`
	PlayerID  *int64         `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
