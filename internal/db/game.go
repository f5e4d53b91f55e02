package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID                int64          `gorm:"primaryKey"`
	Status            string         `gorm:"size:32;not null;index"`
	CreatorID         int64          `gorm:"not null;index"`
	CurrentRoundOrder int            `gorm:"not null;default:-1"`
	Words             datatypes.JSON `gorm:"type:jsonb;not null"`
	RoundSeconds      int            `gorm:"not null;default:80"`
	PauseSeconds      int            `gorm:"not null;default:5"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
	Players           []GamePlayer   `gorm:"constraint:OnDelete:CASCADE"`
	Rounds            []Round        `gorm:"constraint:OnDelete:CASCADE"`
	Events            []Event        `gorm:"constraint:OnDelete:CASCADE"`
}
