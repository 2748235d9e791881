package models

import (
	"time"

	"gorm.io/gorm"
)

type Match struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	RoomID    string         `json:"room_id" gorm:"index;not null"`
	Reason    string         `json:"reason" gorm:"not null"` // time_up, coins_exhausted
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Players []MatchPlayer `json:"players,omitempty" gorm:"foreignKey:MatchID"`
}
