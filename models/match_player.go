package models

import (
	"time"

	"gorm.io/gorm"
)

type MatchPlayer struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	MatchID   uint           `json:"match_id" gorm:"not null;uniqueIndex:idx_match_player"`
	PlayerID  string         `json:"player_id" gorm:"not null;uniqueIndex:idx_match_player"`
	Name      string         `json:"name" gorm:"not null"`
	Color     string         `json:"color"`
	Rank      int            `json:"rank" gorm:"not null"`
	Coins     int            `json:"coins" gorm:"not null;default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
