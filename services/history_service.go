package services

import (
	"context"
	"errors"

	"coinarena/game"
	"coinarena/models"

	"gorm.io/gorm"
)

var ErrMatchNotFound = errors.New("match not found")

// HistoryService stores finished matches in Postgres.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

func (s *HistoryService) RecordMatch(ctx context.Context, end game.MatchEnd) error {
	// Start transaction
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	match := models.Match{
		RoomID:    end.RoomID,
		Reason:    string(end.Reason),
		StartedAt: end.StartedAt,
		EndedAt:   end.EndedAt,
	}
	if err := tx.Create(&match).Error; err != nil {
		tx.Rollback()
		return err
	}

	for _, st := range end.Leaderboard {
		player := models.MatchPlayer{
			MatchID:  match.ID,
			PlayerID: st.PlayerID,
			Name:     st.Name,
			Color:    st.Color,
			Rank:     st.Rank,
			Coins:    st.Coins,
		}
		if err := tx.Create(&player).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

func (s *HistoryService) GetRecentMatches(limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var matches []models.Match
	err := s.db.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("match_players.rank")
		}).
		Order("ended_at DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

func (s *HistoryService) GetMatchByID(id uint) (*models.Match, error) {
	var match models.Match
	err := s.db.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("match_players.rank")
		}).
		First(&match, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}
