package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"coinarena/models"
	"coinarena/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type MatchHistory interface {
	GetRecentMatches(limit int) ([]models.Match, error)
	GetMatchByID(id uint) (*models.Match, error)
}

type HistoryHandler struct {
	history MatchHistory
}

func NewHistoryHandler(history MatchHistory) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func (h *HistoryHandler) GetRecentMatches(c *gin.Context) {
	matches, err := h.history.GetRecentMatches(queryInt(c, "limit", 20))
	if err != nil {
		log.Error().Err(err).Msg("listing matches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *HistoryHandler) GetMatchByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	match, err := h.history.GetMatchByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}
		log.Error().Err(err).Uint64("match", id).Msg("loading match")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
		return
	}

	c.JSON(http.StatusOK, match)
}
