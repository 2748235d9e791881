package handlers

import (
	"context"
	"net/http"
	"strconv"

	"coinarena/game"
	"coinarena/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type RoomSource interface {
	Get(id string) (*game.Room, bool)
	Rooms() []*game.Room
	List() []game.RoomInfo
}

type RoomLookup interface {
	Lookup(ctx context.Context, roomID string) (*game.RoomInfo, error)
	TopPlayers(ctx context.Context, n int) ([]services.LeaderboardEntry, error)
}

type RoomHandler struct {
	rooms     RoomSource
	directory RoomLookup
}

func NewRoomHandler(rooms RoomSource, directory RoomLookup) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		directory: directory,
	}
}

// RoomDetail is the admin view of one live room.
type RoomDetail struct {
	game.RoomInfo
	Ledger game.Ledger       `json:"ledger"`
	Roster []game.PlayerView `json:"roster"`
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.List()})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room ID required"})
		return
	}

	if room, ok := h.rooms.Get(id); ok {
		c.JSON(http.StatusOK, room.Info())
		return
	}

	// rooms that have gone from this process may still be listed in redis
	info, err := h.directory.Lookup(c.Request.Context(), id)
	if err != nil {
		log.Warn().Err(err).Str("room", id).Msg("directory lookup failed")
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *RoomHandler) Leaderboard(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	top, err := h.directory.TopPlayers(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("reading leaderboard")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

func (h *RoomHandler) AdminRooms(c *gin.Context) {
	rooms := h.rooms.Rooms()
	out := make([]RoomDetail, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomDetail{
			RoomInfo: r.Info(),
			Ledger:   r.Ledger(),
			Roster:   r.Roster().Players,
		})
	}

	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
