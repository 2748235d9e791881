package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"coinarena/handlers"
	"coinarena/middleware"
	"coinarena/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	roomHandler *handlers.RoomHandler,
	historyHandler *handlers.HistoryHandler,
	authHandler *handlers.AuthHandler,
	hub *services.Hub,
	tokens middleware.TokenValidator,
	staticDir string,
) {
	// API routes
	api := router.Group("/api")
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.GET("/:id", roomHandler.GetRoom)
		}

		api.GET("/leaderboard", roomHandler.Leaderboard)

		matches := api.Group("/matches")
		{
			matches.GET("", historyHandler.GetRecentMatches)
			matches.GET("/:id", historyHandler.GetMatchByID)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", authHandler.Login)

			protected := admin.Group("/")
			protected.Use(middleware.AuthMiddleware(tokens))
			protected.GET("/rooms", roomHandler.AdminRooms)
		}
	}

	// WebSocket endpoint; the first frame a client sends is its join
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
			return
		}
		client := hub.RegisterClient(conn)
		log.Debug().Str("remote", c.ClientIP()).Str("client", client.ID()).Msg("websocket connected")
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"rooms":   hub.Rooms().Len(),
			"clients": hub.ConnectedClients(),
		})
	})

	router.NoRoute(staticFallback(staticDir))
}

// staticFallback serves client assets from dir, falling back to index.html.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}
