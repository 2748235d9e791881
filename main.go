package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinarena/config"
	"coinarena/handlers"
	"coinarena/middleware"
	"coinarena/models"
	"coinarena/routes"
	"coinarena/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	config.InitLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate database models
	if err := db.AutoMigrate(&models.Match{}, &models.MatchPlayer{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, room directory will lag until it recovers")
	}

	// Initialize services
	authService, err := services.NewAuthService(cfg.AdminPassword, cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise auth")
	}
	if cfg.AdminPassword == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, admin login disabled")
	}
	historyService := services.NewHistoryService(db)
	directory := services.NewRoomDirectory(redisClient)

	recorder := services.NewRecorder(1024)
	recorder.AddRoomSink(directory)
	recorder.AddMatchSink(directory)
	recorder.AddMatchSink(historyService)
	recorderDone := make(chan struct{})
	go func() {
		recorder.Run(ctx)
		close(recorderDone)
	}()

	// Initialize WebSocket hub
	registry := services.NewRoomRegistry(cfg.Game(), cfg.MaxRooms)
	hub := services.NewHub(ctx, registry, recorder, services.HubConfig{
		SimTickHz:   cfg.SimTickHz,
		BroadcastHz: cfg.BroadcastHz,
		ResetOnEnd:  cfg.ResetOnEnd,
	})
	go hub.Run(ctx)

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(registry, directory)
	historyHandler := handlers.NewHistoryHandler(historyService)
	authHandler := handlers.NewAuthHandler(authService)

	// Setup Gin router
	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, roomHandler, historyHandler, authHandler, hub, authService, cfg.StaticDir)

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	hub.Scheduler().Wait()
	<-recorderDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := redisClient.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis")
	}
	log.Info().Msg("server stopped")
}
