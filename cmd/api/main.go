package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/finebank/investquest/internal/config"
	"github.com/finebank/investquest/internal/handlers"
	"github.com/finebank/investquest/internal/questions"
	"github.com/finebank/investquest/internal/repository"
	"github.com/finebank/investquest/internal/service"
	"github.com/finebank/investquest/internal/websocket"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	bank, err := questions.Load()
	if err != nil {
		slog.Error("failed to load question bank", "error", err)
		os.Exit(1)
	}
	slog.Info("question bank loaded", "questions", bank.Len())

	// Game history is a fire-and-forget collaborator: if the database
	// is unreachable the server still runs, purely in memory.
	var historyRepo *repository.HistoryRepository
	if cfg.Database.Enabled {
		db, err := repository.NewDatabase(&cfg.Database)
		if err != nil {
			slog.Warn("game history disabled, database unavailable", "error", err)
		} else {
			historyRepo = repository.NewHistoryRepository(db)
		}
	}

	hub := websocket.NewHub()
	go hub.Run()

	roomService := service.NewRoomService(hub)
	leaderboardService := service.NewLeaderboardService(hub)
	gameService := service.NewGameService(roomService, bank, leaderboardService,
		historyRepo, hub, service.DefaultTiming())
	roomService.SetRoomDeletedHandler(gameService.CancelGame)

	gameHandler := handlers.NewGameHandler(roomService, gameService, leaderboardService, hub)
	httpHandler := handlers.NewHTTPHandler(roomService, leaderboardService, bank)
	wsHandler := handlers.NewWebSocketHandler(hub, gameHandler)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	httpHandler.RegisterRoutes(router)
	wsHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}
