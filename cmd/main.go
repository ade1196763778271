package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclocross/stevenscup-app/config"
	"github.com/cyclocross/stevenscup-app/db"
	"github.com/cyclocross/stevenscup-app/handlers"
	"github.com/cyclocross/stevenscup-app/live"
	"github.com/cyclocross/stevenscup-app/repositories"
	"github.com/cyclocross/stevenscup-app/routes"
	"github.com/cyclocross/stevenscup-app/services"
	"github.com/cyclocross/stevenscup-app/storage"
)

// sessionCleanupInterval — период удаления протухших админских сессий.
const sessionCleanupInterval = time.Hour

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Хранилище логотипов (опционально)
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage is not configured, series logo uploads are disabled")
	}

	// Live-хаб и, при необходимости, межпроцессный мост
	hub := live.NewHub(logger)
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if cfg.CrossProcessEvents {
		bridge := live.NewBridge(hub, dbConn, cfg.DatabaseURL, logger)
		go func() {
			if err := bridge.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("live event bridge stopped", slog.Any("error", err))
			}
		}()
		logger.Info("cross-process live events enabled")
	}

	// Инициализация репозиториев
	seriesRepo := repositories.NewPostgresSeriesRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	contestRepo := repositories.NewPostgresContestRepository(dbConn)
	raceRepo := repositories.NewPostgresRaceRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	participationRepo := repositories.NewPostgresParticipationRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	seriesService := services.NewSeriesService(
		dbConn, seriesRepo, eventRepo, contestRepo, raceRepo,
		participantRepo, participationRepo, uploader, hub, logger,
	)
	eventService := services.NewEventService(
		dbConn, eventRepo, seriesRepo, raceRepo, participationRepo, hub, logger,
	)
	contestService := services.NewContestService(
		dbConn, contestRepo, seriesRepo, raceRepo,
		participantRepo, participationRepo, hub, logger,
	)
	raceService := services.NewRaceService(
		dbConn, raceRepo, eventRepo, contestRepo, participationRepo, hub, logger,
	)
	participantService := services.NewParticipantService(
		dbConn, participantRepo, contestRepo, participationRepo, hub, logger,
	)
	participationService := services.NewParticipationService(
		dbConn, participationRepo, participantRepo, raceRepo, hub, logger,
	)
	rankingService := services.NewRankingService(
		seriesRepo, contestRepo, participantRepo, participationRepo, raceRepo,
	)
	importService := services.NewImportService(contestRepo, seriesRepo, eventRepo, nil, logger)
	logger.Info("services initialized")

	// Фоновая чистка протухших сессий
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if _, err := authService.CleanupExpiredSessions(rootCtx); err != nil {
					logger.Error("session cleanup failed", slog.Any("error", err))
				}
			}
		}
	}()

	// Обработчики и маршруты
	router := routes.New(routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, logger),
		Series:        handlers.NewSeriesHandler(seriesService, logger),
		Event:         handlers.NewEventHandler(eventService, logger),
		Contest:       handlers.NewContestHandler(contestService, rankingService, logger),
		Race:          handlers.NewRaceHandler(raceService, participationService, logger),
		Participant:   handlers.NewParticipantHandler(participantService, logger),
		Participation: handlers.NewParticipationHandler(participationService, logger),
		Ranking:       handlers.NewRankingHandler(rankingService, logger),
		Import:        handlers.NewImportHandler(importService, logger),
		Live:          handlers.NewLiveHandler(hub, logger),
	}, authService)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера. WriteTimeout не ставим: SSE-поток
	// живет дольше любого разумного таймаута записи.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancelRoot()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
