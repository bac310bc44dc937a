package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/reservation-backend/internal/app"
	"github.com/nekogravitycat/reservation-backend/internal/config"
	"github.com/nekogravitycat/reservation-backend/internal/db"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/cache"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).WithError(err).Fatal("failed to load config")
	}

	log := logger.New(logger.Config{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.IsProduction,
	})
	if cfg.EnvFileErr != nil {
		log.WithError(cfg.EnvFileErr).Debug("no .env file loaded")
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to db")
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.ApplySchema(ctx, pool); err != nil {
			log.WithError(err).Fatal("failed to apply schema")
		}
		log.Info("database schema applied")
	}

	// Redis is optional
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
	}

	container, err := app.NewContainer(app.Config{
		IsProduction:     cfg.IsProduction,
		ProdOrigins:      cfg.ProdOrigins,
		DBPool:           pool,
		Redis:            rdb,
		Logger:           log,
		JWTSecret:        cfg.JWTSecret,
		JWTTTL:           cfg.JWTAccessTokenTTL,
		BcryptCost:       cfg.BcryptCost,
		DisplayTZName:    cfg.DisplayTZName,
		DisplayTZOffset:  cfg.DisplayTZOffset,
		GridDays:         cfg.GridDays,
		BookingRateLimit: cfg.BookingRateLimit,
		SweepInterval:    cfg.SweepInterval,
		SMTP: notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		},
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	// Background sweeper stops with ctx
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		container.Sweeper.Run(ctx)
	}()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	container.Hub.Close()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	<-sweeperDone

	// Handlers have returned; flush queued push and email deliveries.
	container.Dispatcher.Close()
	log.Info("server exited gracefully")
}
