package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"focusvillage/backend/internal/coach"
	"focusvillage/backend/internal/config"
	"focusvillage/backend/internal/handler"
	"focusvillage/backend/internal/logging"
	"focusvillage/backend/internal/router"
	"focusvillage/backend/internal/service"
	"focusvillage/backend/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogPath)
	defer func() { _ = log.Sync() }()

	database, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalw("open database", "error", err)
	}
	defer database.Close()

	if err := store.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalw("run migrations", "error", err)
	}

	remoteDocs := store.NewSQLiteStore(database)
	guestDocs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalw("open guest store", "error", err)
	}

	users := store.NewUserStore(database)
	authService := service.NewAuthService(users, remoteDocs, cfg.JWTSecret, cfg.TokenTTL)
	sessions := service.NewSessions(remoteDocs, guestDocs, service.SessionsConfig{
		SuppressWindow: cfg.SyncSuppressWindow,
		FlushDebounce:  cfg.FlushDebounce,
	}, log)
	coachService := coach.New(cfg.GeminiAPIKey, cfg.GeminiModel)

	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewTimerHandler(sessions),
		handler.NewTaskHandler(sessions),
		handler.NewProgressionHandler(sessions),
		handler.NewCoachHandler(sessions, coachService),
		cfg.CORSOrigins,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("backend listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("run server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server shutdown", "error", err)
	}

	// Flush pending debounced task writes before exit.
	sessions.Close()
}
