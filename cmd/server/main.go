package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/config"
	"serviceinfo/internal/database"
	"serviceinfo/internal/jira"
	"serviceinfo/internal/logger"
	"serviceinfo/internal/metrics"
	"serviceinfo/internal/notify"
	"serviceinfo/internal/repository"
	"serviceinfo/internal/repository/memory"
	"serviceinfo/internal/repository/postgres"
	"serviceinfo/internal/routes"
	"serviceinfo/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const issuer = "serviceinfo"

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	ctx := context.Background()

	var (
		store  repository.Store
		jwtMgr *auth.JWTManager
		err    error
	)
	switch cfg.Store {
	case "memory":
		logr.Warn("using in-memory store; data is lost on exit")
		store = memory.New()
		jwtMgr, err = auth.NewEphemeralJWTManager(issuer)
	default:
		db, dbErr := database.New(cfg)
		if dbErr != nil {
			logr.Fatal("failed to connect to database", zap.Error(dbErr))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db, logr.Component("schema")); err != nil {
			logr.Fatal("failed to prepare schema", zap.Error(err))
		}
		store = postgres.New(db)
		jwtMgr, err = auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, issuer)
	}
	if err != nil {
		logr.Fatal("failed to init jwt manager", zap.Error(err))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logr.Component("notify"))
	rdb, err := notify.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		notifier = notify.NewRedisNotifier(rdb, cfg.NotifyQueue)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var tracker jira.Tracker
	if cfg.JiraEnabled() {
		tracker = jira.NewClient(jira.Config{
			BaseURL:   cfg.JiraURL,
			User:      cfg.JiraUser,
			Token:     cfg.JiraToken,
			Project:   cfg.JiraProject,
			IssueType: cfg.JiraIssueType,
			Timeout:   cfg.JiraTimeout,
		}, nil)
	} else {
		logr.Info("jira not configured; audit records stay unsynced")
	}
	jiraSvc := services.NewJiraService(store, tracker, cfg.SiteURL, cfg.TicketSyncConcurrency, m, logr.Component("jira"))

	deps := routes.Deps{
		Store:    store,
		JWT:      jwtMgr,
		Notifier: notifier,
		Jira:     jiraSvc,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.NewRouter(deps, cfg, logr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Fatal("server forced to shutdown", zap.Error(err))
	}
	// In-flight ticket syncs hold claims; let them commit or release.
	jiraSvc.Wait()
	logr.Info("server exited gracefully")
}
