// Command ticketsync pushes unsynced audit records to Jira once and exits.
// Run it periodically (cron, a Kubernetes CronJob) next to the server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"serviceinfo/internal/config"
	"serviceinfo/internal/database"
	"serviceinfo/internal/jira"
	"serviceinfo/internal/logger"
	"serviceinfo/internal/metrics"
	"serviceinfo/internal/repository/postgres"
	"serviceinfo/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns 1 when the sweep was interrupted and 2 when records failed.
func run() int {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	limit := flag.Int("limit", cfg.TicketSyncBatch, "maximum records to sync")
	flag.Parse()

	if !cfg.JiraEnabled() {
		logr.Fatal("JIRA_URL, JIRA_USER and JIRA_TOKEN must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	tracker := jira.NewClient(jira.Config{
		BaseURL:   cfg.JiraURL,
		User:      cfg.JiraUser,
		Token:     cfg.JiraToken,
		Project:   cfg.JiraProject,
		IssueType: cfg.JiraIssueType,
		Timeout:   cfg.JiraTimeout,
	}, nil)

	svc := services.NewJiraService(postgres.New(db), tracker, cfg.SiteURL, cfg.TicketSyncConcurrency,
		metrics.New(prometheus.NewRegistry()), logr.Component("ticketsync"))

	report, err := svc.SynchronizePending(ctx, *limit)
	if err != nil {
		logr.Error("sweep interrupted", zap.Error(err))
		return 1
	}
	if report.Failed > 0 {
		return 2
	}
	return 0
}
