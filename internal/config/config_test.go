package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("STORE", "")
	t.Setenv("JIRA_URL", "")

	cfg := Load()

	assert.Equal(t, "8780", cfg.Port)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 4, cfg.TicketSyncConcurrency)
	assert.False(t, cfg.JiraEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("SITE_URL", "https://serviceinfo.example.org/")
	t.Setenv("JIRA_URL", "https://jira.example.org/")
	t.Setenv("JIRA_USER", "bot")
	t.Setenv("JIRA_TOKEN", "secret")
	t.Setenv("JIRA_TIMEOUT_SECONDS", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("BUNDEBUG", "notabool")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "https://serviceinfo.example.org", cfg.SiteURL)
	assert.Equal(t, "https://jira.example.org", cfg.JiraURL)
	assert.Equal(t, 5*time.Second, cfg.JiraTimeout)
	assert.True(t, cfg.JiraEnabled())
	assert.False(t, cfg.BunDebug)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.AllowedOrigins)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TICKET_SYNC_BATCH", "lots")
	assert.Equal(t, 100, getEnvAsInt("TICKET_SYNC_BATCH", 100))
}
