package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, SourceStatic, cfg.Source)
	assert.Equal(t, "local", cfg.UserID)
	assert.Equal(t, 100.0, cfg.Deck.SwipeThreshold)
	assert.Equal(t, 100.0, cfg.Deck.AffinityRange)
	assert.Equal(t, 300*time.Millisecond, cfg.Deck.TransitionDelay)
	assert.True(t, cfg.Deck.ClearLiked())
	assert.Equal(t, "handoff", cfg.RabbitMQ.HandoffRoutingKey)
	assert.Equal(t, "preference", cfg.RabbitMQ.PreferenceRoutingKey)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("WATCHWISE_DB_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, `
source: postgres
database:
  host: db
  user: watchwise
  password: ${WATCHWISE_DB_PASSWORD}
  dbname: watchwise
deck:
  swipe_threshold: 80
  transition_delay: 150ms
  clear_liked_on_reset: false
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "host=db port=5432 user=watchwise password=s3cret dbname=watchwise sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 80.0, cfg.Deck.SwipeThreshold)
	assert.Equal(t, 150*time.Millisecond, cfg.Deck.TransitionDelay)
	assert.False(t, cfg.Deck.ClearLiked())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"feed without url", "source: feed\n", "feed.base_url"},
		{"postgres without host", "source: postgres\n", "database.host"},
		{"unknown source", "source: carrier-pigeon\n", "unknown source"},
		{"negative threshold", "deck:\n  swipe_threshold: -1\n", "positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
