package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueway/internal/config"
	"blueway/internal/livetrip"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into the test. t.Setenv restores the previous values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "CORS_ORIGINS", "DATABASE_URL", "PG_DSN",
		"NATS_URL", "NATS_SUBJECT_PREFIX", "LOG_NATS_SUBJECTS", "METRICS_ADDR",
		"FRAME_INTERVAL_MS", "POLL_INTERVAL_MS", "SPEED_MULTIPLIER",
		"NOTIFICATION_LIMIT", "HISTORY_LIMIT", "CAPACITY_POLICY",
		"DUPLICATE_TRIP_POLICY", "FARE", "ROUTES_FILE", "DEMO_RIDERS", "TZ",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "blueway", cfg.NATSSubjectPrefix)
	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 1.0, cfg.SpeedMultiplier)
	assert.Equal(t, 50, cfg.NotificationLimit)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, livetrip.CapacityReserved, cfg.CapacityPolicy)
	assert.Equal(t, livetrip.DuplicateOverwrite, cfg.DuplicatePolicy)
	assert.Equal(t, 8.50, cfg.Fare)
	assert.False(t, cfg.DemoRiders)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PG_DSN", "postgres://localhost/blueway")
	t.Setenv("FRAME_INTERVAL_MS", "20")
	t.Setenv("SPEED_MULTIPLIER", "4.5")
	t.Setenv("CAPACITY_POLICY", "boarded")
	t.Setenv("DUPLICATE_TRIP_POLICY", "reject")
	t.Setenv("FARE", "0")
	t.Setenv("DEMO_RIDERS", "yes")
	t.Setenv("LOG_NATS_SUBJECTS", "on")
	t.Setenv("TZ", "America/Sao_Paulo")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://localhost/blueway", cfg.DatabaseURL)
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 4.5, cfg.SpeedMultiplier)
	assert.Equal(t, livetrip.CapacityBoarded, cfg.CapacityPolicy)
	assert.Equal(t, livetrip.DuplicateReject, cfg.DuplicatePolicy)
	assert.Equal(t, 0.0, cfg.Fare)
	assert.True(t, cfg.DemoRiders)
	assert.True(t, cfg.LogNATSSubjects)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://primary/db")
	t.Setenv("PG_DSN", "postgres://secondary/db")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.DatabaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LOG_LEVEL", "loud"},
		{"FRAME_INTERVAL_MS", "0"},
		{"POLL_INTERVAL_MS", "soon"},
		{"SPEED_MULTIPLIER", "-1"},
		{"NOTIFICATION_LIMIT", "0"},
		{"HISTORY_LIMIT", "x"},
		{"CAPACITY_POLICY", "standing"},
		{"DUPLICATE_TRIP_POLICY", "merge"},
		{"FARE", "-2"},
		{"TZ", "Mars/Olympus"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
