package profiling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"blueway/internal/profiling"
)

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		enabled string
		want    bool
	}{
		{"unset", "", false},
		{"true", "true", true},
		{"one", "1", true},
		{"upper yes", " YES ", true},
		{"garbage", "maybe", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PYROSCOPE_PROFILING_ENABLED", tc.enabled)
			t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")
			t.Setenv("PYROSCOPE_APPLICATION_NAME", "")

			cfg := profiling.ConfigFromEnv()
			assert.Equal(t, tc.want, cfg.Enabled)
			assert.Equal(t, "http://localhost:4040", cfg.ServerAddress)
			assert.Equal(t, "blueway", cfg.ApplicationName)
		})
	}
}

func TestInitProfiling_DisabledIsNoop(t *testing.T) {
	stop := profiling.InitProfiling(profiling.Config{}, "test")
	assert.NotPanics(t, stop)
}
