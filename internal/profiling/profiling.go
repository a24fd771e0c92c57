// Package profiling starts the optional Pyroscope continuous profiler.
package profiling

import (
	"log/slog"
	"os"
	"strings"

	"github.com/grafana/pyroscope-go"
)

type Config struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
}

// ConfigFromEnv reads the PYROSCOPE_* variables.
func ConfigFromEnv() Config {
	return Config{
		Enabled:           isTrue(getEnv("PYROSCOPE_PROFILING_ENABLED", "false")),
		ServerAddress:     getEnv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040"),
		ApplicationName:   getEnv("PYROSCOPE_APPLICATION_NAME", "blueway"),
		BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
		BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
	}
}

// InitProfiling starts the profiler when cfg enables it. A profiler that
// fails to start is logged and replaced by a noop; profiling never stops the
// service from booting.
func InitProfiling(cfg Config, version string) func() {
	if !cfg.Enabled {
		slog.Debug("pyroscope profiling is disabled")
		return func() {}
	}

	pc := pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags: map[string]string{
			"service": "blueway",
			"version": version,
		},
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPassword != "" {
		pc.BasicAuthUser = cfg.BasicAuthUser
		pc.BasicAuthPassword = cfg.BasicAuthPassword
	}

	profiler, err := pyroscope.Start(pc)
	if err != nil {
		slog.Warn("failed to start pyroscope profiler", "error", err)
		return func() {}
	}
	slog.Info("pyroscope profiling started", "server", cfg.ServerAddress, "application", cfg.ApplicationName)

	return func() {
		if err := profiler.Stop(); err != nil {
			slog.Error("error stopping pyroscope profiler", "error", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
