package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"blueway/internal/livetrip"
)

type Config struct {
	HTTPAddr          string
	LogLevel          slog.Level
	CORSOrigins       []string
	DatabaseURL       string
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	MetricsAddr       string
	FrameInterval     time.Duration
	PollInterval      time.Duration
	SpeedMultiplier   float64
	NotificationLimit int
	HistoryLimit      int
	CapacityPolicy    livetrip.CapacityPolicy
	DuplicatePolicy   livetrip.DuplicatePolicy
	Fare              float64
	RoutesFile        string
	DemoRiders        bool
	Location          *time.Location
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getenvDefault("NATS_SUBJECT_PREFIX", "blueway"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		RoutesFile:        os.Getenv("ROUTES_FILE"),
	}

	switch v := strings.ToLower(getenvDefault("LOG_LEVEL", "info")); v {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn", "warning":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", v)
	}

	for _, o := range strings.Split(getenvDefault("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.FrameInterval, err = millis("FRAME_INTERVAL_MS", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = millis("POLL_INTERVAL_MS", time.Second); err != nil {
		return nil, err
	}

	// Speed multiplier
	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 1.0
	}

	if cfg.NotificationLimit, err = positiveInt("NOTIFICATION_LIMIT", livetrip.DefaultNotificationLimit); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = positiveInt("HISTORY_LIMIT", livetrip.DefaultHistoryLimit); err != nil {
		return nil, err
	}

	switch v := livetrip.CapacityPolicy(strings.ToLower(getenvDefault("CAPACITY_POLICY", string(livetrip.CapacityReserved)))); v {
	case livetrip.CapacityReserved, livetrip.CapacityBoarded:
		cfg.CapacityPolicy = v
	default:
		return nil, fmt.Errorf("invalid CAPACITY_POLICY: %q", v)
	}

	switch v := livetrip.DuplicatePolicy(strings.ToLower(getenvDefault("DUPLICATE_TRIP_POLICY", string(livetrip.DuplicateOverwrite)))); v {
	case livetrip.DuplicateOverwrite, livetrip.DuplicateReject:
		cfg.DuplicatePolicy = v
	default:
		return nil, fmt.Errorf("invalid DUPLICATE_TRIP_POLICY: %q", v)
	}

	// Fare credited per drop-off; zero disables earnings
	if v := os.Getenv("FARE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid FARE: %q", v)
		}
		cfg.Fare = f
	} else {
		cfg.Fare = livetrip.DefaultFare
	}

	cfg.LogNATSSubjects = truthy(os.Getenv("LOG_NATS_SUBJECTS"))
	cfg.DemoRiders = truthy(os.Getenv("DEMO_RIDERS"))

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func millis(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
