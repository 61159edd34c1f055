package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	NATSURL         string
	FeedSubject     string
	HTTPAddr        string
	MetricsAddr     string
	Location        *time.Location
	LogNATSSubjects bool

	RefreshInterval time.Duration
	ResolveInterval time.Duration
	Lookback        time.Duration
	PreloadHorizon  time.Duration
	Retention       time.Duration

	StartingBalance int
	MinStake        int
	MaxStake        int
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.FeedSubject = getenvDefault("NATS_FEED_SUBJECT", "vehicles.>")
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	var err error
	cfg.RefreshInterval, err = secondsVar("JOURNEYS_REFRESH_INTERVAL_SEC", 60)
	if err != nil {
		return nil, err
	}
	cfg.ResolveInterval, err = secondsVar("RESOLVE_INTERVAL_SEC", 15)
	if err != nil {
		return nil, err
	}
	cfg.Lookback, err = minutesVar("JOURNEYS_LOOKBACK_MINUTES", 180)
	if err != nil {
		return nil, err
	}
	cfg.PreloadHorizon, err = minutesVar("JOURNEYS_PRELOAD_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.Retention, err = minutesVar("RECORD_RETENTION_MINUTES", 240)
	if err != nil {
		return nil, err
	}

	cfg.StartingBalance, err = intVar("STARTING_BALANCE", 100)
	if err != nil {
		return nil, err
	}
	cfg.MinStake, err = intVar("MIN_STAKE", 1)
	if err != nil {
		return nil, err
	}
	cfg.MaxStake, err = intVar("MAX_STAKE", 100)
	if err != nil {
		return nil, err
	}
	if cfg.MinStake <= 0 {
		return nil, fmt.Errorf("MIN_STAKE must be positive, got %d", cfg.MinStake)
	}
	if cfg.MaxStake > 0 && cfg.MaxStake < cfg.MinStake {
		return nil, fmt.Errorf("MAX_STAKE %d is below MIN_STAKE %d", cfg.MaxStake, cfg.MinStake)
	}

	// Debug logging for NATS subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

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

func secondsVar(key string, def int) (time.Duration, error) {
	n, err := intVar(key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return time.Duration(n) * time.Second, nil
}

func minutesVar(key string, def int) (time.Duration, error) {
	n, err := intVar(key, def)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return time.Duration(n) * time.Minute, nil
}

func intVar(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
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

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
