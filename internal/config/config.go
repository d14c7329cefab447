package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        // dev, prod
	HTTPPort        string        // default 8080
	ShutdownTimeout time.Duration // graceful shutdown timeout
	LogLevel        string        // debug, info, warn, error
	LogFormat       string        // json or console

	// Scheduling policy. Booking bounds apply to directly requested
	// appointments; the search bound only caps availability searches.
	BookingMinDuration time.Duration
	BookingMaxDuration time.Duration
	SearchMaxDuration  time.Duration
	OpenHour           int // first bookable hour of the day
	CloseHour          int // appointments must end by this hour
	MaxAlternatives    int // alternative slots attached to a rejected booking
	SearchHorizonDays  int // how far ahead slot search will look

	// No-show sweeper.
	SweepInterval time.Duration
	NoShowGrace   time.Duration // how long past its end a scheduled appointment may sit before it becomes a no-show
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),

		BookingMinDuration: getDuration("BOOKING_MIN_DURATION", 15*time.Minute),
		BookingMaxDuration: getDuration("BOOKING_MAX_DURATION", 180*time.Minute),
		SearchMaxDuration:  getDuration("SEARCH_MAX_DURATION", 8*time.Hour),
		OpenHour:           getInt("OPEN_HOUR", 8),
		CloseHour:          getInt("CLOSE_HOUR", 17),
		MaxAlternatives:    getInt("MAX_ALTERNATIVES", 3),
		SearchHorizonDays:  getInt("SEARCH_HORIZON_DAYS", 30),

		SweepInterval: getDuration("SWEEP_INTERVAL", time.Minute),
		NoShowGrace:   getDuration("NO_SHOW_GRACE", 30*time.Minute),
	}

	if cfg.BookingMinDuration <= 0 {
		return Config{}, fmt.Errorf("BOOKING_MIN_DURATION must be positive, got %s", cfg.BookingMinDuration)
	}
	if cfg.BookingMaxDuration < cfg.BookingMinDuration {
		return Config{}, fmt.Errorf("BOOKING_MAX_DURATION %s is below BOOKING_MIN_DURATION %s",
			cfg.BookingMaxDuration, cfg.BookingMinDuration)
	}
	if cfg.SearchMaxDuration < cfg.BookingMaxDuration {
		return Config{}, fmt.Errorf("SEARCH_MAX_DURATION %s is below BOOKING_MAX_DURATION %s",
			cfg.SearchMaxDuration, cfg.BookingMaxDuration)
	}
	if cfg.OpenHour < 0 || cfg.CloseHour > 24 || cfg.OpenHour >= cfg.CloseHour {
		return Config{}, fmt.Errorf("invalid business hours %d..%d", cfg.OpenHour, cfg.CloseHour)
	}
	if cfg.MaxAlternatives < 0 {
		return Config{}, fmt.Errorf("MAX_ALTERNATIVES must not be negative, got %d", cfg.MaxAlternatives)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		fmt.Fprintf(os.Stderr, "invalid integer for %s=%q, using default %d\n", key, v, def)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}
