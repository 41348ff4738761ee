package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kanileenas/portfolio/internal/contact"
	"github.com/kanileenas/portfolio/internal/view"
	"github.com/kanileenas/portfolio/internal/visitors"
)

// Config is read from the environment; a .env file in the working
// directory is loaded first.
type Config struct {
	Port             string
	LogLevel         string
	TemplatesGlob    string
	ContentFile      string
	ContactDelay     time.Duration
	ViewTTL          time.Duration
	ViewLimit        int
	TrackVisitors    bool
	VisitorDSN       string
	VisitorRetention time.Duration
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:          envOr("PORT", "8080"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		TemplatesGlob: envOr("TEMPLATES_GLOB", "templates/*"),
		ContentFile:   os.Getenv("CONTENT_FILE"),
		VisitorDSN:    envOr("VISITOR_DSN", visitors.MemoryDSN),
	}

	var err error
	if cfg.ContactDelay, err = envDuration("CONTACT_DELAY", contact.DefaultDelay); err != nil {
		return Config{}, err
	}
	if cfg.ViewTTL, err = envDuration("VIEW_TTL", view.DefaultTTL); err != nil {
		return Config{}, err
	}
	if cfg.ViewLimit, err = envInt("VIEW_LIMIT", view.DefaultLimit); err != nil {
		return Config{}, err
	}
	if cfg.VisitorRetention, err = envDuration("VISITOR_RETENTION", 365*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.TrackVisitors, err = envBool("TRACK_VISITORS", true); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s: must not be negative", key)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s: must be positive", key)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
