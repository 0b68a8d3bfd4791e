package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Log     LogConfig
	Render  RenderConfig
	Wayland WaylandConfig
	Cache   CacheConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // console or json
}

// RenderConfig holds rendering configuration
type RenderConfig struct {
	Debounce time.Duration // minimum time between two redraws of one output
	Scaler   string        // interpolator used to resize images
	Profile  string        // path of the optional YAML profile
}

// WaylandConfig holds compositor connection settings
type WaylandConfig struct {
	Display    string
	RuntimeDir string
	Namespace  string // layer-surface namespace
}

// CacheConfig holds Redis frame cache configuration
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string

	// FlushOnStart drops every cached frame before rendering (--flush-cache)
	FlushOnStart bool
}

// Enabled reports whether a frame cache was configured
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("PAPER_LOG_LEVEL", "info"),
			Format: getEnv("PAPER_LOG_FORMAT", "console"),
		},
		Render: RenderConfig{
			Debounce: getEnvAsDuration("PAPER_DEBOUNCE", 300*time.Millisecond),
			Scaler:   getEnv("PAPER_SCALER", "approx-bilinear"),
			Profile:  getEnv("PAPER_PROFILE", defaultProfilePath()),
		},
		Wayland: WaylandConfig{
			Display:    getEnv("WAYLAND_DISPLAY", "wayland-0"),
			RuntimeDir: getEnv("XDG_RUNTIME_DIR", ""),
			Namespace:  getEnv("PAPER_NAMESPACE", "wallpaper"),
		},
		Cache: CacheConfig{
			Addr:     getEnv("PAPER_CACHE_REDIS_ADDR", ""),
			Password: getEnv("PAPER_CACHE_REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("PAPER_CACHE_REDIS_DB", 0),
			TTL:      getEnvAsDuration("PAPER_CACHE_TTL", 24*time.Hour),
			Prefix:   getEnv("PAPER_CACHE_PREFIX", "paper"),
		},
	}

	if cfg.Render.Debounce < 0 {
		return nil, fmt.Errorf("PAPER_DEBOUNCE must not be negative, got %s", cfg.Render.Debounce)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return nil, fmt.Errorf("PAPER_LOG_FORMAT must be console or json, got %q", cfg.Log.Format)
	}

	return cfg, nil
}

// SocketPath resolves the compositor socket the same way libwayland does
func (w WaylandConfig) SocketPath() (string, error) {
	if filepath.IsAbs(w.Display) {
		return w.Display, nil
	}
	if w.RuntimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(w.RuntimeDir, w.Display), nil
}

func defaultProfilePath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "paper", "paper.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "paper", "paper.yaml")
	}
	return ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("250ms") and bare milliseconds ("250")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
