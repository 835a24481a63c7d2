// Package config собирает настройки приложения из окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/meng-clb/paste/internal/clipsync"
	"github.com/meng-clb/paste/internal/presence"
)

// Defaults
const (
	DefaultDeviceLabel = "cli"
	DefaultDataDir     = ".clipsync"
)

// Config holds all runtime settings. Every field has a default; env
// variables with the CLIPSYNC_ prefix override them.
type Config struct {
	// DataDir holds the local databases.
	DataDir string
	// DeviceLabel classifies this device on submitted clips and presence records.
	DeviceLabel string
	// HistoryLimit bounds the live history window.
	HistoryLimit int
	// ClearPageSize bounds one page of the bulk-delete loop.
	ClearPageSize int
	// DedupWindow suppresses identical submissions inside this span.
	DedupWindow time.Duration
	// HeartbeatInterval is the presence refresh cadence.
	HeartbeatInterval time.Duration
	// LogLevel is one of debug, info, warn, error.
	LogLevel slog.Level
}

// ClipDBPath is the sqlite database location.
func (c *Config) ClipDBPath() string {
	return filepath.Join(c.DataDir, "clips.db")
}

// StateDBPath is the boltdb location for device id and session state.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; a missing file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:           DefaultDataDir,
		DeviceLabel:       DefaultDeviceLabel,
		HistoryLimit:      clipsync.DefaultHistoryLimit,
		ClearPageSize:     clipsync.DefaultClearPageSize,
		DedupWindow:       2 * time.Second,
		HeartbeatInterval: presence.DefaultHeartbeatInterval,
		LogLevel:          slog.LevelInfo,
	}

	if v := os.Getenv("CLIPSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CLIPSYNC_DEVICE_LABEL"); v != "" {
		cfg.DeviceLabel = v
	}

	var err error
	if cfg.HistoryLimit, err = intEnv("CLIPSYNC_HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return nil, err
	}
	if cfg.ClearPageSize, err = intEnv("CLIPSYNC_CLEAR_PAGE_SIZE", cfg.ClearPageSize); err != nil {
		return nil, err
	}
	if cfg.DedupWindow, err = durationEnv("CLIPSYNC_DEDUP_WINDOW", cfg.DedupWindow); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = durationEnv("CLIPSYNC_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return nil, err
	}

	if v := os.Getenv("CLIPSYNC_LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid CLIPSYNC_LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return n, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return d, nil
}
