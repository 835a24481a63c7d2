package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultDeviceLabel, cfg.DeviceLabel)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 500, cfg.ClearPageSize)
	assert.Equal(t, 2*time.Second, cfg.DedupWindow)
	assert.Equal(t, 60*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLIPSYNC_DATA_DIR", "/tmp/clipsync-test")
	t.Setenv("CLIPSYNC_DEVICE_LABEL", "laptop")
	t.Setenv("CLIPSYNC_HISTORY_LIMIT", "25")
	t.Setenv("CLIPSYNC_CLEAR_PAGE_SIZE", "100")
	t.Setenv("CLIPSYNC_DEDUP_WINDOW", "5s")
	t.Setenv("CLIPSYNC_HEARTBEAT_INTERVAL", "30s")
	t.Setenv("CLIPSYNC_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/clipsync-test", cfg.DataDir)
	assert.Equal(t, "laptop", cfg.DeviceLabel)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, 100, cfg.ClearPageSize)
	assert.Equal(t, 5*time.Second, cfg.DedupWindow)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	assert.Equal(t, "/tmp/clipsync-test/clips.db", cfg.ClipDBPath())
	assert.Equal(t, "/tmp/clipsync-test/state.db", cfg.StateDBPath())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "CLIPSYNC_HISTORY_LIMIT", value: "abc"},
		{name: "CLIPSYNC_HISTORY_LIMIT", value: "-1"},
		{name: "CLIPSYNC_CLEAR_PAGE_SIZE", value: "0"},
		{name: "CLIPSYNC_DEDUP_WINDOW", value: "soon"},
		{name: "CLIPSYNC_HEARTBEAT_INTERVAL", value: "-5s"},
		{name: "CLIPSYNC_LOG_LEVEL", value: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
