// Package cli wires the engine, presence tracker and identity provider
// together for the command-line front end. It is a consumer of the
// engine's API: all state flows through reactive snapshots and all
// mutation through the engine's operations.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/meng-clb/paste/internal/auth"
	"github.com/meng-clb/paste/internal/clipsync"
	"github.com/meng-clb/paste/internal/config"
	"github.com/meng-clb/paste/internal/device"
	"github.com/meng-clb/paste/internal/presence"
	"github.com/meng-clb/paste/internal/storage/boltkv"
	"github.com/meng-clb/paste/internal/storage/sqlite"
)

// App owns the wired components for one CLI invocation.
type App struct {
	Auth    *auth.Service
	Engine  *clipsync.Engine
	Tracker *presence.Tracker

	deviceID    string
	kv          *boltkv.Storage
	clips       *sqlite.Storage
	unsubscribe func()
}

// NewApp opens the local databases and wires all services. The identity
// subscription drives both the engine and the presence tracker, so a
// restored session is live before the first command runs.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	kv, err := boltkv.New(ctx, cfg.StateDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}

	clips, err := sqlite.New(ctx, cfg.ClipDBPath())
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to open clip db: %w", err)
	}

	deviceID := device.NewManager(kv, logger).GetOrCreateID(ctx)
	authSvc := auth.NewService(ctx, kv, logger)

	engine := clipsync.New(clips, logger, clipsync.Config{
		HistoryLimit:  cfg.HistoryLimit,
		ClearPageSize: cfg.ClearPageSize,
		DedupWindow:   cfg.DedupWindow,
		DeviceLabel:   cfg.DeviceLabel,
	})

	tracker := presence.NewTracker(clips, logger, presence.Config{
		DeviceID:          deviceID,
		DeviceLabel:       cfg.DeviceLabel,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	unsubscribe := authSvc.Subscribe(func(identity *auth.Identity) {
		engine.SetIdentity(ctx, identity)
		tracker.SetIdentity(ctx, identity)
	})

	return &App{
		Auth:        authSvc,
		Engine:      engine,
		Tracker:     tracker,
		deviceID:    deviceID,
		kv:          kv,
		clips:       clips,
		unsubscribe: unsubscribe,
	}, nil
}

// DeviceID returns this device's persistent identifier.
func (a *App) DeviceID() string {
	return a.deviceID
}

// Close tears down subscriptions, the heartbeat and the databases.
func (a *App) Close() error {
	a.unsubscribe()
	a.Tracker.Stop()
	a.Engine.Close()

	clipErr := a.clips.Close()
	kvErr := a.kv.Close()
	if clipErr != nil {
		return clipErr
	}
	return kvErr
}
