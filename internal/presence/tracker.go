// Package presence keeps this device's liveness record fresh and publishes
// a connected-device count for the signed-in account.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meng-clb/paste/internal/auth"
	"github.com/meng-clb/paste/internal/models"
	"github.com/meng-clb/paste/internal/storage"
)

// DefaultHeartbeatInterval is how often the presence record is rewritten
// while signed in.
const DefaultHeartbeatInterval = 60 * time.Second

// Config holds tracker settings.
type Config struct {
	// DeviceID is this device's persistent identifier.
	DeviceID string
	// DeviceLabel classifies the device origin, e.g. "cli".
	DeviceLabel string
	// HeartbeatInterval overrides DefaultHeartbeatInterval when positive.
	HeartbeatInterval time.Duration
}

// Tracker maintains the device presence record on a heartbeat cadence and
// derives the connected-device count from a live query over the account's
// device set. The count never drops below 1: the local device is implicitly
// always connected to itself even if the remote read lags.
type Tracker struct {
	store     storage.PresenceStore
	logger    *slog.Logger
	deviceID  string
	label     string
	heartbeat time.Duration

	mu       sync.Mutex
	identity *auth.Identity
	count    int
	watch    *storage.PresenceWatch
	cancel   context.CancelFunc
	updates  chan struct{}
}

// NewTracker creates a presence tracker. It stays idle (count 1) until an
// identity is set.
func NewTracker(store storage.PresenceStore, logger *slog.Logger, cfg Config) *Tracker {
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Tracker{
		store:     store,
		logger:    logger,
		deviceID:  cfg.DeviceID,
		label:     cfg.DeviceLabel,
		heartbeat: interval,
		count:     1,
		updates:   make(chan struct{}, 1),
	}
}

// Count returns the current connected-device count. Always at least 1.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Updates returns a coalesced notification channel that fires whenever
// the published count may have changed.
func (t *Tracker) Updates() <-chan struct{} {
	return t.updates
}

// SetIdentity reacts to an identity change. A non-nil identity writes the
// presence record immediately, starts the heartbeat and subscribes to the
// account's device set. A nil identity tears everything down and resets
// the count to 1.
func (t *Tracker) SetIdentity(ctx context.Context, identity *auth.Identity) {
	t.teardown()

	if identity == nil {
		t.setCount(1)
		return
	}

	// контекст сессии: отменяется при смене identity или Stop
	sessionCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.identity = identity
	t.cancel = cancel
	t.mu.Unlock()

	// немедленная запись присутствия, best-effort
	t.syncPresence(ctx, identity)

	watch, err := t.store.WatchDevices(sessionCtx, identity.UID)
	if err != nil {
		// подписка не критична: остаёмся на полу в 1 устройство
		t.logger.Warn("failed to watch devices", "error", err)
	} else {
		t.mu.Lock()
		t.watch = watch
		t.mu.Unlock()
		go t.consume(watch)
	}

	go t.runHeartbeat(sessionCtx, identity)
}

// Wake rewrites the presence record immediately. The caller invokes it on
// regained foreground visibility, covering a long-suspended heartbeat timer.
func (t *Tracker) Wake(ctx context.Context) {
	t.mu.Lock()
	identity := t.identity
	t.mu.Unlock()

	if identity == nil {
		return
	}
	t.syncPresence(ctx, identity)
}

// Stop tears down the subscription and heartbeat. The count resets to 1.
func (t *Tracker) Stop() {
	t.teardown()
	t.setCount(1)
}

// teardown отключает подписку и heartbeat текущей сессии
func (t *Tracker) teardown() {
	t.mu.Lock()
	watch := t.watch
	cancel := t.cancel
	t.watch = nil
	t.cancel = nil
	t.identity = nil
	t.mu.Unlock()

	if watch != nil {
		watch.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// consume применяет снимки набора устройств, пока подписка жива
func (t *Tracker) consume(watch *storage.PresenceWatch) {
	for snap := range watch.C {
		count := len(snap)
		if count < 1 {
			count = 1
		}

		t.mu.Lock()
		// защита от устаревшего слушателя: после teardown снимки
		// не должны менять опубликованный счётчик
		if t.watch != watch {
			t.mu.Unlock()
			return
		}
		t.count = count
		t.mu.Unlock()

		select {
		case t.updates <- struct{}{}:
		default:
		}
	}
}

// runHeartbeat перезаписывает запись присутствия с фиксированным интервалом
func (t *Tracker) runHeartbeat(ctx context.Context, identity *auth.Identity) {
	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.syncPresence(ctx, identity)
		case <-ctx.Done():
			return
		}
	}
}

// syncPresence пишет запись присутствия; ошибка записи проглатывается,
// сигнал живости не является критичным для корректности
func (t *Tracker) syncPresence(ctx context.Context, identity *auth.Identity) {
	record := &models.DevicePresence{
		DeviceID:    t.deviceID,
		DeviceLabel: t.label,
		Email:       identity.Email,
	}
	if err := t.store.UpsertDevice(ctx, identity.UID, record); err != nil {
		t.logger.Warn("failed to write presence record", "error", err)
	}
}

// setCount публикует новое значение счётчика
func (t *Tracker) setCount(count int) {
	t.mu.Lock()
	t.count = count
	t.mu.Unlock()

	select {
	case t.updates <- struct{}{}:
	default:
	}
}
