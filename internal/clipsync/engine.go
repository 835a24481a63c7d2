// Package clipsync owns the clip synchronization engine: it turns the
// store's live clip feed into a consistent local view and exposes the
// mutation operations the presenter routes everything through.
package clipsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meng-clb/paste/internal/auth"
	"github.com/meng-clb/paste/internal/content"
	"github.com/meng-clb/paste/internal/models"
	"github.com/meng-clb/paste/internal/storage"
)

// Defaults for the engine's paging and windowing knobs. Kept configurable
// so observable paging behavior survives a migration unchanged.
const (
	DefaultHistoryLimit  = 50
	DefaultClearPageSize = 500
)

// Config holds engine settings. Zero values fall back to the defaults.
type Config struct {
	// HistoryLimit bounds the live history window.
	HistoryLimit int
	// ClearPageSize bounds one page of the bulk-delete loop.
	ClearPageSize int
	// DedupWindow is the duplicate-suppression span after an accepted submit.
	DedupWindow time.Duration
	// DeviceLabel is stamped on every clip this engine creates.
	DeviceLabel string
}

func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ClearPageSize <= 0 {
		c.ClearPageSize = DefaultClearPageSize
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = content.DefaultDedupWindow
	}
	if c.DeviceLabel == "" {
		c.DeviceLabel = "cli"
	}
	return c
}

// Engine is the per-identity synchronization state machine.
//
// Idle: no identity, no subscriptions, latest nil and history empty.
// Latest-subscribed: an identity is present; a live query keeps the
// latest pointer fresh for the lifetime of the identity.
// History-active: entered by StartHistory, left by StopHistory or
// sign-out; while active a live query maintains the bounded window.
//
// Latest and History are exposed as read-only snapshots; presenters must
// route all mutation through Submit, DeleteOne and ClearAll.
type Engine struct {
	store      storage.ClipStore
	logger     *slog.Logger
	cfg        Config
	suppressor *content.Suppressor

	mu           sync.RWMutex
	identity     *auth.Identity
	latest       *models.Clip
	history      []models.Clip
	latestWatch  *storage.ClipWatch
	historyWatch *storage.ClipWatch

	updates chan struct{}
}

// New creates an engine in the idle state.
func New(store storage.ClipStore, logger *slog.Logger, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		store:      store,
		logger:     logger,
		cfg:        cfg,
		suppressor: content.NewSuppressor(cfg.DedupWindow),
		updates:    make(chan struct{}, 1),
	}
}

// Latest returns the most recent clip for the identity, or nil.
func (e *Engine) Latest() *models.Clip {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil
	}
	c := *e.latest
	return &c
}

// History returns a copy of the current history window, newest first.
// Empty unless the history subscription is active.
func (e *Engine) History() []models.Clip {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Clip, len(e.history))
	copy(out, e.history)
	return out
}

// Updates returns a coalesced notification channel that fires whenever
// the latest pointer or the history window may have changed.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// SetIdentity drives the identity transitions. A non-nil identity tears
// down any previous session state and opens the latest-clip subscription;
// nil returns the engine to idle. Dedup state never crosses identities.
func (e *Engine) SetIdentity(ctx context.Context, identity *auth.Identity) {
	e.teardown()

	if identity == nil {
		return
	}

	e.mu.Lock()
	e.identity = identity
	e.mu.Unlock()

	watch, err := e.store.WatchLatest(ctx, identity.UID)
	if err != nil {
		// мягкая деградация: указатель latest остаётся пустым,
		// подписка не критична для мутаций
		e.logger.Warn("failed to watch latest clip", "error", err)
		return
	}

	e.mu.Lock()
	e.latestWatch = watch
	e.mu.Unlock()

	go e.consumeLatest(watch)
	e.logger.Info("latest subscription started", "uid", identity.UID)
}

// Close returns the engine to idle, detaching every subscription.
func (e *Engine) Close() {
	e.teardown()
}

// teardown снимает обе подписки, чистит локальное состояние и dedup-окно
func (e *Engine) teardown() {
	e.mu.Lock()
	latestWatch := e.latestWatch
	historyWatch := e.historyWatch
	e.latestWatch = nil
	e.historyWatch = nil
	e.identity = nil
	e.latest = nil
	e.history = nil
	e.mu.Unlock()

	if latestWatch != nil {
		latestWatch.Close()
	}
	if historyWatch != nil {
		historyWatch.Close()
	}
	e.suppressor.Reset()
	e.notifyUpdate()
}

// StartHistory opens the bounded history subscription. Idempotent: calling
// it while already active is a no-op, preventing duplicate event delivery.
func (e *Engine) StartHistory(ctx context.Context) {
	e.mu.Lock()
	if e.historyWatch != nil || e.identity == nil {
		e.mu.Unlock()
		return
	}
	identity := e.identity
	e.mu.Unlock()

	watch, err := e.store.WatchHistory(ctx, identity.UID, e.cfg.HistoryLimit)
	if err != nil {
		// безопасный вид по умолчанию: пустая история
		e.logger.Warn("failed to watch history", "error", err)
		return
	}

	e.mu.Lock()
	if e.historyWatch != nil || e.identity == nil {
		// параллельный старт или сессия уже закрыта
		e.mu.Unlock()
		watch.Close()
		return
	}
	e.historyWatch = watch
	e.mu.Unlock()

	go e.consumeHistory(watch)
	e.logger.Info("history subscription started", "uid", identity.UID, "limit", e.cfg.HistoryLimit)
}

// StopHistory detaches the history subscription and clears the local
// window; nothing is deleted remotely. Double-stop is a safe no-op.
func (e *Engine) StopHistory() {
	e.mu.Lock()
	watch := e.historyWatch
	e.historyWatch = nil
	e.history = nil
	e.mu.Unlock()

	if watch == nil {
		return
	}
	watch.Close()
	e.notifyUpdate()
}

// Submit normalizes, fingerprints and persists text as a new clip.
// It returns once the create is acknowledged; the live subscriptions
// converge independently, so no optimistic insertion happens here.
func (e *Engine) Submit(ctx context.Context, text string) error {
	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()

	if identity == nil {
		return ErrNotSignedIn
	}

	normalized := content.Normalize(text)
	if normalized == "" {
		return ErrEmptyContent
	}

	hash := content.Fingerprint(normalized)
	if e.suppressor.ShouldSkip(hash) {
		return ErrDuplicateSuppressed
	}
	e.suppressor.Record(hash)

	clip, err := e.store.CreateClip(ctx, identity.UID, normalized, hash, e.cfg.DeviceLabel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
	}

	e.logger.Info("clip submitted", "clip_id", clip.ID, "length", len(normalized))
	return nil
}

// DeleteOne removes a single clip. On failure no local state changes:
// any optimistic view the caller applied is the caller's to reconcile.
func (e *Engine) DeleteOne(ctx context.Context, clipID string) error {
	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()

	if identity == nil {
		return ErrNotSignedIn
	}

	if err := e.store.DeleteClip(ctx, identity.UID, clipID); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
	}

	e.logger.Info("clip deleted", "clip_id", clipID)
	return nil
}

// ClearAll deletes the identity's clips in batched pages until a page
// comes back empty or short. The loop exits on the first failed page and
// surfaces the error; it never partially commits and continues. On success
// the dedup state, latest pointer and history window are reset locally.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()

	if identity == nil {
		return ErrNotSignedIn
	}

	pageSize := e.cfg.ClearPageSize
	pages := 0
	for {
		ids, err := e.store.ListClipIDs(ctx, identity.UID, pageSize)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRemoteReadFailed, err)
		}
		if len(ids) == 0 {
			break
		}

		if err := e.store.DeleteClips(ctx, identity.UID, ids); err != nil {
			return fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
		}
		pages++

		if len(ids) < pageSize {
			break
		}
	}

	e.suppressor.Reset()

	e.mu.Lock()
	e.latest = nil
	e.history = nil
	e.mu.Unlock()
	e.notifyUpdate()

	e.logger.Info("history cleared", "uid", identity.UID, "pages", pages)
	return nil
}

// consumeLatest применяет снимки подписки «последний клип»
func (e *Engine) consumeLatest(watch *storage.ClipWatch) {
	for snap := range watch.C {
		var latest *models.Clip
		if len(snap) > 0 {
			c := snap[0]
			latest = &c
		}

		e.mu.Lock()
		// устаревший слушатель: после teardown снимки игнорируются
		if e.latestWatch != watch {
			e.mu.Unlock()
			return
		}
		e.latest = latest
		e.mu.Unlock()

		e.notifyUpdate()
	}
}

// consumeHistory применяет снимки подписки на окно истории
func (e *Engine) consumeHistory(watch *storage.ClipWatch) {
	for snap := range watch.C {
		e.mu.Lock()
		if e.historyWatch != watch {
			e.mu.Unlock()
			return
		}
		e.history = snap
		e.mu.Unlock()

		e.notifyUpdate()
	}
}

// notifyUpdate будит презентер; повторные сигналы схлопываются
func (e *Engine) notifyUpdate() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}
