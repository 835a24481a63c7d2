// Package device owns the process-wide persistent device identifier.
// The id is created once, stored under a fixed key in the injected
// key-value store and reused across sessions.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meng-clb/paste/internal/storage"
)

// StorageKey is the fixed key the device id is persisted under.
// Raw string value, no expiry, no migration format.
const StorageKey = "device_id"

// Manager hands out the device identifier backed by a KV store.
type Manager struct {
	kv     storage.KVStore
	logger *slog.Logger

	mu     sync.Mutex
	cached string
}

// NewManager creates a device identity manager on top of the given KV store.
func NewManager(kv storage.KVStore, logger *slog.Logger) *Manager {
	return &Manager{kv: kv, logger: logger}
}

// GetOrCreateID returns the persistent device id, generating and persisting
// one on first use. When the KV store is unavailable it degrades to a fresh
// id per call: a known degradation, not a fatal error.
func (m *Manager) GetOrCreateID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached
	}

	existing, err := m.kv.Get(ctx, StorageKey)
	if err == nil && existing != "" {
		m.cached = existing
		return existing
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		// хранилище недоступно, выдаём одноразовый id без кеширования
		m.logger.Warn("device id storage unavailable, using ephemeral id", "error", err)
		return GenerateID()
	}

	created := GenerateID()
	if err := m.kv.Put(ctx, StorageKey, created); err != nil {
		m.logger.Warn("failed to persist device id", "error", err)
		return created
	}

	m.cached = created
	m.logger.Info("generated new device id", "device_id", created)
	return created
}

// GenerateID returns a new random device identifier. Prefers a UUID;
// falls back to a time+random composite string.
func GenerateID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("dev-%s-%s",
		strconv.FormatInt(time.Now().UnixMilli(), 36),
		strconv.FormatInt(rand.Int63(), 36))
}
