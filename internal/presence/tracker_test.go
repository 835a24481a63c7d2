package presence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meng-clb/paste/internal/auth"
	"github.com/meng-clb/paste/internal/models"
	"github.com/meng-clb/paste/internal/storage"
)

// fakePresenceStore реализует storage.PresenceStore в памяти
type fakePresenceStore struct {
	mu        sync.Mutex
	upserts   []models.DevicePresence
	upsertErr error
	watchErr  error
	snapCh    chan []models.DevicePresence
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{snapCh: make(chan []models.DevicePresence, 16)}
}

func (f *fakePresenceStore) UpsertDevice(ctx context.Context, userID string, device *models.DevicePresence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *device)
	return nil
}

func (f *fakePresenceStore) WatchDevices(ctx context.Context, userID string) (*storage.PresenceWatch, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return storage.NewPresenceWatch(f.snapCh, func() {}), nil
}

func (f *fakePresenceStore) push(snap []models.DevicePresence) {
	f.snapCh <- snap
}

func (f *fakePresenceStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker(store storage.PresenceStore, interval time.Duration) *Tracker {
	return NewTracker(store, testLogger(), Config{
		DeviceID:          "dev-1",
		DeviceLabel:       "cli",
		HeartbeatInterval: interval,
	})
}

func waitForCount(t *testing.T, tracker *Tracker, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tracker.Count() == want
	}, 2*time.Second, 5*time.Millisecond, "count did not reach %d", want)
}

func TestTracker_IdleReportsOne(t *testing.T) {
	tracker := newTestTracker(newFakePresenceStore(), time.Hour)
	assert.Equal(t, 1, tracker.Count())
}

func TestTracker_SignInWritesPresenceImmediately(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1", Email: "a@b.c"})

	require.Equal(t, 1, store.upsertCount())
	rec := store.upserts[0]
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.Equal(t, "cli", rec.DeviceLabel)
	assert.Equal(t, "a@b.c", rec.Email)
}

func TestTracker_CountFollowsSnapshots(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})

	store.push([]models.DevicePresence{{DeviceID: "dev-1"}, {DeviceID: "dev-2"}, {DeviceID: "dev-3"}})
	waitForCount(t, tracker, 3)

	store.push([]models.DevicePresence{{DeviceID: "dev-1"}, {DeviceID: "dev-2"}})
	waitForCount(t, tracker, 2)
}

func TestTracker_NeverReportsZero(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})

	// пустой удалённый снимок не роняет счётчик ниже 1
	store.push([]models.DevicePresence{{DeviceID: "dev-1"}, {DeviceID: "dev-2"}})
	waitForCount(t, tracker, 2)
	store.push(nil)
	waitForCount(t, tracker, 1)
}

func TestTracker_SignOutResetsToOne(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, time.Hour)

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})
	store.push([]models.DevicePresence{{DeviceID: "a"}, {DeviceID: "b"}, {DeviceID: "c"}, {DeviceID: "d"}})
	waitForCount(t, tracker, 4)

	tracker.SetIdentity(context.Background(), nil)
	assert.Equal(t, 1, tracker.Count())

	// снимок устаревшей подписки не меняет счётчик
	store.push([]models.DevicePresence{{DeviceID: "a"}, {DeviceID: "b"}})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, tracker.Count())
}

func TestTracker_HeartbeatRewritesPresence(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, 20*time.Millisecond)
	defer tracker.Stop()

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})

	require.Eventually(t, func() bool {
		return store.upsertCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTracker_StopCancelsHeartbeat(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, 20*time.Millisecond)

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})
	tracker.Stop()

	base := store.upsertCount()
	time.Sleep(100 * time.Millisecond)
	// оставленный heartbeat грел бы запись разлогиненной сессии
	assert.LessOrEqual(t, store.upsertCount(), base+1)

	// повторный Stop безопасен
	tracker.Stop()
}

func TestTracker_WakeRefreshesImmediately(t *testing.T) {
	store := newFakePresenceStore()
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	ctx := context.Background()
	tracker.SetIdentity(ctx, &auth.Identity{UID: "u1"})
	require.Equal(t, 1, store.upsertCount())

	tracker.Wake(ctx)
	assert.Equal(t, 2, store.upsertCount())

	// Wake без identity — no-op
	tracker.SetIdentity(ctx, nil)
	tracker.Wake(ctx)
	assert.Equal(t, 2, store.upsertCount())
}

func TestTracker_PresenceWriteFailureIsSwallowed(t *testing.T) {
	store := newFakePresenceStore()
	store.upsertErr = errors.New("write refused")
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	// ошибка записи не всплывает и не мешает подписке
	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})
	store.push([]models.DevicePresence{{DeviceID: "a"}, {DeviceID: "b"}})
	waitForCount(t, tracker, 2)
}

func TestTracker_WatchFailureFallsBackToOne(t *testing.T) {
	store := newFakePresenceStore()
	store.watchErr = errors.New("read refused")
	tracker := newTestTracker(store, time.Hour)
	defer tracker.Stop()

	tracker.SetIdentity(context.Background(), &auth.Identity{UID: "u1"})
	assert.Equal(t, 1, tracker.Count())
}
