package storage

import (
	"context"

	"github.com/meng-clb/paste/internal/models"
)

//go:generate moq -out clip_mock.go . ClipStore

// ClipStore is the document-store capability the sync engine is built on:
// ordered, limited live queries over a per-user clip collection plus create,
// delete and paged bulk-delete operations. The store assigns clip ids and
// creation timestamps.
type ClipStore interface {
	// CreateClip persists a new clip for the user and returns it with the
	// store-assigned id and creation time filled in.
	CreateClip(ctx context.Context, userID, content, hash, deviceLabel string) (*models.Clip, error)

	// DeleteClip removes one clip scoped to the user.
	// Deleting a clip that no longer exists is not an error.
	DeleteClip(ctx context.Context, userID, clipID string) error

	// ListClipIDs returns up to limit clip ids for the user, oldest first.
	// Used by the bulk-delete paging loop.
	ListClipIDs(ctx context.Context, userID string, limit int) ([]string, error)

	// DeleteClips removes the given clips for the user in one batch.
	DeleteClips(ctx context.Context, userID string, clipIDs []string) error

	// WatchLatest opens a live query over the single most recent clip.
	// Snapshots hold at most one element.
	WatchLatest(ctx context.Context, userID string) (*ClipWatch, error)

	// WatchHistory opens a live query over the limit most recent clips,
	// newest first.
	WatchHistory(ctx context.Context, userID string, limit int) (*ClipWatch, error)
}

//go:generate moq -out presence_mock.go . PresenceStore

// PresenceStore keeps per-device liveness records for an account.
type PresenceStore interface {
	// UpsertDevice creates or refreshes the presence record for one device.
	// The store assigns the last-seen timestamp.
	UpsertDevice(ctx context.Context, userID string, device *models.DevicePresence) error

	// WatchDevices opens a live query over the account's device records.
	WatchDevices(ctx context.Context, userID string) (*PresenceWatch, error)
}
