package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meng-clb/paste/internal/models"
	"github.com/meng-clb/paste/internal/storage"
)

// CreateClip persists a new clip and returns it with the store-assigned
// id and creation time filled in
func (s *Storage) CreateClip(ctx context.Context, userID, content, hash, deviceLabel string) (*models.Clip, error) {
	clip := &models.Clip{
		ID:          uuid.NewString(),
		Content:     content,
		Hash:        hash,
		DeviceLabel: deviceLabel,
	}
	createdAt := s.now()

	query := `
		INSERT INTO clips (id, user_id, content, hash, device_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		clip.ID, userID, clip.Content, clip.Hash, clip.DeviceLabel, createdAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert clip: %w", err)
	}

	clip.CreatedAt = &createdAt
	notify(&s.mu, s.clipSignals, userID)
	return clip, nil
}

// DeleteClip removes one clip scoped to the user.
// Deleting a clip that no longer exists is not an error.
func (s *Storage) DeleteClip(ctx context.Context, userID, clipID string) error {
	query := `DELETE FROM clips WHERE user_id = ? AND id = ?`

	if _, err := s.db.ExecContext(ctx, query, userID, clipID); err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}

	notify(&s.mu, s.clipSignals, userID)
	return nil
}

// ListClipIDs returns up to limit clip ids for the user, oldest first
func (s *Storage) ListClipIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	query := `
		SELECT id FROM clips
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clip ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan clip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clip ids: %w", err)
	}

	return ids, nil
}

// DeleteClips removes the given clips for the user in one batch
func (s *Storage) DeleteClips(ctx context.Context, userID string, clipIDs []string) error {
	if len(clipIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(clipIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`DELETE FROM clips WHERE user_id = ? AND id IN (%s)`, placeholders)

	args := make([]any, 0, len(clipIDs)+1)
	args = append(args, userID)
	for _, id := range clipIDs {
		args = append(args, id)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to batch delete clips: %w", err)
	}

	notify(&s.mu, s.clipSignals, userID)
	return nil
}

// WatchLatest opens a live query over the single most recent clip
func (s *Storage) WatchLatest(ctx context.Context, userID string) (*storage.ClipWatch, error) {
	return s.watchClips(ctx, userID, 1)
}

// WatchHistory opens a live query over the limit most recent clips
func (s *Storage) WatchHistory(ctx context.Context, userID string, limit int) (*storage.ClipWatch, error) {
	return s.watchClips(ctx, userID, limit)
}

// watchClips запускает live-запрос: начальный снимок сразу, затем новый
// снимок после каждой мутации клипов пользователя. Ошибка чтения мягко
// деградирует до пустого снимка.
func (s *Storage) watchClips(ctx context.Context, userID string, limit int) (*storage.ClipWatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("watch limit must be positive, got %d", limit)
	}

	sig := registerSignal(&s.mu, s.clipSignals, userID)
	out := make(chan []models.Clip, 1)
	done := make(chan struct{})

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			unregisterSignal(&s.mu, s.clipSignals, userID, sig)
			close(done)
		})
	}

	go func() {
		defer close(out)
		for {
			snap, err := s.listClips(ctx, userID, limit)
			if err != nil {
				snap = []models.Clip{}
			}

			select {
			case out <- snap:
			case <-done:
				return
			case <-ctx.Done():
				return
			}

			select {
			case <-sig:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return storage.NewClipWatch(out, stop), nil
}

// listClips возвращает limit последних клипов пользователя, новые первыми
func (s *Storage) listClips(ctx context.Context, userID string, limit int) ([]models.Clip, error) {
	query := `
		SELECT id, content, hash, device_label, created_at FROM clips
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select clips: %w", err)
	}
	defer rows.Close()

	clips := []models.Clip{}
	for rows.Next() {
		var clip models.Clip
		var createdAt int64
		if err := rows.Scan(&clip.ID, &clip.Content, &clip.Hash, &clip.DeviceLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		ts := time.Unix(0, createdAt)
		clip.CreatedAt = &ts
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clips: %w", err)
	}

	return clips, nil
}
