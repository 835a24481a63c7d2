package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meng-clb/paste/internal/models"
	"github.com/meng-clb/paste/internal/storage"
)

// UpsertDevice creates or refreshes the presence record for one device.
// The last-seen timestamp is assigned by the store: exactly one record
// per device id, refreshed, never duplicated.
func (s *Storage) UpsertDevice(ctx context.Context, userID string, device *models.DevicePresence) error {
	query := `
		INSERT INTO devices (user_id, device_id, device_label, email, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, device_id) DO UPDATE SET
			device_label = excluded.device_label,
			email = excluded.email,
			last_seen_at = excluded.last_seen_at
	`

	lastSeen := s.now()
	_, err := s.db.ExecContext(ctx, query,
		userID, device.DeviceID, device.DeviceLabel, device.Email, lastSeen.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	notify(&s.mu, s.deviceSignals, userID)
	return nil
}

// WatchDevices opens a live query over the account's device records
func (s *Storage) WatchDevices(ctx context.Context, userID string) (*storage.PresenceWatch, error) {
	sig := registerSignal(&s.mu, s.deviceSignals, userID)
	out := make(chan []models.DevicePresence, 1)
	done := make(chan struct{})

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			unregisterSignal(&s.mu, s.deviceSignals, userID, sig)
			close(done)
		})
	}

	go func() {
		defer close(out)
		for {
			snap, err := s.listDevices(ctx, userID)
			if err != nil {
				snap = []models.DevicePresence{}
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

	return storage.NewPresenceWatch(out, stop), nil
}

// listDevices возвращает все записи присутствия аккаунта
func (s *Storage) listDevices(ctx context.Context, userID string) ([]models.DevicePresence, error) {
	query := `
		SELECT device_id, device_label, email, last_seen_at FROM devices
		WHERE user_id = ?
		ORDER BY last_seen_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select devices: %w", err)
	}
	defer rows.Close()

	devices := []models.DevicePresence{}
	for rows.Next() {
		var device models.DevicePresence
		var lastSeen int64
		if err := rows.Scan(&device.DeviceID, &device.DeviceLabel, &device.Email, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		device.LastSeenAt = time.Unix(0, lastSeen)
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}
