package models

import "time"

// DevicePresence представляет запись о живом устройстве аккаунта.
// Ровно одна запись на device id; обновляется, никогда не дублируется.
type DevicePresence struct {
	DeviceID    string    `json:"device_id"`    // DeviceID локально сгенерированный идентификатор устройства
	DeviceLabel string    `json:"device_label"` // DeviceLabel метка устройства (например, "cli")
	Email       string    `json:"email"`        // Email почта аккаунта, может быть пустой
	LastSeenAt  time.Time `json:"last_seen_at"` // LastSeenAt серверное время последнего heartbeat
}
