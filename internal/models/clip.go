package models

import "time"

// Clip представляет одну единицу синхронизированного текста.
// Контент всегда нормализован, Hash всегда соответствует контенту.
type Clip struct {
	ID          string     `json:"id"`           // ID идентификатор записи, назначается хранилищем
	Content     string     `json:"content"`      // Content нормализованный текст (не пустой, <= 20000 символов)
	Hash        string     `json:"hash"`         // Hash отпечаток контента для подавления дубликатов
	DeviceLabel string     `json:"device_label"` // DeviceLabel метка устройства-источника (например, "cli")
	CreatedAt   *time.Time `json:"created_at"`   // CreatedAt серверное время создания, nil пока запись не подтверждена
}
