package storage

import (
	"sync"

	"github.com/meng-clb/paste/internal/models"
)

// ClipWatch is the owned handle of one live clip query. Snapshots arrive on C
// in the order the store emits them; C is closed after Close. Close detaches
// the listener and is a safe no-op on repeated calls.
type ClipWatch struct {
	// C delivers full query snapshots, most recent clip first.
	C <-chan []models.Clip

	stop func()
	once sync.Once
}

// NewClipWatch builds a watch handle around a snapshot channel and a stop
// function. Store implementations are expected to close the channel once
// stop has taken effect.
func NewClipWatch(c <-chan []models.Clip, stop func()) *ClipWatch {
	return &ClipWatch{C: c, stop: stop}
}

// Close detaches the listener. Idempotent.
func (w *ClipWatch) Close() {
	w.once.Do(func() {
		if w.stop != nil {
			w.stop()
		}
	})
}

// PresenceWatch is the owned handle of one live device-presence query.
// Same contract as ClipWatch.
type PresenceWatch struct {
	// C delivers full snapshots of the account's device records.
	C <-chan []models.DevicePresence

	stop func()
	once sync.Once
}

// NewPresenceWatch builds a presence watch handle.
func NewPresenceWatch(c <-chan []models.DevicePresence, stop func()) *PresenceWatch {
	return &PresenceWatch{C: c, stop: stop}
}

// Close detaches the listener. Idempotent.
func (w *PresenceWatch) Close() {
	w.once.Do(func() {
		if w.stop != nil {
			w.stop()
		}
	})
}
