package content

import (
	"sync"
	"time"
)

// DefaultDedupWindow is the span after an accepted submission during which
// an identical fingerprint is suppressed.
const DefaultDedupWindow = 2 * time.Second

// ShouldSkipDuplicate reports whether a submission with fingerprint next
// should be rejected as a duplicate of the previous accepted one.
// It skips only when a prior acceptance exists, its fingerprint matches and
// no more than window has elapsed since it was accepted.
func ShouldSkipDuplicate(last, next string, lastAt, now time.Time, window time.Duration) bool {
	if last == "" || lastAt.IsZero() {
		return false
	}
	return last == next && now.Sub(lastAt) <= window
}

// Suppressor keeps the last accepted fingerprint and its acceptance time.
// The state is private to one engine instance and must be reset on sign-out
// so one account's submission timing does not leak into another's session.
type Suppressor struct {
	mu     sync.Mutex
	window time.Duration
	last   string
	lastAt time.Time
	now    func() time.Time
}

// NewSuppressor creates a suppressor with the given window.
// A non-positive window falls back to DefaultDedupWindow.
func NewSuppressor(window time.Duration) *Suppressor {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Suppressor{window: window, now: time.Now}
}

// ShouldSkip reports whether a submission with the given fingerprint falls
// inside the dedup window of the last accepted one.
func (s *Suppressor) ShouldSkip(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShouldSkipDuplicate(s.last, fingerprint, s.lastAt, s.now(), s.window)
}

// Record stores an accepted fingerprint. It must be called only for
// submissions that were actually accepted, never for rejected ones.
func (s *Suppressor) Record(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = fingerprint
	s.lastAt = s.now()
}

// Reset clears the suppression state.
func (s *Suppressor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = ""
	s.lastAt = time.Time{}
}
