package clipsync

import "errors"

// Mutation errors. Callers branch with errors.Is; no operation here is
// fatal to the process.
var (
	// ErrNotSignedIn indicates the operation requires a signed-in identity
	ErrNotSignedIn = errors.New("not signed in")

	// ErrEmptyContent indicates the submitted text normalized to nothing
	ErrEmptyContent = errors.New("content is empty")

	// ErrDuplicateSuppressed indicates an identical submission inside the dedup window
	ErrDuplicateSuppressed = errors.New("duplicate content within dedup window")

	// ErrRemoteWriteFailed indicates the backing store rejected a create or delete
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrRemoteReadFailed indicates the backing store rejected a read
	ErrRemoteReadFailed = errors.New("remote read failed")
)
