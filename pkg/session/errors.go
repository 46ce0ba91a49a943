package session

import (
	"errors"
	"fmt"
)

// ErrSessionExpired reports a 401/403 from the save endpoint: the user's
// login has lapsed and re-authentication is needed. Local edits are kept.
var ErrSessionExpired = errors.New("session expired; please log in again")

// ErrBusy reports that the same operation is already in flight; duplicate
// triggers are refused rather than queued.
var ErrBusy = errors.New("operation already in progress")

// ErrNavigationCancelled reports that the user declined to discard unsaved
// changes.
var ErrNavigationCancelled = errors.New("navigation cancelled")

// ConflictError reports an optimistic-concurrency failure on save: someone
// else saved a newer version. The server's copy is carried along so the
// user can reconcile by hand; in-editor content is never overwritten.
type ConflictError struct {
	Message         string
	ConflictContent string
	NewVersion      int
}

func (e *ConflictError) Error() string {
	return "edit conflict: " + e.Message
}

// NetworkError wraps a failed server round-trip. It is surfaced as a
// dismissable banner suggesting a retry and never corrupts editor state.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
