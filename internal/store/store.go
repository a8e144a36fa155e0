// Package store abstracts the versioned content store holding the shared
// ledger document, and composes it with a short-lived read cache behind the
// Gateway type. All mutual exclusion between writers is achieved through the
// store's compare-and-swap on an opaque version token; the process holds no
// lock over the document.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the document does not exist at the given path.
	ErrNotFound = errors.New("document not found")

	// ErrConflict indicates a write was attempted with a stale version token.
	// Callers recover by re-reading and retrying the whole update cycle.
	ErrConflict = errors.New("version token conflict")
)

// ContentStore is the narrow contract with the external versioned content
// store. Paths are stable logical names, one per ledger document. Writes are
// all-or-nothing at whole-document granularity.
//
// A Write with expectedToken == "" is only valid for initial creation;
// subsequent writes must carry the token obtained from the most recent Read
// or they fail with ErrConflict. Tokens are opaque to callers.
type ContentStore interface {
	Read(ctx context.Context, path string) (content, token string, err error)
	Write(ctx context.Context, path, content, expectedToken string) (newToken string, err error)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error indicates a stale version token.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
