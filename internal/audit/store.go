package audit

import "context"

// Store persists audit entries. Append-only by contract: implementations must
// not expose mutation or deletion.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// History returns a finite, oldest-first sequence for one document.
	// Callers re-query for a fresh view; the slice is never a live stream.
	History(ctx context.Context, docID string) ([]Entry, error)
}
