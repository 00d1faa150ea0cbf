package code

import "context"

// Store holds at most one code record per document; Put replaces any prior
// record, which is how issuing a fresh code invalidates the old one.
type Store interface {
	// Get returns (nil, nil) when the document has no code record.
	Get(ctx context.Context, docID string) (*Record, error)
	Put(ctx context.Context, record *Record) error
}
