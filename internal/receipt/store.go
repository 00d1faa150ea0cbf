package receipt

import "context"

// Store is interface-driven to keep the domain logic testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.
type Store interface {
	Save(ctx context.Context, r Receipt) error
	FindByID(ctx context.Context, id string) (Receipt, error)
	// Latest returns the newest receipt for a document; superseding receipts
	// are new rows, so the newest row is the current identity.
	Latest(ctx context.Context, docID string) (Receipt, error)
	ListByDoc(ctx context.Context, docID string) ([]Receipt, error)
}
