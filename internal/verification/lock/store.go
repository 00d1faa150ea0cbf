package lock

import "context"

type Store interface {
	// Get returns the state for a document, creating the initial locked state
	// on first sight. Lock state exists implicitly for every document.
	Get(ctx context.Context, docID string) (State, error)
	Save(ctx context.Context, state State) error
}
