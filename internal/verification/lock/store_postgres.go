package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txcontext "docgate/pkg/tx"
)

// PostgresStore persists lock states. Pure I/O; the transition rules live in
// the verification gateway, which also serializes writers per document.
//
// Schema:
//
//	CREATE TABLE lock_states (
//	    doc_id          TEXT PRIMARY KEY,
//	    locked          BOOLEAN NOT NULL,
//	    unlocked_at     TIMESTAMPTZ,
//	    unlocked_method TEXT NOT NULL DEFAULT '',
//	    unlocked_by     TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, docID string) (State, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT doc_id, locked, unlocked_at, unlocked_method, unlocked_by
		FROM lock_states
		WHERE doc_id = $1
	`, docID)

	var state State
	var unlockedAt sql.NullTime
	var method string
	err := row.Scan(&state.DocID, &state.SensitiveInputLocked, &unlockedAt, &method, &state.UnlockedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return NewState(docID), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get lock state: %w", err)
	}
	if unlockedAt.Valid {
		t := unlockedAt.Time
		state.UnlockedAt = &t
	}
	state.UnlockedMethod = Method(method)
	return state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state State) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO lock_states (doc_id, locked, unlocked_at, unlocked_method, unlocked_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doc_id) DO UPDATE SET
			locked = EXCLUDED.locked,
			unlocked_at = EXCLUDED.unlocked_at,
			unlocked_method = EXCLUDED.unlocked_method,
			unlocked_by = EXCLUDED.unlocked_by
	`, state.DocID, state.SensitiveInputLocked, state.UnlockedAt, string(state.UnlockedMethod), state.UnlockedBy)
	if err != nil {
		return fmt.Errorf("save lock state: %w", err)
	}
	return nil
}
