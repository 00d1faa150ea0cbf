package receipt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docgate/pkg/sentinel"
)

// PostgresStore persists receipts. Pure I/O; canonicalization and hashing
// belong in the service.
//
// Schema:
//
//	CREATE TABLE receipts (
//	    id              UUID PRIMARY KEY,
//	    doc_id          TEXT NOT NULL,
//	    canonical_bytes BYTEA NOT NULL,
//	    hash            TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX receipts_doc_id_created_at_idx ON receipts (doc_id, created_at);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, r Receipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, doc_id, canonical_bytes, hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.DocID, r.CanonicalBytes, r.Hash, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, doc_id, canonical_bytes, hash, created_at
		FROM receipts
		WHERE id = $1
	`, id)
	return scanReceipt(row)
}

func (s *PostgresStore) Latest(ctx context.Context, docID string) (Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, doc_id, canonical_bytes, hash, created_at
		FROM receipts
		WHERE doc_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, docID)
	return scanReceipt(row)
}

func (s *PostgresStore) ListByDoc(ctx context.Context, docID string) ([]Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, canonical_bytes, hash, created_at
		FROM receipts
		WHERE doc_id = $1
		ORDER BY created_at ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var r Receipt
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &r.DocID, &r.CanonicalBytes, &r.Hash, &createdAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse receipt id: %w", err)
		}
		r.CreatedAt = createdAt
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReceipt(row *sql.Row) (Receipt, error) {
	var r Receipt
	var id string
	if err := row.Scan(&id, &r.DocID, &r.CanonicalBytes, &r.Hash, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, sentinel.ErrNotFound
		}
		return Receipt{}, fmt.Errorf("scan receipt: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Receipt{}, fmt.Errorf("parse receipt id: %w", err)
	}
	r.ID = parsed
	return r, nil
}
