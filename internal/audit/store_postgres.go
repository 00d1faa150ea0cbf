package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "docgate/pkg/tx"
)

// PostgresStore persists audit entries. It participates in a caller-provided
// transaction when one is present in context, so an attempt counter increment
// and its audit entry commit or roll back together.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    id         UUID PRIMARY KEY,
//	    doc_id     TEXT NOT NULL,
//	    actor      TEXT NOT NULL,
//	    device     TEXT NOT NULL DEFAULT '',
//	    method     TEXT NOT NULL,
//	    outcome    TEXT NOT NULL,
//	    reason     TEXT NOT NULL DEFAULT '',
//	    request_id TEXT NOT NULL DEFAULT '',
//	    at         TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX audit_entries_doc_id_at_idx ON audit_entries (doc_id, at);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_entries (id, doc_id, actor, device, method, outcome, reason, request_id, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.DocID, entry.Actor, entry.Device, entry.Method, entry.Outcome, entry.Reason, entry.RequestID, entry.At)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, docID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, actor, device, method, outcome, reason, request_id, at
		FROM audit_entries
		WHERE doc_id = $1
		ORDER BY at ASC, id ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id string
		if err := rows.Scan(&id, &e.DocID, &e.Actor, &e.Device, &e.Method, &e.Outcome, &e.Reason, &e.RequestID, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse audit entry id: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
