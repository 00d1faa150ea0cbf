//go:build integration

package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docgate/internal/audit"
	"docgate/pkg/testutil/containers"
	"docgate/pkg/tx"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_entries"))
}

func newTestEntry(docID string, outcome audit.Outcome, at time.Time) audit.Entry {
	return audit.Entry{
		ID:      uuid.New(),
		DocID:   docID,
		Actor:   "clinician-1",
		Device:  "Firefox 128.0 (Linux)",
		Method:  audit.MethodCode,
		Outcome: outcome,
		Reason:  "code_mismatch",
		At:      at.UTC(),
	}
}

func (s *PostgresStoreSuite) TestAppendAndHistory() {
	ctx := context.Background()
	now := time.Now()

	first := newTestEntry("D1", audit.OutcomeFailure, now)
	second := newTestEntry("D1", audit.OutcomeSuccess, now.Add(time.Second))
	second.Reason = audit.ReasonDocumentUnlocked
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	entries, err := s.store.History(ctx, "D1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(first.ID, entries[0].ID)
	s.Equal(audit.OutcomeFailure, entries[0].Outcome)
	s.Equal(second.ID, entries[1].ID)
	s.Equal(audit.ReasonDocumentUnlocked, entries[1].Reason)
	s.Equal("clinician-1", entries[0].Actor)
	s.Equal("Firefox 128.0 (Linux)", entries[0].Device)
}

func (s *PostgresStoreSuite) TestHistoryIsPerDocument() {
	ctx := context.Background()
	now := time.Now()
	s.Require().NoError(s.store.Append(ctx, newTestEntry("D1", audit.OutcomeFailure, now)))
	s.Require().NoError(s.store.Append(ctx, newTestEntry("D2", audit.OutcomeSuccess, now)))

	d1, err := s.store.History(ctx, "D1")
	s.Require().NoError(err)
	s.Len(d1, 1)

	d2, err := s.store.History(ctx, "D2")
	s.Require().NoError(err)
	s.Len(d2, 1)
}

func (s *PostgresStoreSuite) TestHistoryForUnknownDocumentIsEmpty() {
	entries, err := s.store.History(context.Background(), "missing")
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *PostgresStoreSuite) TestAppendParticipatesInTransaction() {
	ctx := context.Background()
	runner := tx.NewRunner(s.postgres.DB)

	// Rolled-back transaction leaves no trace.
	err := runner.Run(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, newTestEntry("D1", audit.OutcomeFailure, time.Now())); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().Error(err)

	entries, err := s.store.History(ctx, "D1")
	s.Require().NoError(err)
	s.Empty(entries)

	// Committed transaction persists.
	err = runner.Run(ctx, func(ctx context.Context) error {
		return s.store.Append(ctx, newTestEntry("D1", audit.OutcomeSuccess, time.Now()))
	})
	s.Require().NoError(err)

	entries, err = s.store.History(ctx, "D1")
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresStoreSuite) TestConcurrentAppends() {
	ctx := context.Background()
	const goroutines = 30

	var wg sync.WaitGroup
	base := time.Now()
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			entry := newTestEntry("D1", audit.OutcomeFailure, base.Add(time.Duration(idx)*time.Millisecond))
			_ = s.store.Append(ctx, entry)
		}(i)
	}
	wg.Wait()

	entries, err := s.store.History(ctx, "D1")
	s.Require().NoError(err)
	s.Len(entries, goroutines)
	for i := 1; i < len(entries); i++ {
		s.False(entries[i].At.Before(entries[i-1].At), "history must be oldest first")
	}
}
