//go:build integration

package receipt_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docgate/internal/receipt"
	"docgate/pkg/sentinel"
	"docgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *receipt.PostgresStore
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
	s.store = receipt.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "receipts"))
}

func newTestReceipt(docID string, facts receipt.FactSet, at time.Time) receipt.Receipt {
	canonical, err := receipt.Canonicalize(facts)
	if err != nil {
		panic(err)
	}
	return receipt.Receipt{
		ID:             uuid.New(),
		DocID:          docID,
		CanonicalBytes: canonical,
		Hash:           receipt.Hash(canonical),
		CreatedAt:      at.UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestSaveAndFindByID() {
	ctx := context.Background()
	r := newTestReceipt("D1", receipt.FactSet{
		{Key: "diagnosis", Value: receipt.StringValue("J45.901")},
	}, time.Now())
	s.Require().NoError(s.store.Save(ctx, r))

	found, err := s.store.FindByID(ctx, r.ID.String())
	s.Require().NoError(err)
	s.Equal(r.ID, found.ID)
	s.Equal(r.DocID, found.DocID)
	s.Equal(r.CanonicalBytes, found.CanonicalBytes)
	s.Equal(r.Hash, found.Hash)
	s.WithinDuration(r.CreatedAt, found.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLatestPicksNewestRow() {
	ctx := context.Background()
	base := time.Now()

	first := newTestReceipt("D1", receipt.FactSet{{Key: "a", Value: receipt.IntValue(1)}}, base)
	second := newTestReceipt("D1", receipt.FactSet{{Key: "a", Value: receipt.IntValue(2)}}, base.Add(time.Second))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	latest, err := s.store.Latest(ctx, "D1")
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
}

func (s *PostgresStoreSuite) TestLatestForUnknownDocument() {
	_, err := s.store.Latest(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByDocOldestFirst() {
	ctx := context.Background()
	base := time.Now()

	first := newTestReceipt("D1", receipt.FactSet{{Key: "a", Value: receipt.IntValue(1)}}, base)
	second := newTestReceipt("D1", receipt.FactSet{{Key: "a", Value: receipt.IntValue(2)}}, base.Add(time.Second))
	other := newTestReceipt("D2", receipt.FactSet{{Key: "b", Value: receipt.BoolValue(true)}}, base)
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))
	s.Require().NoError(s.store.Save(ctx, other))

	list, err := s.store.ListByDoc(ctx, "D1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[1].ID)
}

func (s *PostgresStoreSuite) TestSupersededRowsShareHash() {
	ctx := context.Background()
	facts := receipt.FactSet{{Key: "a", Value: receipt.IntValue(1)}}
	base := time.Now()

	first := newTestReceipt("D1", facts, base)
	second := newTestReceipt("D1", facts, base.Add(time.Second))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	list, err := s.store.ListByDoc(ctx, "D1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(list[0].Hash, list[1].Hash)
	s.NotEqual(list[0].ID, list[1].ID)
}
