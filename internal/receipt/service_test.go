package receipt

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "docgate/pkg/domain-errors"
)

type ReceiptServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestReceiptServiceSuite(t *testing.T) {
	suite.Run(t, new(ReceiptServiceSuite))
}

func (s *ReceiptServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	var err error
	s.service, err = NewService(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *ReceiptServiceSuite) TestIssueAndGet() {
	ctx := context.Background()
	facts := FactSet{
		{Key: "purpose", Value: StringValue("marketing")},
		{Key: "retention_days", Value: IntValue(365)},
	}

	issued, err := s.service.Issue(ctx, "doc-1", facts)
	s.Require().NoError(err)
	s.Equal("doc-1", issued.DocID)
	s.Len(issued.Hash, 64)
	s.Equal(FormatVersion, issued.CanonicalBytes[0])

	found, err := s.service.Get(ctx, issued.ID.String())
	s.Require().NoError(err)
	s.Equal(issued.Hash, found.Hash)
	s.Equal(issued.CanonicalJSON(), found.CanonicalJSON())
}

func (s *ReceiptServiceSuite) TestIssueRequiresDocID() {
	_, err := s.service.Issue(context.Background(), "", nil)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ReceiptServiceSuite) TestSupersedingCreatesNewRows() {
	ctx := context.Background()

	first, err := s.service.Issue(ctx, "doc-1", FactSet{{Key: "a", Value: IntValue(1)}})
	s.Require().NoError(err)
	second, err := s.service.Issue(ctx, "doc-1", FactSet{{Key: "a", Value: IntValue(2)}})
	s.Require().NoError(err)

	s.NotEqual(first.ID, second.ID)
	s.NotEqual(first.Hash, second.Hash)

	latest, err := s.service.Latest(ctx, "doc-1")
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)

	all, err := s.service.ListByDoc(ctx, "doc-1")
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(first.ID, all[0].ID)
}

func (s *ReceiptServiceSuite) TestIdenticalFactSetReproducesHash() {
	ctx := context.Background()
	facts := FactSet{
		{Key: "b", Value: IntValue(1)},
		{Key: "a", Value: IntValue(2)},
	}
	permuted := FactSet{
		{Key: "a", Value: IntValue(2)},
		{Key: "b", Value: IntValue(1)},
	}

	first, err := s.service.Issue(ctx, "doc-1", facts)
	s.Require().NoError(err)
	second, err := s.service.Issue(ctx, "doc-1", permuted)
	s.Require().NoError(err)

	s.Equal(first.Hash, second.Hash)
	s.Equal(first.CanonicalBytes, second.CanonicalBytes)
}

func (s *ReceiptServiceSuite) TestGetUnknownReceipt() {
	_, err := s.service.Get(context.Background(), "7e4e2f09-72a4-4d0f-9a36-3a4b68d2a520")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.service.Latest(context.Background(), "no-such-doc")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
