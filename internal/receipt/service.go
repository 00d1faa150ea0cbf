package receipt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docgate/internal/platform/metrics"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/sentinel"
)

// Service issues and looks up receipts. Canonicalization and hashing are pure;
// the only side effect here is persistence.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("receipt store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue canonicalizes the fact set, derives the content hash, and persists a
// new immutable receipt for the document. A repeated fact set for the same
// document supersedes with a new row carrying the same hash.
func (s *Service) Issue(ctx context.Context, docID string, facts FactSet) (Receipt, error) {
	if docID == "" {
		return Receipt{}, dErrors.New(dErrors.CodeBadRequest, "doc_id is required")
	}

	start := time.Now()
	canonical, err := Canonicalize(facts)
	if err != nil {
		return Receipt{}, err
	}
	if s.metrics != nil {
		s.metrics.CanonicalizeDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}

	r := Receipt{
		ID:             uuid.New(),
		DocID:          docID,
		CanonicalBytes: canonical,
		Hash:           Hash(canonical),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Save(ctx, r); err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist receipt")
	}

	if s.metrics != nil {
		s.metrics.ReceiptsIssued.Inc()
	}
	s.logger.InfoContext(ctx, "receipt issued",
		"receipt_id", r.ID,
		"doc_id", docID,
		"hash", r.Hash,
		"facts", len(facts),
	)
	return r, nil
}

func (s *Service) Get(ctx context.Context, receiptID string) (Receipt, error) {
	r, err := s.store.FindByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Receipt{}, dErrors.Wrap(err, dErrors.CodeNotFound, "receipt not found")
		}
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load receipt")
	}
	return r, nil
}

func (s *Service) Latest(ctx context.Context, docID string) (Receipt, error) {
	r, err := s.store.Latest(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Receipt{}, dErrors.Wrap(err, dErrors.CodeNotFound, "document has no receipt")
		}
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load receipt")
	}
	return r, nil
}

func (s *Service) ListByDoc(ctx context.Context, docID string) ([]Receipt, error) {
	receipts, err := s.store.ListByDoc(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list receipts")
	}
	return receipts, nil
}
