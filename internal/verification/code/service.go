package code

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"docgate/internal/platform/metrics"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/sentinel"
)

// ErrMismatch is the generic negative result for a wrong code. It carries no
// detail about which digit differed or whether a code exists at all.
var ErrMismatch = errors.New("code mismatch")

const (
	codeDigits     = 6
	codeSpace      = 1000000
	saltBytes      = 16
	pbkdf2Iters    = 4096
	pbkdf2KeyBytes = 32
)

// Service issues and validates short numeric codes. It owns the code state
// machine; the verification gateway owns per-document serialization and audit.
type Service struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("code store is required")
	}
	svc := &Service{
		store:       store,
		ttl:         15 * time.Minute,
		maxAttempts: 5,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue generates a fresh 6-digit code for the document, replacing any prior
// active code. The raw code is returned exactly once; only its salted digest
// is stored.
func (s *Service) Issue(ctx context.Context, docID string) (string, time.Time, error) {
	if docID == "" {
		return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "doc_id is required")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	raw := fmt.Sprintf("%0*d", codeDigits, n.Int64())

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate salt")
	}

	expiresAt := time.Now().UTC().Add(s.ttl)
	record := &Record{
		DocID:       docID,
		CodeHash:    hashCode(raw, salt),
		Salt:        salt,
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
		ExpiresAt:   expiresAt,
		Status:      StatusActive,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
	}

	s.logger.InfoContext(ctx, "verification code issued",
		"doc_id", docID,
		"expires_at", expiresAt,
	)
	return raw, expiresAt, nil
}

// Verify compares a submitted code against the stored digest for the document.
// It returns nil exactly once per issued code (single-use), then
// sentinel.ErrAlreadyUsed. Sentinel errors classify every other failure;
// ErrMismatch is the generic wrong-code result.
func (s *Service) Verify(ctx context.Context, docID, submitted string) error {
	record, err := s.store.Get(ctx, docID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load code record")
	}
	if record == nil {
		return sentinel.ErrNotFound
	}

	switch record.Status {
	case StatusConsumed:
		return sentinel.ErrAlreadyUsed
	case StatusLockedOut:
		return sentinel.ErrRateLimited
	case StatusExpired:
		return sentinel.ErrExpired
	}

	now := time.Now().UTC()
	if now.After(record.ExpiresAt) {
		record.Status = StatusExpired
		if err := s.store.Put(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
		}
		return sentinel.ErrExpired
	}

	if record.Attempts >= record.MaxAttempts {
		record.Status = StatusLockedOut
		if err := s.store.Put(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
		}
		s.recordLockout()
		return sentinel.ErrRateLimited
	}

	if subtle.ConstantTimeCompare(hashCode(submitted, record.Salt), record.CodeHash) == 1 {
		record.Status = StatusConsumed
		if err := s.store.Put(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
		}
		return nil
	}

	record.Attempts++
	if record.Attempts >= record.MaxAttempts {
		record.Status = StatusLockedOut
		if err := s.store.Put(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
		}
		s.recordLockout()
		s.logger.WarnContext(ctx, "verification code locked out",
			"doc_id", docID,
			"attempts", record.Attempts,
		)
		return sentinel.ErrRateLimited
	}
	if err := s.store.Put(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code record")
	}
	return ErrMismatch
}

// recordLockout counts transitions into locked_out, not rate-limited replies
// against an already locked record.
func (s *Service) recordLockout() {
	if s.metrics != nil {
		s.metrics.CodeLockouts.Inc()
	}
}

func hashCode(raw string, salt []byte) []byte {
	return pbkdf2.Key([]byte(raw), salt, pbkdf2Iters, pbkdf2KeyBytes, sha256.New)
}
