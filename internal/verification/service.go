package verification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docgate/internal/audit"
	"docgate/internal/platform/metrics"
	"docgate/internal/verification/code"
	"docgate/internal/verification/lock"
	"docgate/internal/verification/token"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/sentinel"
	"docgate/pkg/tx"
)

// numShards spreads per-document mutual exclusion across independent mutexes
// so unrelated documents never serialize against each other.
const numShards = 128

// Service is the verification gateway. It dispatches over the {code, token}
// variant, serializes all mutable per-document state behind a keyed lock,
// records every attempt in the audit trail (fail-closed), and drives the lock
// state machine on success.
type Service struct {
	codes     *code.Service
	tokens    *token.Service
	lockStore lock.Store
	audit     *audit.Publisher
	runner    *tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	shards [numShards]sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTxRunner wraps each attempt's writes in a SQL transaction when the
// Postgres stores are in play. Nil is fine for in-memory stores; the keyed
// lock already serializes the document.
func WithTxRunner(r *tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func New(codes *code.Service, tokens *token.Service, lockStore lock.Store, auditPub *audit.Publisher, opts ...Option) (*Service, error) {
	if codes == nil || tokens == nil {
		return nil, errors.New("code and token issuers are required")
	}
	if lockStore == nil {
		return nil, errors.New("lock store is required")
	}
	if auditPub == nil {
		return nil, errors.New("audit publisher is required")
	}
	svc := &Service{
		codes:     codes,
		tokens:    tokens,
		lockStore: lockStore,
		audit:     auditPub,
		logger:    slog.Default(),
		tracer:    otel.Tracer("docgate/verification"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify dispatches on the request's discriminant field.
func (s *Service) Verify(ctx context.Context, req Request, actor Actor) (Result, error) {
	switch {
	case req.Code6 != "" && req.SignedToken != "":
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "provide either code6 or signed_token, not both")
	case req.Code6 != "":
		return s.VerifyCode(ctx, req.DocID, req.Code6, actor)
	case req.SignedToken != "":
		return s.VerifyToken(ctx, req.DocID, req.SignedToken, actor)
	default:
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "code6 or signed_token is required")
	}
}

// VerifyCode checks a submitted 6-digit code against the document's active
// code record. The attempt counter update and the audit entry persist
// together; on success the document unlocks exactly once.
func (s *Service) VerifyCode(ctx context.Context, docID, submitted string, actor Actor) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.VerifyCode",
		trace.WithAttributes(attribute.String("doc.id", docID)))
	defer span.End()

	if docID == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "doc_id is required")
	}

	unlock := s.lockDoc(docID)
	defer unlock()

	var result Result
	var limited error
	err := s.run(ctx, func(ctx context.Context) error {
		verifyErr := s.codes.Verify(ctx, docID, submitted)
		outcome, reason := classifyCodeError(verifyErr)
		s.recordAttempt(audit.MethodCode, outcome)

		entry := audit.Entry{
			DocID:   docID,
			Actor:   actor.ID,
			Device:  actor.Device,
			Method:  audit.MethodCode,
			Outcome: outcome,
			Reason:  reason,
		}
		if verifyErr == nil {
			unlocked, err := s.transitionUnlocked(ctx, docID, lock.MethodCode, actor, &entry)
			if err != nil {
				return err
			}
			result = Result{Verified: true, Unlocked: unlocked}
			return nil
		}

		if err := s.audit.Emit(ctx, entry); err != nil {
			return auditUnavailable(err)
		}

		// Only infrastructure failures abort the run; everything else returns
		// nil so the transaction commits and the audit entry survives. The
		// rate-limit signal is raised after the commit.
		switch {
		case errors.Is(verifyErr, sentinel.ErrRateLimited):
			limited = verifyErr
			return nil
		case isNegativeCodeResult(verifyErr):
			s.logger.InfoContext(ctx, "code verification failed",
				"doc_id", docID,
				"reason", reason,
			)
			result = Result{}
			return nil
		default:
			return verifyErr
		}
	})
	if err != nil {
		return Result{}, err
	}
	if limited != nil {
		return Result{}, dErrors.Wrap(limited, dErrors.CodeRateLimited, "verification attempt budget exhausted")
	}
	return result, nil
}

// VerifyToken validates a signed token and, when its bound doc_id matches the
// document under verification, unlocks it. A token bound to another document
// is a hard failure: possession of a valid token for X proves nothing about Y.
func (s *Service) VerifyToken(ctx context.Context, docID, signedToken string, actor Actor) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.VerifyToken",
		trace.WithAttributes(attribute.String("doc.id", docID)))
	defer span.End()

	if docID == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "doc_id is required")
	}

	claims, verifyErr := s.tokens.Verify(signedToken)
	if verifyErr == nil && claims.DocID != docID {
		verifyErr = errDocMismatch
	}

	unlock := s.lockDoc(docID)
	defer unlock()

	var result Result
	err := s.run(ctx, func(ctx context.Context) error {
		outcome, reason := classifyTokenError(verifyErr)
		s.recordAttempt(audit.MethodToken, outcome)

		entry := audit.Entry{
			DocID:   docID,
			Actor:   actor.ID,
			Device:  actor.Device,
			Method:  audit.MethodToken,
			Outcome: outcome,
			Reason:  reason,
		}
		if verifyErr == nil {
			unlocked, err := s.transitionUnlocked(ctx, docID, lock.MethodToken, actor, &entry)
			if err != nil {
				return err
			}
			result = Result{Verified: true, Unlocked: unlocked}
			return nil
		}

		if err := s.audit.Emit(ctx, entry); err != nil {
			return auditUnavailable(err)
		}
		s.logger.InfoContext(ctx, "token verification failed",
			"doc_id", docID,
			"reason", reason,
		)
		result = Result{}
		return nil
	})
	return result, err
}

// IssueCode mints a fresh code for the document, invalidating any prior one.
func (s *Service) IssueCode(ctx context.Context, docID string) (string, time.Time, error) {
	unlock := s.lockDoc(docID)
	defer unlock()
	return s.codes.Issue(ctx, docID)
}

// IssueToken mints a signed token bound to the document.
func (s *Service) IssueToken(ctx context.Context, docID, issuer string, ttl time.Duration) (string, time.Time, error) {
	return s.tokens.Issue(docID, issuer, ttl)
}

// LockState reports whether sensitive input is still gated for a document.
func (s *Service) LockState(ctx context.Context, docID string) (lock.State, error) {
	state, err := s.lockStore.Get(ctx, docID)
	if err != nil {
		return lock.State{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lock state")
	}
	return state, nil
}

// Relock restores the gate. Explicit operator action only; it is never implied
// by verification logic or a new analysis run.
func (s *Service) Relock(ctx context.Context, docID string, actor Actor) (lock.State, error) {
	unlock := s.lockDoc(docID)
	defer unlock()

	var state lock.State
	err := s.run(ctx, func(ctx context.Context) error {
		current, err := s.lockStore.Get(ctx, docID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lock state")
		}
		state = lock.NewState(docID)
		if err := s.lockStore.Save(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save lock state")
		}
		if err := s.audit.Emit(ctx, audit.Entry{
			DocID:   docID,
			Actor:   actor.ID,
			Device:  actor.Device,
			Method:  audit.MethodAdmin,
			Outcome: audit.OutcomeSuccess,
			Reason:  audit.ReasonDocumentRelocked,
		}); err != nil {
			return auditUnavailable(err)
		}
		s.logger.InfoContext(ctx, "document relocked",
			"doc_id", docID,
			"was_locked", current.SensitiveInputLocked,
			"actor", actor.ID,
		)
		return nil
	})
	return state, err
}

// History returns the audit trail for a document, oldest first.
func (s *Service) History(ctx context.Context, docID string) ([]audit.Entry, error) {
	entries, err := s.audit.History(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return entries, nil
}

// transitionUnlocked records the successful attempt and fires the locked →
// unlocked transition at most once. A second concurrent success is still
// audited but re-triggers no one-time side effect.
func (s *Service) transitionUnlocked(ctx context.Context, docID string, method lock.Method, actor Actor, entry *audit.Entry) (bool, error) {
	state, err := s.lockStore.Get(ctx, docID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lock state")
	}

	if state.SensitiveInputLocked {
		now := time.Now().UTC()
		state.SensitiveInputLocked = false
		state.UnlockedAt = &now
		state.UnlockedMethod = method
		state.UnlockedBy = actor.ID
		entry.Reason = audit.ReasonDocumentUnlocked
	}

	if err := s.audit.Emit(ctx, *entry); err != nil {
		return false, auditUnavailable(err)
	}

	if entry.Reason != audit.ReasonDocumentUnlocked {
		// Already unlocked by an earlier success in this round.
		return true, nil
	}

	if err := s.lockStore.Save(ctx, state); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save lock state")
	}
	if s.metrics != nil {
		s.metrics.DocumentsUnlocked.Inc()
	}
	s.logger.InfoContext(ctx, "document unlocked",
		"doc_id", docID,
		"method", method,
		"actor", actor.ID,
	)
	return true, nil
}

func (s *Service) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.runner == nil {
		return fn(ctx)
	}
	return s.runner.Run(ctx, fn)
}

// lockDoc acquires the shard mutex for a document and returns the release
// function. FNV-1a keeps distribution even across shards.
func (s *Service) lockDoc(docID string) func() {
	shard := &s.shards[fnv32(docID)%numShards]
	shard.Lock()
	return shard.Unlock
}

func fnv32(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

var errDocMismatch = errors.New("token bound to different document")

func classifyCodeError(err error) (audit.Outcome, string) {
	switch {
	case err == nil:
		return audit.OutcomeSuccess, ""
	case errors.Is(err, sentinel.ErrExpired):
		return audit.OutcomeExpired, "code_expired"
	case errors.Is(err, sentinel.ErrRateLimited):
		return audit.OutcomeRateLimited, "attempt_budget_exhausted"
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return audit.OutcomeFailure, "code_already_consumed"
	case errors.Is(err, sentinel.ErrNotFound):
		return audit.OutcomeFailure, "no_active_code"
	case errors.Is(err, code.ErrMismatch):
		return audit.OutcomeFailure, "code_mismatch"
	default:
		return audit.OutcomeFailure, "internal_error"
	}
}

func classifyTokenError(err error) (audit.Outcome, string) {
	switch {
	case err == nil:
		return audit.OutcomeSuccess, ""
	case errors.Is(err, sentinel.ErrExpired):
		return audit.OutcomeExpired, "token_expired"
	case errors.Is(err, sentinel.ErrSignatureInvalid):
		return audit.OutcomeFailure, "token_signature_invalid"
	case errors.Is(err, errDocMismatch):
		return audit.OutcomeFailure, "token_doc_mismatch"
	default:
		return audit.OutcomeFailure, "internal_error"
	}
}

func isNegativeCodeResult(err error) bool {
	return errors.Is(err, code.ErrMismatch) ||
		errors.Is(err, sentinel.ErrExpired) ||
		errors.Is(err, sentinel.ErrAlreadyUsed) ||
		errors.Is(err, sentinel.ErrNotFound)
}

func (s *Service) recordAttempt(method audit.Method, outcome audit.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordAttempt(string(method), string(outcome))
	}
}

func auditUnavailable(err error) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit log unavailable, verification aborted")
}
