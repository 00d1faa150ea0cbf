package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docgate/internal/platform/middleware"
	"docgate/pkg/sentinel"
)

// Sink receives a best-effort copy of every entry after it has been durably
// appended, e.g. the Kafka relay. Sink failures are logged, never propagated:
// the store is the system of record.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Publisher appends audit entries with fail-closed semantics. Audit
// completeness is a security property: if the store is unavailable the calling
// verification must abort rather than proceed unaudited, so Emit surfaces
// sentinel.ErrUnavailable instead of swallowing the failure.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists one entry, filling ID, timestamp, and correlation ID when
// unset. The caller blocks until the append succeeds or fails.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = middleware.GetRequestID(ctx)
	}

	if err := p.store.Append(ctx, entry); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"doc_id", entry.DocID,
			"method", entry.Method,
			"error", err.Error(),
		)
		return sentinel.ErrUnavailable
	}

	if p.sink != nil {
		if err := p.sink.Publish(ctx, entry); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"doc_id", entry.DocID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// History returns the oldest-first entries recorded for a document.
func (p *Publisher) History(ctx context.Context, docID string) ([]Entry, error) {
	return p.store.History(ctx, docID)
}
