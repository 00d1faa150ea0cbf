// Package relay fans audit entries out to Kafka for downstream security
// monitoring. The relay is best-effort: the Postgres/in-memory store remains
// the system of record, and a broker outage never blocks verification.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"docgate/internal/audit"
)

type Relay struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists. The topic is
// created with one partition; keying records by doc_id keeps per-document
// ordering if partitions are added later.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		// Topic may already exist; that is the steady state.
		logger.Warn("create audit topic", "topic", topic, "error", err.Error())
	}

	return &Relay{client: client, topic: topic, logger: logger}, nil
}

type wireEntry struct {
	ID        string `json:"id"`
	DocID     string `json:"doc_id"`
	Actor     string `json:"actor,omitempty"`
	Device    string `json:"device,omitempty"`
	Method    string `json:"method"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	At        string `json:"at"`
}

// Publish produces one entry synchronously. Callers treat errors as
// best-effort failures.
func (r *Relay) Publish(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(wireEntry{
		ID:        entry.ID.String(),
		DocID:     entry.DocID,
		Actor:     entry.Actor,
		Device:    entry.Device,
		Method:    string(entry.Method),
		Outcome:   string(entry.Outcome),
		Reason:    entry.Reason,
		RequestID: entry.RequestID,
		At:        entry.At.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	record := &kgo.Record{
		Topic: r.topic,
		Key:   []byte(entry.DocID),
		Value: payload,
	}
	if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (r *Relay) Close() {
	r.client.Close()
}
