package audit

import (
	"time"

	"github.com/google/uuid"
)

// Method identifies which verification artifact drove an attempt.
type Method string

const (
	MethodCode  Method = "code"
	MethodToken Method = "token"
	// MethodAdmin marks explicit operator actions such as re-locking.
	MethodAdmin Method = "admin"
)

// Outcome classifies one verification attempt or state transition.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFailure     Outcome = "failure"
	OutcomeExpired     Outcome = "expired"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Entry is one append-only record of a verification attempt or lock
// transition. Entries are never mutated or deleted; Reason stays internal and
// is never surfaced to the verifying party.
type Entry struct {
	ID        uuid.UUID
	DocID     string
	Actor     string
	Device    string
	Method    Method
	Outcome   Outcome
	Reason    string
	RequestID string
	At        time.Time
}

// Reason codes for state transitions. Attempt-level reasons are free-form
// strings owned by the verification gateway; these two mark the lock
// transitions themselves.
const (
	ReasonDocumentUnlocked = "document_unlocked"
	ReasonDocumentRelocked = "document_relocked"
)
