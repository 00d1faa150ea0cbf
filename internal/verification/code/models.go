package code

import "time"

// Status tracks the lifecycle of one verification code record.
type Status string

const (
	StatusActive    Status = "active"
	StatusConsumed  Status = "consumed"
	StatusExpired   Status = "expired"
	StatusLockedOut Status = "locked_out"
)

// Record is the at-rest form of a verification code. The raw code is never
// persisted; only the salted PBKDF2 digest survives issuance.
type Record struct {
	DocID       string    `json:"doc_id"`
	CodeHash    []byte    `json:"code_hash"`
	Salt        []byte    `json:"salt"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	ExpiresAt   time.Time `json:"expires_at"`
	Status      Status    `json:"status"`
}
