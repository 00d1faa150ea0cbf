package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and issuers return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrExpired: code or token is past its expiry
// - ErrRateLimited: code attempt budget exhausted, record locked out
// - ErrSignatureInvalid: token signature does not verify against the payload
// - ErrAlreadyUsed: code already consumed by a prior successful verification
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: audit sink or resource temporarily unavailable
//
// For validation errors (bad input, duplicate fact keys), use pkg/domain-errors
// directly.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExpired          = errors.New("expired")
	ErrRateLimited      = errors.New("rate limited")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrAlreadyUsed      = errors.New("already used")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnavailable      = errors.New("unavailable")
)
