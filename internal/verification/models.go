package verification

// Actor is the opaque identity presenting a verification artifact. Account
// management is out of scope; the surrounding service decides what an actor ID
// means.
type Actor struct {
	ID     string
	Device string
}

// Result is the outward signal of one verification attempt. It is deliberately
// generic: internal reason codes go to logs and the audit trail, never to the
// verifying party.
type Result struct {
	Verified bool
	Unlocked bool
}

// Request is the tagged variant over verification methods. Exactly one of
// Code6 and SignedToken must be set; the discriminant is which field is
// non-empty.
type Request struct {
	DocID       string `json:"doc_id"`
	Code6       string `json:"code6,omitempty"`
	SignedToken string `json:"signed_token,omitempty"`
	Actor       string `json:"actor,omitempty"`
}
