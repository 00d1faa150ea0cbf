package lock

import "time"

// Method mirrors the verification method that produced an unlock.
type Method string

const (
	MethodCode  Method = "code"
	MethodToken Method = "token"
)

// State is the per-document gate over sensitive operations. Documents start
// locked; a successful verification unlocks exactly once per round, and only
// an explicit re-lock operation ever sets the gate again.
type State struct {
	DocID                string
	SensitiveInputLocked bool
	UnlockedAt           *time.Time
	UnlockedMethod       Method
	UnlockedBy           string
}

// NewState returns the initial locked state for a document.
func NewState(docID string) State {
	return State{DocID: docID, SensitiveInputLocked: true}
}
