package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the typed fact values the extractor can produce.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// Value is a tagged variant over the extractor's value space
// (string | number | bool | null). Null is a real value: a fact explicitly
// extracted as absent hashes differently from a fact never extracted at all.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func Null() Value            { return Value{Kind: KindNull} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }
func FloatValue(f float64) Value {
	return Value{Kind: KindFloat, Float: f}
}
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// UnmarshalJSON accepts the wire forms null, true/false, numbers, and strings.
// Integral numbers without exponent or fraction decode as KindInt so their
// canonical encoding is exact.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	default:
		num := json.Number(data)
		if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
			*v = IntValue(n)
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("fact value is neither string, bool, null, nor number: %s", data)
		}
		*v = FloatValue(f)
		return nil
	}
}

// MarshalJSON renders the value in the same fixed encoding the canonicalizer
// uses, so API responses and canonical bytes never disagree.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendCanonical(nil)
}

// Span locates a fact inside the source document. Provenance only; it does not
// participate in canonical bytes.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Fact is one extracted key/value pair with optional provenance.
type Fact struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
	Span  *Span  `json:"evidence_span,omitempty"`
}

// FactSet is the ordered output of the (out-of-scope) extraction pipeline.
// Order is insertion order; canonicalization normalizes it away.
type FactSet []Fact

// Receipt binds a document to a reproducible hash of its extracted facts.
// Immutable once created: a new FactSet yields a new Receipt row, never an
// in-place edit.
type Receipt struct {
	ID             uuid.UUID
	DocID          string
	CanonicalBytes []byte
	Hash           string
	CreatedAt      time.Time
}

// CanonicalJSON returns the canonical JSON rendering of the fact set, i.e. the
// canonical bytes without the leading format-version byte.
func (r Receipt) CanonicalJSON() string {
	if len(r.CanonicalBytes) < 1 {
		return ""
	}
	return string(r.CanonicalBytes[1:])
}
