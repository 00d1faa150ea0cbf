package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	dErrors "docgate/pkg/domain-errors"
)

// FormatVersion is the leading byte of every canonical encoding. Bump it when
// the encoding changes so new hashes can never silently collide with old ones.
const FormatVersion byte = 0x01

// ErrDuplicateKey marks a malformed fact set. Keys must be unique; a duplicate
// is a caller bug, not a retryable condition.
var ErrDuplicateKey = errors.New("duplicate fact key")

// ErrNonFiniteNumber rejects NaN and infinities, which have no canonical JSON
// form.
var ErrNonFiniteNumber = errors.New("non-finite number in fact set")

// Canonicalize turns a fact set into one deterministic byte sequence:
// a format-version byte followed by canonical JSON (entries sorted by key
// byte-wise, fixed numeric/string encoding). Two semantically equal fact sets
// always produce byte-identical output regardless of input order. Evidence
// spans are provenance and excluded, so re-running extraction with shifted
// offsets over identical facts keeps the receipt identity stable.
func Canonicalize(facts FactSet) ([]byte, error) {
	sorted := make([]Fact, len(facts))
	copy(sorted, facts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Key == sorted[i-1].Key {
			return nil, dErrors.Wrap(ErrDuplicateKey, dErrors.CodeBadRequest,
				fmt.Sprintf("fact key %q appears more than once", sorted[i].Key))
		}
	}

	buf := []byte{FormatVersion}
	buf = append(buf, '{')
	for i, fact := range sorted {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(fact.Key)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "fact key is not encodable")
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf, err = fact.Value.appendCanonical(buf)
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// appendCanonical writes the fixed encoding for one value. Strings use JSON
// escaping, integers decimal, floats the shortest round-trippable form, so the
// encoding is independent of how the source formatted the number.
func (v Value) appendCanonical(buf []byte) ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.Bool), nil
	case KindInt:
		return strconv.AppendInt(buf, v.Int, 10), nil
	case KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return nil, dErrors.Wrap(ErrNonFiniteNumber, dErrors.CodeBadRequest,
				"fact values must be finite numbers")
		}
		return strconv.AppendFloat(buf, v.Float, 'g', -1, 64), nil
	case KindString:
		quoted, err := json.Marshal(v.Str)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "fact value is not encodable")
		}
		return append(buf, quoted...), nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown fact value kind")
	}
}

// Hash derives the receipt identity from canonical bytes: SHA-256, lowercase
// hex. Pure; the same bytes always reproduce the same digest.
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
