package receipt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshalJSON(t *testing.T) {
	var facts FactSet
	payload := `[
		{"key": "name", "value": "Example Corp"},
		{"key": "count", "value": 3},
		{"key": "score", "value": 0.75},
		{"key": "optional", "value": null},
		{"key": "overseas", "value": true, "evidence_span": {"start": 5, "end": 19}}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &facts))
	require.Len(t, facts, 5)

	assert.Equal(t, StringValue("Example Corp"), facts[0].Value)
	assert.Equal(t, IntValue(3), facts[1].Value)
	assert.Equal(t, FloatValue(0.75), facts[2].Value)
	assert.Equal(t, Null(), facts[3].Value)
	assert.Equal(t, BoolValue(true), facts[4].Value)
	require.NotNil(t, facts[4].Span)
	assert.Equal(t, 5, facts[4].Span.Start)
	assert.Equal(t, 19, facts[4].Span.End)
}

func TestValueMarshalMatchesCanonicalEncoding(t *testing.T) {
	out, err := json.Marshal(FloatValue(1.5))
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(out))

	out, err = json.Marshal(Null())
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
