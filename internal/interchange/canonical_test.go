package interchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"utf16 order", map[string]any{"\U0001F600": 1, "\uFFFD": 2}, "{\"\U0001F600\":1,\"\uFFFD\":2}"},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"line separators stay literal", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"control characters", "a\nb\x01", `"a\nb\u0001"`},
		{"nfc", "cafe\u0301", "\"caf\u00e9\""},
		{"integral float", 3.0, `3`},
		{"fraction", 2.5, `2.5`},
		{"zero", 0.0, `0`},
		{"nested", []any{map[string]any{"z": true, "y": nil}}, `[{"y":null,"z":true}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFingerprint_DomainSeparated(t *testing.T) {
	a := &Document{Version: "1", Name: "A", Nodes: []NodeDoc{}}
	b := &Document{Version: "1", Name: "B", Nodes: []NodeDoc{}}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)

	again, err := Fingerprint(&Document{Version: "1", Name: "A", Nodes: []NodeDoc{}})
	require.NoError(t, err)
	assert.Equal(t, fa, again)
}
