package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fences", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "unclosed fence", in: "```json\n{\"a\": 1}", want: `{"a": 1}`},
		{name: "surrounding whitespace", in: "\n  {\"a\": 1}  \n", want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestParseAccumulated(t *testing.T) {
	pairs, ok := parseAccumulated(`{"transactions": [{"id": 1, "category": "Dining"}, {"id": 2, "category": "Transport"}]}`)
	require.True(t, ok)
	require.Len(t, pairs, 2)
	assert.Equal(t, assignment{ID: 1, Category: "Dining"}, pairs[0])
	assert.Equal(t, assignment{ID: 2, Category: "Transport"}, pairs[1])
}

func TestParseAccumulated_TolerantKeys(t *testing.T) {
	// Alternate key spellings the endpoint has been seen to produce.
	pairs, ok := parseAccumulated(`{"transactions": [{"Id": "3", "cat": " Dining "}]}`)
	require.True(t, ok)
	require.Len(t, pairs, 1)
	assert.Equal(t, assignment{ID: 3, Category: "Dining"}, pairs[0])
}

func TestParseAccumulated_PartialStream(t *testing.T) {
	// Mid-stream fragment: the first entry is resolvable, the second is not
	// yet.
	pairs, ok := parseAccumulated(`{"transactions": [{"id": 1, "category": "Dining"}, {"id": 2, "cate`)
	require.True(t, ok)
	require.Len(t, pairs, 2)
	assert.Equal(t, assignment{ID: 1, Category: "Dining"}, pairs[0])
	// The second entry has an id but no category yet.
	assert.Equal(t, assignment{ID: 2, Category: ""}, pairs[1])
}

func TestParseAccumulated_NoTransactionsYet(t *testing.T) {
	// The top-level key itself is still streaming.
	_, ok := parseAccumulated(`{"transacti`)
	assert.False(t, ok)

	_, ok = parseAccumulated(``)
	assert.False(t, ok)

	_, ok = parseAccumulated(`{"transactions": "oops"}`)
	assert.False(t, ok)
}

func TestParseAccumulated_SkipsUnusableEntries(t *testing.T) {
	pairs, ok := parseAccumulated(`{"transactions": [{"category": "NoID"}, {"id": "x", "category": "BadID"}, {"id": 5, "category": "Kept"}, "junk"]}`)
	require.True(t, ok)
	require.Len(t, pairs, 1)
	assert.Equal(t, assignment{ID: 5, Category: "Kept"}, pairs[0])
}

func TestCoerceID(t *testing.T) {
	id, ok := coerceID(float64(7))
	require.True(t, ok)
	assert.Equal(t, 7, id)

	id, ok = coerceID(" 12 ")
	require.True(t, ok)
	assert.Equal(t, 12, id)

	_, ok = coerceID("seven")
	assert.False(t, ok)

	_, ok = coerceID(nil)
	assert.False(t, ok)
}
