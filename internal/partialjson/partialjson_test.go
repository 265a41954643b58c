package partialjson

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_CompleteValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "object", in: `{"a": 1, "b": "x"}`, want: map[string]any{"a": 1.0, "b": "x"}},
		{name: "nested", in: `{"a": {"b": [1, 2]}}`, want: map[string]any{"a": map[string]any{"b": []any{1.0, 2.0}}}},
		{name: "array", in: `[true, false, null]`, want: []any{true, false, nil}},
		{name: "string", in: `"hello"`, want: "hello"},
		{name: "number", in: `-12.5`, want: -12.5},
		{name: "escapes", in: `"a\nb\t\"c\""`, want: "a\nb\t\"c\""},
		{name: "unicode escape", in: `"é"`, want: "é"},
		{name: "leading whitespace", in: "  \n {}", want: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_TruncatedValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "open object", in: `{"a": 1,`, want: map[string]any{"a": 1.0}},
		{name: "dangling key", in: `{"a": 1, "b`, want: map[string]any{"a": 1.0}},
		{name: "key without value", in: `{"a": 1, "b":`, want: map[string]any{"a": 1.0}},
		{name: "open array", in: `[1, 2,`, want: []any{1.0, 2.0}},
		{name: "array with half literal", in: `[true, fal`, want: []any{true}},
		{name: "partial string value kept", in: `{"a": "hel`, want: map[string]any{"a": "hel"}},
		{name: "truncated number trimmed", in: `[12.]`, want: []any{12.0}},
		{name: "number at stream end", in: `{"n": 1e`, want: map[string]any{"n": 1.0}},
		{name: "dangling escape", in: `{"a": "x\`, want: map[string]any{"a": "x"}},
		{
			name: "streamed transactions fragment",
			in:   `{"transactions": [{"id": 1, "category": "Dining"}, {"id": 2, "cat`,
			want: map[string]any{"transactions": []any{
				map[string]any{"id": 1.0, "category": "Dining"},
				map[string]any{"id": 2.0},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_TruncatedKeyFragment(t *testing.T) {
	// The outer key itself is cut off: nothing usable yet, but not an error.
	got, err := Parse(`{"transacti`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("Parse = %#v, want empty object", got)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := Parse(in); !errors.Is(err, ErrEmpty) {
			t.Errorf("Parse(%q) expected ErrEmpty, got %v", in, err)
		}
	}

	// A bare truncated literal is also no value at all.
	if _, err := Parse("tru"); !errors.Is(err, ErrEmpty) {
		t.Errorf("Parse(\"tru\") expected ErrEmpty, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		`{1: "a"}`,     // non-string key
		`{"a" 1}`,      // missing colon
		`{"a": 1 2}`,   // missing separator
		`[1 2]`,        // missing separator
		`trux`,         // broken literal
		`#`,            // garbage
		`{"a": @}`,     // garbage value
	}

	for _, in := range tests {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}
