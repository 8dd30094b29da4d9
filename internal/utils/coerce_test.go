package utils

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestCoerceFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect float64
		nan    bool
	}{
		{name: "float", input: 7.5, expect: 7.5},
		{name: "int", input: 8, expect: 8},
		{name: "json number", input: json.Number("6.25"), expect: 6.25},
		{name: "numeric string", input: " 9 ", expect: 9},
		{name: "word", input: "great", nan: true},
		{name: "empty string", input: "  ", nan: true},
		{name: "nil", input: nil, nan: true},
		{name: "bool", input: true, nan: true},
		{name: "overflowing string", input: "1e400", expect: math.Inf(1)},
		{name: "negative overflow", input: "-1e400", expect: math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CoerceFloat(tt.input)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Fatalf("expected NaN, got %v", got)
				}
				return
			}
			if got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCoerceStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect []string
	}{
		{name: "nil", input: nil, expect: []string{}},
		{name: "any slice", input: []any{" clear ", "", nil, 3.0}, expect: []string{"clear", "3"}},
		{name: "string slice", input: []string{"a", " "}, expect: []string{"a"}},
		{name: "single string", input: "concise", expect: []string{"concise"}},
		{name: "unsupported", input: map[string]any{"a": 1}, expect: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CoerceStrings(tt.input); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %#v, got %#v", tt.expect, got)
			}
		})
	}
}

func TestCoerceString(t *testing.T) {
	t.Parallel()

	if got := CoerceString("  text "); got != "text" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := CoerceString(nil); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
	if got := CoerceString([]any{"a"}); got != `["a"]` {
		t.Fatalf("expected json encoding, got %q", got)
	}
}
