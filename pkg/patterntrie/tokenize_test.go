package patterntrie

import (
	"reflect"
	"testing"
)

func TestHeadingToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"all alnum", "abc123", "abc123"},
		{"all punctuation", "---", "---"},
		{"alnum then punct", "abc-123", "abc"},
		{"punct then alnum", "-abc", "-"},
		{"high byte counts alphabetic", "caf\xc3\xa9 ", "caf\xc3\xa9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeadingToken(tt.input); got != tt.want {
				t.Errorf("HeadingToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single run", "abc", []string{"abc"}},
		{"alternating", "req-0001 done", []string{"req", "-", "0001", " ", "done"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

// TestTokenizePartitionsLine checks the invariant that concatenating the
// tokens reproduces the original line exactly.
func TestTokenizePartitionsLine(t *testing.T) {
	lines := []string{
		"",
		"GET /api/v1/users/42 200 12ms",
		"2024-01-02T15:04:05Z ERROR session=abc123DEF456 failed",
		"....",
	}
	for _, line := range lines {
		got := Tokenize(line)
		joined := ""
		for _, tok := range got {
			joined += tok
		}
		if joined != line {
			t.Errorf("Tokenize(%q) does not reconstruct the line: got %q", line, joined)
		}
	}
}
