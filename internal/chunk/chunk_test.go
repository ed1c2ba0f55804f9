package chunk_test

import (
	"reflect"
	"strings"
	"testing"
	"unicode"

	"github.com/chriscorrea/halluscan/internal/chunk"
)

func TestExtractRows(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		expected    []string
		description string
	}{
		{
			name:        "empty string",
			text:        "",
			expected:    []string{},
			description: "should return empty slice for empty input",
		},
		{
			name:        "whitespace only",
			text:        "   \t  ",
			expected:    []string{},
			description: "should return empty slice for whitespace-only input",
		},
		{
			name:        "single sentence",
			text:        "The university was founded in 1921.",
			expected:    []string{"The university was founded in 1921."},
			description: "final period is kept when no delimiter follows it",
		},
		{
			name:        "sentence boundaries",
			text:        "First row. Second row. Third row",
			expected:    []string{"First row", "Second row", "Third row"},
			description: "should split on period followed by space",
		},
		{
			name:        "table columns",
			text:        "Faculty   Students. Engineering    4500. Medicine  1200",
			expected:    []string{"Faculty Students", "Engineering 4500", "Medicine 1200"},
			description: "should collapse column separators into single spaces",
		},
		{
			name:        "leading and trailing columns",
			text:        "   Name  Age   ",
			expected:    []string{"Name Age"},
			description: "should trim around the joined columns",
		},
		{
			name:        "empty segments dropped",
			text:        "One. . Two",
			expected:    []string{"One", "Two"},
			description: "should drop segments that are empty after trimming",
		},
		{
			name:        "abbreviation without space",
			text:        "Value 3.5 units. Next",
			expected:    []string{"Value 3.5 units", "Next"},
			description: "periods not followed by a space are not boundaries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := chunk.ExtractRows(tt.text)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractRows(%q) = %q, want %q", tt.text, result, tt.expected)
				t.Errorf("Description: %s", tt.description)
			}
		})
	}
}

func TestExtractRowsPreservesContent(t *testing.T) {
	inputs := []string{
		"Faculty   Students. Engineering    4500. Medicine  1200",
		"Admissions open in March. Fees   are   listed below. Contact the registrar",
		"A single fragment without delimiters",
	}

	// content modulo whitespace and the consumed boundary periods
	strip := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) || r == '.' {
				return -1
			}
			return r
		}, s)
	}

	for _, input := range inputs {
		rows := chunk.ExtractRows(input)
		if got, want := strip(strings.Join(rows, " ")), strip(input); got != want {
			t.Errorf("content changed for %q: got %q, want %q", input, got, want)
		}
	}
}

func TestExtractRowsOrder(t *testing.T) {
	rows := chunk.ExtractRows("alpha. beta. gamma. delta")
	want := []string{"alpha", "beta", "gamma", "delta"}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("ExtractRows order = %q, want %q", rows, want)
	}
}
