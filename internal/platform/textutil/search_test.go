package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeSearchTerm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "AISHA Khan", want: "aisha khan"},
		{name: "strips diacritics", input: "Renée Müller", want: "renee muller"},
		{name: "trims whitespace", input: "  mona  ", want: "mona"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSearchTerm(tc.input); got != tc.want {
				t.Fatalf("NormalizeSearchTerm(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSearchTokens(t *testing.T) {
	got := SearchTokens("Aisha Khan", "aisha@example.com")
	want := []string{
		"aisha", "khan", "aisha khan",
		"example", "com", "aisha@example.com",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SearchTokens = %v, want %v", got, want)
	}
}

func TestSearchTokensDeduplicates(t *testing.T) {
	got := SearchTokens("mona", "Mona", "MONA")
	if !reflect.DeepEqual(got, []string{"mona"}) {
		t.Fatalf("SearchTokens = %v, want [mona]", got)
	}
}

func TestSearchTokensSkipsEmptyValues(t *testing.T) {
	if got := SearchTokens("", "  "); got != nil {
		t.Fatalf("SearchTokens = %v, want nil", got)
	}
}
