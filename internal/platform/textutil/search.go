package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSearchTerm lowercases the input and strips diacritics so that
// searches match regardless of accents or casing.
func NormalizeSearchTerm(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	folded, _, err := transform.String(foldTransformer, value)
	if err != nil {
		return value
	}
	return folded
}

// SearchTokens splits the provided values into normalised tokens suitable for
// an array-contains index. Duplicates are removed and order is not preserved
// beyond first occurrence.
func SearchTokens(values ...string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, value := range values {
		normalized := NormalizeSearchTerm(value)
		if normalized == "" {
			continue
		}
		for _, token := range strings.FieldsFunc(normalized, func(r rune) bool {
			return unicode.IsSpace(r) || r == '@' || r == '.' || r == '-' || r == '_'
		}) {
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
		// Keep the whole normalised value as well so exact matches on
		// emails and phone numbers work without tokenisation rules.
		if _, ok := seen[normalized]; !ok {
			seen[normalized] = struct{}{}
			tokens = append(tokens, normalized)
		}
	}
	return tokens
}
