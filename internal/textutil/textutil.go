// Package textutil provides accent- and case-insensitive text normalization
// for keyword heuristics and party-name comparison. Docket text mixes
// encodings and diacritics freely, so every match goes through Fold first.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes to NFD, drops combining marks, and recomposes.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, strips diacritics, and collapses runs of whitespace
// into single spaces.
func Fold(s string) string {
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		// Transform failures only happen on invalid UTF-8; fall back to
		// the raw string rather than dropping the text.
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// ContainsFold reports whether the folded haystack contains the folded needle.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// ContainsAnyFold reports whether any of the needles occurs in haystack,
// ignoring case and accents. Empty needles never match.
func ContainsAnyFold(haystack string, needles []string) bool {
	folded := Fold(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(folded, Fold(n)) {
			return true
		}
	}
	return false
}

// Tokens normalizes s for name comparison — uppercase, accents and
// punctuation stripped, whitespace collapsed — and returns the distinct
// tokens.
func Tokens(s string) []string {
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range strings.ToUpper(out) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenSetSimilarity scores the overlap of the token sets of a and b in
// [0, 1]: 2·|A∩B| / (|A|+|B|). Empty inputs score 0.
func TokenSetSimilarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	var common int
	for _, t := range tb {
		if _, ok := set[t]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}
