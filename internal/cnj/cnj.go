// Package cnj handles the CNJ unified case-numbering format: a 20-digit
// identifier written either as bare digits or punctuated as
// NNNNNNN-DD.YYYY.J.TR.OOOO.
package cnj

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Length is the number of digits in a CNJ case number.
const Length = 20

// ErrMalformed is returned when the input does not reduce to exactly 20 digits.
var ErrMalformed = eris.New("cnj: case number is not 20 digits")

var (
	nonDigits = regexp.MustCompile(`\D`)

	// punctuated matches the canonical punctuated form inside free text.
	punctuated = regexp.MustCompile(`\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}`)

	// bare matches a 20-digit run not embedded in a longer digit run.
	bare = regexp.MustCompile(`\d{20}`)
)

// Normalize strips all punctuation from s and returns the canonical
// digits-only form. Returns ErrMalformed unless exactly 20 digits remain.
func Normalize(s string) (string, error) {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) != Length {
		return "", eris.Wrapf(ErrMalformed, "%q has %d digits", s, len(digits))
	}
	return digits, nil
}

// Format renders a canonical 20-digit number in the punctuated form
// NNNNNNN-DD.YYYY.J.TR.OOOO. Inverse of Normalize for every valid input.
func Format(digits string) (string, error) {
	if len(digits) != Length || nonDigits.MatchString(digits) {
		return "", eris.Wrapf(ErrMalformed, "%q", digits)
	}
	var b strings.Builder
	b.Grow(25)
	b.WriteString(digits[0:7])
	b.WriteByte('-')
	b.WriteString(digits[7:9])
	b.WriteByte('.')
	b.WriteString(digits[9:13])
	b.WriteByte('.')
	b.WriteString(digits[13:14])
	b.WriteByte('.')
	b.WriteString(digits[14:16])
	b.WriteByte('.')
	b.WriteString(digits[16:20])
	return b.String(), nil
}

// IsValid reports whether s normalizes to a well-formed case number.
func IsValid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// FindAll scans free text for case numbers in either form and returns them
// normalized, in order of appearance, without deduplication.
func FindAll(text string) []string {
	var found []string
	for _, m := range FindAllIndex(text) {
		found = append(found, m.Number)
	}
	return found
}

// FindAllIndex is like FindAll but also reports the byte offset of each match
// in the original text, so callers can inspect the surrounding window.
func FindAllIndex(text string) []Match {
	var found []Match
	for _, loc := range punctuated.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if n, err := Normalize(raw); err == nil {
			found = append(found, Match{Number: n, Raw: raw, Offset: loc[0]})
		}
	}
	for _, loc := range bare.FindAllStringIndex(text, -1) {
		// Skip 20-digit windows embedded in longer digit runs.
		if loc[0] > 0 && isDigit(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigit(text[loc[1]]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		found = append(found, Match{Number: raw, Raw: raw, Offset: loc[0]})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Offset < found[j].Offset })
	return found
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Match is one case number located in free text.
type Match struct {
	Number string // canonical digits
	Raw    string // as it appeared
	Offset int    // byte offset in the scanned text
}
