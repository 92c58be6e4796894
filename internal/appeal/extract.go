// Package appeal detects interlocutory appeals (agravos de instrumento)
// related to an origin case: it extracts candidate case numbers from docket
// text, refetches each candidate, and validates it by comparing litigant
// identities.
package appeal

import (
	"unicode/utf8"

	"github.com/juristec/caseintel/internal/cnj"
	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/textutil"
)

// ExtractCandidates scans free text for CNJ-formatted numbers that co-occur,
// within the configured rune window, with an appeal synonym (case- and
// accent-insensitive). Each hit keeps its snippet and provenance. Numbers
// equal to ownNumber are never candidates.
func (d *Detector) ExtractCandidates(text, provenance, ownNumber string) []model.AppealCandidate {
	var out []model.AppealCandidate
	for _, m := range cnj.FindAllIndex(text) {
		if m.Number == ownNumber {
			continue
		}
		snippet := runeWindow(text, m.Offset, len(m.Raw), d.rules.Appeal.WindowRunes)
		if !textutil.ContainsAnyFold(snippet, d.rules.Appeal.Synonyms) {
			continue
		}
		out = append(out, model.AppealCandidate{
			RawNumber:  m.Raw,
			Number:     m.Number,
			Snippet:    snippet,
			Provenance: provenance,
		})
	}
	return out
}

// ExtractFromCase scans the movement complements and document descriptions
// of a case, newest first, and returns all candidates in discovery order.
func (d *Detector) ExtractFromCase(c *model.Case) []model.AppealCandidate {
	var out []model.AppealCandidate
	for _, m := range c.Movements {
		out = append(out, d.ExtractCandidates(m.Complement, "movement-complement", c.Number)...)
	}
	for _, doc := range c.Documents {
		out = append(out, d.ExtractCandidates(doc.Description, "document-description", c.Number)...)
	}
	return out
}

// runeWindow returns the slice of text spanning `window` runes on each side
// of the byte range [off, off+matchLen).
func runeWindow(text string, off, matchLen, window int) string {
	start := off
	for i := 0; i < window && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := off + matchLen
	for i := 0; i < window && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}
