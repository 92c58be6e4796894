package deadline

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/rules"
	"github.com/juristec/caseintel/internal/textutil"
)

// Calculator resolves the legally relevant certificate among candidates for
// one deadline concern (citation or enforcement notice) and derives the
// term-start. The heuristics are deterministic; when they cannot decide, all
// surviving candidates are surfaced instead of guessing.
type Calculator struct {
	rules *rules.Set
}

// NewCalculator creates a calculator with the given rule set.
func NewCalculator(rs *rules.Set) *Calculator {
	return &Calculator{rules: rs}
}

// Selection is the outcome of certificate resolution. Exactly one of
// Deadline or Ambiguous is populated: a nil Deadline with a non-empty
// Ambiguous list means the heuristics could not corroborate a single
// candidate and the caller must disambiguate (e.g. via a classifier).
type Selection struct {
	Deadline  *model.ValidatedDeadline
	Ambiguous []model.CertidaoCandidate
}

// Resolved reports whether a single certificate was selected.
func (s Selection) Resolved() bool { return s.Deadline != nil }

// intimationDate captures an explicit "Data da Intimação: dd/mm/yyyy" field
// in folded certificate text.
var intimationDate = regexp.MustCompile(`data da intimacao\s*:?\s*(\d{2}/\d{2}/\d{4})`)

// candidate classification produced by the heuristic pass.
type scored struct {
	cand         model.CertidaoCandidate
	receivedDate time.Time
	corroborated bool // movement complement agrees with the certificate text
}

// Select resolves the certificate for the given concern. Candidates whose
// text does not touch the concern at all are ignored; dispatch ("remessa")
// certificates are rejected; acceptance needs receipt wording, an explicit
// intimation date, or deemed service in the enclosing movement.
func (c *Calculator) Select(kind model.DeadlineKind, candidates []model.CertidaoCandidate) Selection {
	var accepted []scored
	for _, cand := range candidates {
		if !c.matchesKind(kind, cand) {
			continue
		}
		s, ok := c.score(cand)
		if !ok {
			continue
		}
		accepted = append(accepted, s)
	}

	if len(accepted) == 0 {
		return Selection{}
	}

	pick := func(s scored) Selection {
		return Selection{Deadline: &model.ValidatedDeadline{
			SourceDocumentID: s.cand.DocumentID,
			ReceivedDate:     s.receivedDate,
			TermStart:        NextBusinessDay(s.receivedDate),
			Kind:             kind,
		}}
	}

	if len(accepted) == 1 {
		return pick(accepted[0])
	}

	// Multiple acceptances: a lone corroborated candidate still decides.
	var corroborated []scored
	for _, s := range accepted {
		if s.corroborated {
			corroborated = append(corroborated, s)
		}
	}
	if len(corroborated) == 1 {
		return pick(corroborated[0])
	}

	zap.L().Debug("certificate selection inconclusive",
		zap.String("kind", string(kind)),
		zap.Int("accepted", len(accepted)),
		zap.Int("corroborated", len(corroborated)),
	)
	out := Selection{}
	for _, s := range accepted {
		out.Ambiguous = append(out.Ambiguous, s.cand)
	}
	return out
}

// matchesKind checks that the certificate or its movement touches the
// concern: citation wording for citation deadlines, impugnation/enforcement
// wording for enforcement notices.
func (c *Calculator) matchesKind(kind model.DeadlineKind, cand model.CertidaoCandidate) bool {
	var kw []string
	switch kind {
	case model.DeadlineCitation:
		kw = c.rules.Certidao.CitationKeywords
	case model.DeadlineEnforcementNotice:
		kw = c.rules.Certidao.EnforcementNoticeKeywords
	default:
		return false
	}
	return textutil.ContainsAnyFold(cand.Text, kw) ||
		textutil.ContainsAnyFold(cand.MovementComplement, kw)
}

// score runs the heuristic pass over one candidate. Returns false when the
// candidate is rejected (dispatch record or no receipt evidence).
func (c *Calculator) score(cand model.CertidaoCandidate) (scored, bool) {
	// An explicit intimation date trumps everything and is used verbatim.
	if d, ok := c.explicitIntimationDate(cand.Text); ok {
		return scored{cand: cand, receivedDate: d, corroborated: true}, true
	}

	// Deemed service by lapse of time: the movement date is the received
	// date, regardless of what the certificate text says.
	if textutil.ContainsAnyFold(cand.MovementComplement, c.rules.Certidao.DeemedServiceKeywords) &&
		!cand.MovementDate.IsZero() {
		return scored{cand: cand, receivedDate: cand.MovementDate, corroborated: true}, true
	}

	dispatch := textutil.ContainsAnyFold(cand.Text, c.rules.Certidao.DispatchKeywords)
	receipt := textutil.ContainsAnyFold(cand.Text, c.rules.Certidao.ReceiptKeywords)

	// A pure dispatch record proves sending, not notice.
	if dispatch && !receipt {
		return scored{}, false
	}
	if !receipt {
		return scored{}, false
	}

	return scored{
		cand:         cand,
		receivedDate: cand.Timestamp,
		corroborated: textutil.ContainsAnyFold(cand.MovementComplement, c.rules.Certidao.ReceiptKeywords),
	}, true
}

func (c *Calculator) explicitIntimationDate(text string) (time.Time, bool) {
	m := intimationDate.FindStringSubmatch(textutil.Fold(text))
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse("02/01/2006", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
