package parser

import (
	"time"

	"github.com/juristec/caseintel/internal/cnj"
	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/rules"
	"github.com/juristec/caseintel/internal/textutil"
)

// The standalone-enforcement classification is an ordered first-match-wins
// cascade. Each step is a pure function of the case; the first step that
// reaches a verdict decides, and later steps never run.

// verdict is the outcome of one cascade step.
type verdict struct {
	decided     bool
	enforcement bool
	origin      string // extracted origin case number, canonical digits
}

type cascadeStep struct {
	name string
	eval func(p *Parser, c *model.Case) verdict
}

var enforcementCascade = []cascadeStep{
	{"original-ruling-present", (*Parser).stepOriginalRuling},
	{"enforcement-class-code", (*Parser).stepEnforcementClass},
	{"dependency-distribution", (*Parser).stepDependencyDistribution},
	{"copied-ruling-documents", (*Parser).stepCopiedRulings},
	{"attachment-mention", (*Parser).stepAttachmentMention},
}

// classifyEnforcement runs the cascade and records the derived verdict on c,
// including the origin case number when one could be extracted. When the
// case is an enforcement but no origin was found, the earliest petition
// document id is exposed so the caller can resolve the origin by other means
// — it is reported, never guessed.
func (p *Parser) classifyEnforcement(c *model.Case) {
	for _, step := range enforcementCascade {
		v := step.eval(p, c)
		if !v.decided {
			continue
		}
		c.IsStandaloneEnforcement = v.enforcement
		c.OriginCaseNumber = v.origin
		if v.enforcement && v.origin == "" {
			c.EarliestPetitionDocID = p.earliestPetitionDoc(c)
		}
		return
	}
	c.IsStandaloneEnforcement = false
}

// stepOriginalRuling: a case holding an original ruling document cannot be a
// derived enforcement — the ruling already lives here.
func (p *Parser) stepOriginalRuling(c *model.Case) verdict {
	for _, d := range c.Documents {
		if rules.HasCode(p.rules.Enforcement.OriginalRulingTypeCodes, d.TypeCode) {
			return verdict{decided: true, enforcement: false}
		}
	}
	return verdict{}
}

// stepEnforcementClass: the procedural class itself marks an enforcement.
func (p *Parser) stepEnforcementClass(c *model.Case) verdict {
	if rules.HasCode(p.rules.Enforcement.ClassCodes, c.ClassCode) {
		return verdict{decided: true, enforcement: true, origin: p.originFromDocket(c)}
	}
	return verdict{}
}

// stepDependencyDistribution: a "distributed by dependency" movement whose
// complement mentions enforcement phrasing. The origin number is extracted
// from that same complement.
func (p *Parser) stepDependencyDistribution(c *model.Case) verdict {
	for _, m := range c.Movements {
		// The movement must be a distribution (national code) or at least
		// phrase itself as one, and its complement must carry both the
		// dependency wording and enforcement phrasing.
		if m.NationalCode != p.rules.Enforcement.DistributionMovementCode &&
			!textutil.ContainsFold(m.Description, "distribu") {
			continue
		}
		if !textutil.ContainsAnyFold(m.Complement, p.rules.Enforcement.DependencyKeywords) {
			continue
		}
		if !textutil.ContainsAnyFold(m.Complement, p.rules.Enforcement.Keywords) {
			continue
		}
		return verdict{
			decided:     true,
			enforcement: true,
			origin:      p.originFromText(m.Complement, c.Number),
		}
	}
	return verdict{}
}

// stepCopiedRulings: copies (not originals) of rulings, appellate decisions,
// or final-judgment certificates indicate the originals live elsewhere.
func (p *Parser) stepCopiedRulings(c *model.Case) verdict {
	for _, d := range c.Documents {
		if rules.HasCode(p.rules.Enforcement.CopiedRulingTypeCodes, d.TypeCode) {
			return verdict{decided: true, enforcement: true, origin: p.originFromDocket(c)}
		}
	}
	return verdict{}
}

// stepAttachmentMention: a movement saying the case is attached to another
// one, together with enforcement wording.
func (p *Parser) stepAttachmentMention(c *model.Case) verdict {
	for _, m := range c.Movements {
		if !textutil.ContainsAnyFold(m.Complement, p.rules.Enforcement.AttachmentKeywords) {
			continue
		}
		if !textutil.ContainsAnyFold(m.Complement, p.rules.Enforcement.Keywords) {
			continue
		}
		return verdict{
			decided:     true,
			enforcement: true,
			origin:      p.originFromText(m.Complement, c.Number),
		}
	}
	return verdict{}
}

// originFromText returns the first well-formed CNJ number in text that is
// not the case's own number.
func (p *Parser) originFromText(text, own string) string {
	for _, n := range cnj.FindAll(text) {
		if n != own {
			return n
		}
	}
	return ""
}

// originFromDocket scans every movement complement for a foreign case
// number, newest movement first.
func (p *Parser) originFromDocket(c *model.Case) string {
	for _, m := range c.Movements {
		if n := p.originFromText(m.Complement, c.Number); n != "" {
			return n
		}
	}
	return ""
}

// earliestPetitionDoc returns the id of the oldest petition-type document,
// or "" when the case has none.
func (p *Parser) earliestPetitionDoc(c *model.Case) string {
	var best string
	var bestTime time.Time
	for _, d := range c.Documents {
		if !rules.HasCode(p.rules.Enforcement.PetitionTypeCodes, d.TypeCode) {
			continue
		}
		if best == "" || d.Timestamp.Before(bestTime) {
			best = d.ID
			bestTime = d.Timestamp
		}
	}
	return best
}
