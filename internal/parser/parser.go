// Package parser decodes MNI consultarProcesso responses into the typed
// domain model. It matches elements by local name only — tribunal deployments
// disagree on namespace prefixes — and projects the generic tree through
// explicit field mappings so a missing required field is a ParseError, never
// a silent zero value.
package parser

import (
	"encoding/base64"
	"sort"
	"strconv"
	"time"

	"github.com/juristec/caseintel/internal/cnj"
	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/resilience"
	"github.com/juristec/caseintel/internal/rules"
)

// Parser projects raw MNI XML into model types and runs the
// standalone-enforcement classification cascade.
type Parser struct {
	rules *rules.Set
}

// New creates a parser with the given rule set.
func New(rs *rules.Set) *Parser {
	return &Parser{rules: rs}
}

// ParseCase decodes one consultarProcesso response. The raw bytes are
// retained on the returned Case for audit.
func (p *Parser) ParseCase(raw []byte) (*model.Case, error) {
	root, err := buildTree(raw)
	if err != nil {
		return nil, err
	}

	if fault := root.Find("Fault"); fault != nil {
		return nil, &resilience.ParseError{Msg: "mni: soap fault: " + faultText(fault)}
	}

	basics := root.Find("dadosBasicos")
	if basics == nil {
		return nil, &resilience.ParseError{Msg: "mni: response has no dadosBasicos element"}
	}

	number, err := cnj.Normalize(basics.Attr("numero"))
	if err != nil {
		return nil, &resilience.ParseError{Msg: "mni: dadosBasicos has no valid case number", Err: err}
	}

	c := &model.Case{
		Number: number,
		RawXML: raw,
	}
	if code := basics.Attr("classeProcessual"); code != "" {
		if n, err := strconv.Atoi(code); err == nil {
			c.ClassCode = n
		}
	}

	c.Parties = parseParties(basics)

	proc := root.Find("processo")
	if proc == nil {
		proc = root
	}
	c.Movements = parseMovements(proc)
	c.Documents = parseDocumentMetadata(proc)

	// Newest-first ordering is an invariant the heuristics depend on.
	sort.SliceStable(c.Movements, func(i, j int) bool {
		return c.Movements[i].Timestamp.After(c.Movements[j].Timestamp)
	})
	sort.SliceStable(c.Documents, func(i, j int) bool {
		return c.Documents[i].Timestamp.After(c.Documents[j].Timestamp)
	})

	p.classifyEnforcement(c)

	return c, nil
}

func faultText(fault *Node) string {
	if s := fault.Find("faultstring"); s != nil {
		return s.TrimmedText()
	}
	if s := fault.Find("Reason"); s != nil {
		return s.TrimmedText()
	}
	return "unknown fault"
}

// parseParties walks polo → parte → pessoa. The polo attribute carries the
// pole: AT (ativo) is the plaintiff side, PA (passivo) the defendant side.
func parseParties(basics *Node) []model.Party {
	var parties []model.Party
	for _, polo := range basics.FindAll("polo") {
		var role model.PartyRole
		switch polo.Attr("polo") {
		case "AT":
			role = model.RolePlaintiff
		case "PA":
			role = model.RoleDefendant
		default:
			// Other poles (third parties, prosecutors) are not litigants.
			continue
		}
		for _, parte := range polo.FindAll("parte") {
			pessoa := parte.Find("pessoa")
			if pessoa == nil {
				continue
			}
			name := pessoa.Attr("nome")
			if name == "" {
				continue
			}
			parties = append(parties, model.Party{
				Name:        name,
				Role:        role,
				TaxDocument: pessoa.Attr("numeroDocumentoPrincipal"),
				PersonType:  personType(pessoa),
			})
		}
	}
	return parties
}

// personType prefers the explicit tipoPessoa attribute and falls back to the
// tax-document digit count: 11 (CPF) means individual, 14 (CNPJ) entity.
func personType(pessoa *Node) model.PersonType {
	switch pessoa.Attr("tipoPessoa") {
	case "fisica":
		return model.PersonIndividual
	case "juridica":
		return model.PersonEntity
	}
	switch len(pessoa.Attr("numeroDocumentoPrincipal")) {
	case 11:
		return model.PersonIndividual
	case 14:
		return model.PersonEntity
	}
	return model.PersonUnknown
}

func parseMovements(proc *Node) []model.Movement {
	var movements []model.Movement
	for _, mv := range proc.FindAll("movimento") {
		m := model.Movement{
			Timestamp: parseTimestamp(mv.Attr("dataHora")),
		}

		national := mv.Find("movimentoNacional")
		if national != nil {
			if n, err := strconv.Atoi(national.Attr("codigoNacional")); err == nil {
				m.NationalCode = n
			}
		}
		local := mv.Find("movimentoLocal")
		if local != nil {
			if n, err := strconv.Atoi(local.Attr("codigoMovimento")); err == nil {
				m.LocalCode = n
			}
		}

		// Local description first; national text when the local one is empty.
		m.Description = elementText(local, "descricao")
		if m.Description == "" {
			m.Description = elementText(national, "descricao")
		}

		m.Complement = joinComplements(mv)
		movements = append(movements, m)
	}
	return movements
}

// elementText reads a description either as an attribute or as a child
// element — tribunals emit both shapes.
func elementText(n *Node, name string) string {
	if n == nil {
		return ""
	}
	if v := n.Attr(name); v != "" {
		return v
	}
	return n.Child(name).TrimmedText()
}

// joinComplements concatenates every complemento under the movement,
// regardless of nesting level, separated by single spaces.
func joinComplements(mv *Node) string {
	var joined string
	for _, c := range mv.FindAll("complemento") {
		t := c.TrimmedText()
		if t == "" {
			continue
		}
		if joined != "" {
			joined += " "
		}
		joined += t
	}
	return joined
}

func parseDocumentMetadata(proc *Node) []model.DocumentMetadata {
	var docs []model.DocumentMetadata
	for _, d := range proc.FindAll("documento") {
		id := d.Attr("idDocumento")
		if id == "" {
			continue
		}
		doc := model.DocumentMetadata{
			ID:          id,
			Description: d.Attr("descricao"),
			Timestamp:   parseTimestamp(d.Attr("dataHora")),
			MimeType:    d.Attr("mimetype"),
		}
		if n, err := strconv.Atoi(d.Attr("tipoDocumento")); err == nil {
			doc.TypeCode = n
		}
		if n, err := strconv.Atoi(d.Attr("nivelSigilo")); err == nil {
			doc.SecrecyLevel = n
		}
		docs = append(docs, doc)
	}
	return docs
}

// DocumentContent is one document body returned by a batch fetch.
type DocumentContent struct {
	ID       string
	MimeType string
	Content  []byte
}

// ParseDocumentContents decodes the documents in a batch-fetch response.
// Document bodies arrive base64-encoded in conteudo elements.
func (p *Parser) ParseDocumentContents(raw []byte) ([]DocumentContent, error) {
	root, err := buildTree(raw)
	if err != nil {
		return nil, err
	}
	if fault := root.Find("Fault"); fault != nil {
		return nil, &resilience.ParseError{Msg: "mni: soap fault: " + faultText(fault)}
	}

	var out []DocumentContent
	for _, d := range root.FindAll("documento") {
		id := d.Attr("idDocumento")
		if id == "" {
			continue
		}
		dc := DocumentContent{
			ID:       id,
			MimeType: d.Attr("mimetype"),
		}
		if conteudo := d.Find("conteudo"); conteudo != nil {
			decoded, err := base64.StdEncoding.DecodeString(conteudo.TrimmedText())
			if err != nil {
				return nil, &resilience.ParseError{Msg: "mni: document " + id + " content is not valid base64", Err: err}
			}
			dc.Content = decoded
		}
		out = append(out, dc)
	}
	return out, nil
}

// timestampLayouts are tried in order; MNI emits second-resolution compact
// timestamps but some tribunals truncate to dates.
var timestampLayouts = []string{
	"20060102150405",
	"20060102",
	time.RFC3339,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
