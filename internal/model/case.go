// Package model holds the typed domain model shared across the retrieval and
// intelligence packages. Instances are created per call and owned by the
// caller; nothing here is shared mutable state.
package model

import "time"

// PartyRole distinguishes the two poles of a case.
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff" // polo ativo
	RoleDefendant PartyRole = "defendant" // polo passivo
)

// PersonType distinguishes natural persons from legal entities.
type PersonType string

const (
	PersonIndividual PersonType = "individual" // pessoa física (CPF, 11 digits)
	PersonEntity     PersonType = "entity"     // pessoa jurídica (CNPJ, 14 digits)
	PersonUnknown    PersonType = "unknown"
)

// Party is one litigant on a case.
type Party struct {
	Name        string     `json:"name"`
	Role        PartyRole  `json:"role"`
	PersonType  PersonType `json:"person_type"`
	TaxDocument string     `json:"tax_document,omitempty"` // CPF or CNPJ, digits only
}

// Movement is one procedural movement (movimentação) on the docket.
type Movement struct {
	NationalCode int       `json:"national_code,omitempty"` // CNJ movement table code
	LocalCode    int       `json:"local_code,omitempty"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	Complement   string    `json:"complement,omitempty"` // concatenated complemento text
}

// DocumentMetadata describes one filed document, without its content.
type DocumentMetadata struct {
	ID           string    `json:"id"`
	TypeCode     int       `json:"type_code"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	MimeType     string    `json:"mime_type,omitempty"`
	SecrecyLevel int       `json:"secrecy_level"`
}

// Case is the fully decoded view of one judicial case.
//
// Movements and Documents are always sorted newest-first.
// IsStandaloneEnforcement is derived by the parser's classification cascade
// and must never be set directly by callers.
type Case struct {
	Number    string             `json:"number"` // canonical 20 digits
	ClassCode int                `json:"class_code,omitempty"`
	Parties   []Party            `json:"parties"`
	Movements []Movement         `json:"movements"`
	Documents []DocumentMetadata `json:"documents"`

	OriginCaseNumber        string `json:"origin_case_number,omitempty"`
	IsStandaloneEnforcement bool   `json:"is_standalone_enforcement"`

	// EarliestPetitionDocID is set only when the case is classified as a
	// standalone enforcement but no origin number could be extracted from
	// the docket. The caller may resolve the origin from that document's
	// text by other means.
	EarliestPetitionDocID string `json:"earliest_petition_doc_id,omitempty"`

	// RawXML is the upstream response retained verbatim for audit.
	RawXML []byte `json:"-"`
}

// PartiesByRole returns the parties on the given pole.
func (c *Case) PartiesByRole(role PartyRole) []Party {
	var out []Party
	for _, p := range c.Parties {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Document returns the document with the given id, if present.
func (c *Case) Document(id string) (DocumentMetadata, bool) {
	for _, d := range c.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return DocumentMetadata{}, false
}

// DocumentResult is the per-id outcome of a batch document fetch. Exactly one
// of Content or Err is meaningful, per the result-per-unit policy.
type DocumentResult struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Content  []byte `json:"-"`
	Err      error  `json:"-"`
}

// Failed reports whether this document fetch failed.
func (r DocumentResult) Failed() bool { return r.Err != nil }
