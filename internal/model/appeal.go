package model

import "time"

// AppealCandidate is a case number extracted from free text that may refer to
// a related interlocutory appeal.
type AppealCandidate struct {
	RawNumber  string `json:"raw_number"` // as it appeared in the text
	Number     string `json:"number"`     // canonical digits, empty if malformed
	Snippet    string `json:"snippet"`    // surrounding text window
	Provenance string `json:"provenance"` // e.g. "movement-complement", "document-text"
}

// RejectionReason is the machine-readable reason a candidate was rejected.
type RejectionReason string

const (
	RejectNoPartyMatch    RejectionReason = "no-party-match"
	RejectFetchFailed     RejectionReason = "fetch-failed"
	RejectMalformedNumber RejectionReason = "malformed-number"
)

// RejectedCandidate pairs a candidate with why it was discarded.
type RejectedCandidate struct {
	Candidate AppealCandidate `json:"candidate"`
	Reason    RejectionReason `json:"reason"`
	Detail    string          `json:"detail,omitempty"`
}

// ValidatedAppeal is a candidate confirmed by party-identity comparison
// against the origin case.
type ValidatedAppeal struct {
	Number          string    `json:"number"` // canonical digits
	Similarity      float64   `json:"similarity"`
	MatchedDocIDs   []string  `json:"matched_doc_ids,omitempty"` // decision/ruling documents
	NewestDocDate   time.Time `json:"newest_doc_date,omitempty"` // tie-break key for ranking
	MatchedParty    string    `json:"matched_party,omitempty"`
	OriginPartyName string    `json:"origin_party_name,omitempty"`
}
