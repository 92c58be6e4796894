package model

import "time"

// CertidaoChannel identifies who issued a notice certificate.
type CertidaoChannel string

const (
	ChannelSystem CertidaoChannel = "system" // emitted automatically by the court system
	ChannelClerk  CertidaoChannel = "clerk"  // emitted by the registry office
)

// CertidaoCandidate is one certificate under consideration for deadline
// computation, paired with the raw text the heuristics run over.
type CertidaoCandidate struct {
	DocumentID string          `json:"document_id"`
	Channel    CertidaoChannel `json:"channel"`
	Timestamp  time.Time       `json:"timestamp"`
	Text       string          `json:"text"`

	// MovementComplement is the complement text of the docket movement that
	// filed this certificate, used to corroborate the certificate text.
	MovementComplement string `json:"movement_complement,omitempty"`

	// MovementDate is when that movement happened. Under deemed service by
	// lapse of time it becomes the received date.
	MovementDate time.Time `json:"movement_date,omitempty"`
}

// DeadlineKind distinguishes the two independent certificate concerns.
type DeadlineKind string

const (
	DeadlineCitation          DeadlineKind = "citation"           // first notice of the case
	DeadlineEnforcementNotice DeadlineKind = "enforcement-notice" // notice to impugn/comply
)

// ValidatedDeadline is a resolved deadline term-start derived from one
// accepted certificate.
type ValidatedDeadline struct {
	SourceDocumentID string       `json:"source_document_id"`
	ReceivedDate     time.Time    `json:"received_date"`
	TermStart        time.Time    `json:"term_start"` // first business day after ReceivedDate
	Kind             DeadlineKind `json:"kind"`
}
