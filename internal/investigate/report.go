package investigate

import (
	"time"

	"github.com/juristec/caseintel/internal/model"
)

// DeadlineFinding is the outcome of certificate resolution for one concern.
// Deadline is nil when no certificate survived; a non-empty Ambiguous list
// means several did and none could be corroborated.
type DeadlineFinding struct {
	Kind           model.DeadlineKind        `json:"kind"`
	Deadline       *model.ValidatedDeadline  `json:"deadline,omitempty"`
	Ambiguous      []model.CertidaoCandidate `json:"ambiguous,omitempty"`
	ClassifierUsed bool                      `json:"classifier_used,omitempty"`
}

// Report is the full product of one investigation.
type Report struct {
	CaseNumber  string    `json:"case_number"`
	GeneratedAt time.Time `json:"generated_at"`
	ElapsedMS   int64     `json:"elapsed_ms"`

	Case       *model.Case `json:"case"`
	OriginCase *model.Case `json:"origin_case,omitempty"`

	// OriginFetchError is set when the case is a standalone enforcement whose
	// origin could not be retrieved; the rest of the report still stands.
	OriginFetchError string `json:"origin_fetch_error,omitempty"`

	Deadlines []DeadlineFinding `json:"deadlines"`

	AcceptedAppeals []model.ValidatedAppeal   `json:"accepted_appeals,omitempty"`
	RejectedAppeals []model.RejectedCandidate `json:"rejected_appeals,omitempty"`
}
