// Package rules holds the data side of the heuristic cascades: class-code
// sets, document-type sets, and keyword lists. The defaults are embedded;
// deployments point rules.path at a YAML file to override them per tribunal.
package rules

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Enforcement drives the standalone-enforcement classification cascade.
type Enforcement struct {
	ClassCodes               []int    `yaml:"class_codes"`
	OriginalRulingTypeCodes  []int    `yaml:"original_ruling_type_codes"`
	CopiedRulingTypeCodes    []int    `yaml:"copied_ruling_type_codes"`
	PetitionTypeCodes        []int    `yaml:"petition_type_codes"`
	DistributionMovementCode int      `yaml:"distribution_movement_code"`
	Keywords                 []string `yaml:"keywords"`
	AttachmentKeywords       []string `yaml:"attachment_keywords"`
	DependencyKeywords       []string `yaml:"dependency_keywords"`
}

// Certidao drives certificate selection for deadline computation.
type Certidao struct {
	DocumentKeywords          []string `yaml:"document_keywords"`
	SystemChannelKeywords     []string `yaml:"system_channel_keywords"`
	DispatchKeywords          []string `yaml:"dispatch_keywords"`
	ReceiptKeywords           []string `yaml:"receipt_keywords"`
	DeemedServiceKeywords     []string `yaml:"deemed_service_keywords"`
	EnforcementNoticeKeywords []string `yaml:"enforcement_notice_keywords"`
	CitationKeywords          []string `yaml:"citation_keywords"`
}

// Appeal drives interlocutory-appeal candidate extraction and validation.
type Appeal struct {
	Synonyms            []string `yaml:"synonyms"`
	WindowRunes         int      `yaml:"window_runes"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	DecisionTypeCodes   []int    `yaml:"decision_type_codes"`
}

// Set is the full rule set consumed by parser, deadline, and appeal packages.
type Set struct {
	Enforcement Enforcement `yaml:"enforcement"`
	Certidao    Certidao    `yaml:"certidao"`
	Appeal      Appeal      `yaml:"appeal"`
}

// Default returns the embedded rule set.
func Default() (*Set, error) {
	return parse(defaultRules)
}

// Load reads a rule set from path, or the embedded defaults when path is
// empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	return parse(raw)
}

func parse(raw []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, eris.Wrap(err, "rules: unmarshal")
	}
	if s.Appeal.WindowRunes <= 0 {
		s.Appeal.WindowRunes = 200
	}
	if s.Appeal.SimilarityThreshold <= 0 {
		s.Appeal.SimilarityThreshold = 0.60
	}
	return &s, nil
}

// HasCode reports membership in a code set.
func HasCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
