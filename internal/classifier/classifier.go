// Package classifier is an optional LLM-backed capability used to
// disambiguate docket text when the deterministic heuristics cannot decide,
// e.g. several uncorroborated service certificates. Backends are pluggable;
// when none is configured every call fails with ErrUnavailable and the
// caller falls back to surfacing the ambiguity.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnavailable means no classifier backend is configured.
var ErrUnavailable = eris.New("classifier: no backend configured")

// Result is one classification verdict.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Capability classifies a piece of text into one of the given labels.
type Capability interface {
	Classify(ctx context.Context, text string, labels []string) (Result, error)
}

// Config selects and tunes a backend.
type Config struct {
	Backend   string // "anthropic", "gemini" or "" (disabled)
	Model     string
	APIKey    string
	MaxTokens int64
}

// Noop is the disabled backend.
type Noop struct{}

func (Noop) Classify(context.Context, string, []string) (Result, error) {
	return Result{}, ErrUnavailable
}

var _ Capability = Noop{}

// buildPrompt frames the classification for either backend. Labels are the
// only admissible answers; the model must answer in JSON.
func buildPrompt(text string, labels []string) string {
	return fmt.Sprintf(`Você é um assistente jurídico. Classifique o trecho de andamento processual abaixo em exatamente um dos rótulos permitidos.

Rótulos permitidos: %s

Trecho:
%s

Responda somente com JSON no formato {"label": "...", "confidence": 0.0}.`,
		strings.Join(labels, ", "), text)
}

// parseResult decodes a backend answer, tolerating surrounding prose and
// markdown fences. The label must be one of the requested ones.
func parseResult(answer string, labels []string) (Result, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return Result{}, eris.Errorf("classifier: no JSON object in answer %q", answer)
	}

	var res Result
	if err := json.Unmarshal([]byte(answer[start:end+1]), &res); err != nil {
		return Result{}, eris.Wrap(err, "classifier: decode answer")
	}
	for _, l := range labels {
		if res.Label == l {
			return res, nil
		}
	}
	return Result{}, eris.Errorf("classifier: label %q not among requested labels", res.Label)
}
