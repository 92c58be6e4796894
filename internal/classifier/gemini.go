package classifier

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini classifies via the Google GenAI API using structured output, so
// the answer is guaranteed-parseable JSON.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds the backend.
func NewGemini(client *genai.Client, model string) *Gemini {
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}
}

var _ Capability = (*Gemini)(nil)

func classifySchema(labels []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"label": {
				Type: genai.TypeString,
				Enum: labels,
			},
			"confidence": {
				Type: genai.TypeNumber,
			},
		},
		Required: []string{"label", "confidence"},
	}
}

func (g *Gemini) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	content := genai.NewContentFromText(buildPrompt(text, labels), genai.RoleUser)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   classifySchema(labels),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, config)
	if err != nil {
		return Result{}, eris.Wrap(err, "classifier: gemini generate")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, eris.New("classifier: gemini returned no candidates")
	}
	return parseResult(resp.Candidates[0].Content.Parts[0].Text, labels)
}

// NewGeminiClient dials the GenAI API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "classifier: dial gemini")
	}
	return client, nil
}
