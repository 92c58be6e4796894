package classifier

import (
	"context"

	"github.com/juristec/caseintel/pkg/anthropic"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

// Anthropic classifies via the Anthropic message API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic builds the backend. model and maxTokens fall back to cheap
// defaults; classification answers are tiny.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens}
}

var _ Capability = (*Anthropic)(nil)

func (a *Anthropic) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	temp := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(text, labels)},
		},
	})
	if err != nil {
		return Result{}, err
	}
	resp.Usage.LogCost(a.model, "classify")
	return parseResult(resp.Text(), labels)
}
