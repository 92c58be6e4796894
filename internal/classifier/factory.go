package classifier

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/juristec/caseintel/pkg/anthropic"
)

// New builds the backend named by cfg.Backend. An empty backend is not an
// error: it yields the Noop capability.
func New(ctx context.Context, cfg Config) (Capability, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, eris.New("classifier: anthropic backend requires an API key")
		}
		return NewAnthropic(anthropic.NewClient(cfg.APIKey), cfg.Model, cfg.MaxTokens), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, eris.New("classifier: gemini backend requires an API key")
		}
		client, err := NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGemini(client, cfg.Model), nil
	default:
		return nil, eris.Errorf("classifier: unknown backend %q", cfg.Backend)
	}
}
