package completion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/config"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// FromPipeline builds the completer selected by p.Provider.
func FromPipeline(ctx context.Context, p config.Pipeline, logger *zap.Logger) (Completer, error) {
	switch p.Provider {
	case config.ProviderOpenAI:
		return NewClient(p.APIKey,
			WithBaseURL(p.BaseURL),
			WithTimeout(p.CompletionTimeout),
			WithLogger(logger),
		), nil
	case config.ProviderGemini:
		model := p.Model
		if model == prompt.DefaultModel {
			model = ""
		}
		return NewGemini(ctx, p.APIKey, model, logger)
	}
	return nil, fmt.Errorf("unknown completion provider %q", p.Provider)
}
