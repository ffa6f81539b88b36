package caption

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// New returns the captioner named by provider ("static" or "gemini").
func New(ctx context.Context, provider, apiKey, model string, logger zerolog.Logger) (Captioner, error) {
	switch provider {
	case "", "static":
		return NewStatic(), nil
	case "gemini":
		return NewGemini(ctx, apiKey, model, logger)
	default:
		return nil, fmt.Errorf("unknown caption provider %q", provider)
	}
}
