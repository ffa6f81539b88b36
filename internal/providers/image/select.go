package image

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"image4marketing/internal/providers/qwen"
)

// Config selects and configures the generation provider at startup.
type Config struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	QwenAPIKey   string
	QwenBaseURL  string
	QwenModel    string
	MockDelay    time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// New returns the provider named by cfg.Provider. Unknown names are a
// configuration error.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockGenerator(cfg.MockDelay), nil
	case "gemini":
		return NewGeminiGenerator(ctx, GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			HTTPClient: cfg.HTTPClient,
			Logger:     &cfg.Logger,
		})
	case "qwen":
		client := qwen.New(qwen.Config{
			APIKey:     cfg.QwenAPIKey,
			BaseURL:    cfg.QwenBaseURL,
			Model:      cfg.QwenModel,
			Size:       DefaultSize,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		})
		if !client.HasCredentials() {
			cfg.Logger.Warn().Msg("qwen api key missing, serving mock images")
		}
		return NewQwenGenerator(client, NewMockGenerator(cfg.MockDelay)), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
