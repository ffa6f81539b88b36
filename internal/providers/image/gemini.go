package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// contentGenerator is satisfied by (*genai.Client).Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures the Gemini image provider.
type GeminiOptions struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// GeminiGenerator renders food photos with a Gemini image model, conditioned
// on the uploaded source photo.
type GeminiGenerator struct {
	models     contentGenerator
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewGeminiGenerator creates the genai client for the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return newGeminiGenerator(client.Models, opts), nil
}

func newGeminiGenerator(models contentGenerator, opts GeminiOptions) *GeminiGenerator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiGenerator{models: models, model: model, httpClient: httpClient, logger: logger}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate sends the source photo and the prompt and returns the first inline
// image of the response.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("gemini: prompt is required")
	}

	var parts []*genai.Part
	if src := strings.TrimSpace(req.SourceImageURL); src != "" {
		data, mime, err := fetchImage(ctx, g.httpClient, src)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}
	parts = append(parts, &genai.Part{Text: instructionFor(req.Mode, prompt)})

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	blob := firstInlineImage(resp)
	if blob == nil {
		return nil, errors.New("gemini: response contained no image")
	}
	g.logger.Debug().
		Str("model", g.model).
		Str("mode", string(req.Mode)).
		Int("variant", req.Variant).
		Int("bytes", len(blob.Data)).
		Dur("duration", time.Since(start)).
		Msg("gemini: generated image")
	return &Result{Data: blob.Data, MIME: normalizeFormat(blob.MIMEType)}, nil
}

func instructionFor(mode Mode, prompt string) string {
	if mode == ModeEdit {
		return "Edit this food photograph. Keep the dish recognisable and apply: " + prompt
	}
	return "Restage this food photograph as a marketing image. " + prompt
}

func firstInlineImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 &&
				strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				return part.InlineData
			}
		}
	}
	return nil
}

var _ Generator = (*GeminiGenerator)(nil)
