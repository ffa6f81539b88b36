package caption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const systemPrompt = `You write Instagram and Facebook posts for small restaurants.
Given a food marketing photo and an optional description, answer with JSON only:
{"caption": "<2 to 4 engaging sentences with a call to action>", "hashtags": ["<8 to 12 hashtags>"]}`

const maxImageBytes = 10 << 20

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini text model to caption the image.
type Gemini struct {
	models     contentGenerator
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewGemini creates a Gemini API client for captioning.
func NewGemini(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("caption: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("caption: new gemini client: %w", err)
	}
	return newGemini(client.Models, model, nil, logger), nil
}

func newGemini(models contentGenerator, model string, httpClient *http.Client, logger zerolog.Logger) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Gemini{models: models, model: model, httpClient: httpClient, logger: logger}
}

func (g *Gemini) Caption(ctx context.Context, req Request) (*Post, error) {
	var parts []*genai.Part
	if data, mime, err := g.download(ctx, req.ImageURL); err != nil {
		// The description alone still yields a usable post.
		g.logger.Warn().Err(err).Str("image_url", req.ImageURL).Msg("caption: image not attached")
	} else {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}
	parts = append(parts, &genai.Part{Text: userPrompt(req)})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
	}
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		return nil, fmt.Errorf("caption: generate content: %w", err)
	}
	if resp == nil {
		return nil, errors.New("caption: empty response")
	}
	text := resp.Text()
	g.logger.Debug().Int("response_length", len(text)).Dur("duration", time.Since(start)).Msg("caption: gemini response")
	return parsePost(text)
}

func userPrompt(req Request) string {
	lang := "English"
	if req.Locale == "fr" {
		lang = "French"
	}
	var b strings.Builder
	b.WriteString("Write the post in ")
	b.WriteString(lang)
	b.WriteString(".")
	if d := strings.TrimSpace(req.Description); d != "" {
		b.WriteString(" The owner describes the dish as: ")
		b.WriteString(d)
	}
	return b.String()
}

func parsePost(text string) (*Post, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	var post Post
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &post); err != nil {
		return nil, fmt.Errorf("caption: parse response: %w", err)
	}
	post.Caption = strings.TrimSpace(post.Caption)
	if post.Caption == "" {
		return nil, errors.New("caption: empty caption in response")
	}
	post.Hashtags = normalizeHashtags(post.Hashtags)
	return &post, nil
}

func (g *Gemini) download(ctx context.Context, url string) ([]byte, string, error) {
	if strings.TrimSpace(url) == "" {
		return nil, "", errors.New("no image url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

var _ Captioner = (*Gemini)(nil)
