// Package qwen calls the DashScope multimodal generation endpoint used by the
// Qwen image edit models.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL  = "https://dashscope-intl.aliyuncs.com"
	defaultModel    = "qwen-image-edit"
	defaultSize     = "1328*1328"
	defaultMaxBytes = 20 << 20
	generationPath  = "/services/aigc/multimodal-generation/generation"
)

// ErrNoCredentials is returned by Edit when no API key is configured.
var ErrNoCredentials = errors.New("qwen: api key is required")

// APIError is a non-success answer from DashScope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("qwen: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("qwen: %s (%s)", e.Message, e.Code)
}

// Transient reports failures worth one more attempt: server side errors and
// DashScope's generic InternalError.
func (e *APIError) Transient() bool {
	return e.Status >= http.StatusInternalServerError || strings.EqualFold(e.Code, "InternalError")
}

// Unauthorized reports a rejected or expired key.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden ||
		strings.EqualFold(e.Code, "InvalidApiKey")
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Size is the output size in DashScope's "W*H" notation.
	Size       string
	Watermark  bool
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// MaxImageBytes caps the download of the produced image.
	MaxImageBytes int64
}

// Client edits food photos through DashScope.
type Client struct {
	apiKey    string
	endpoint  string
	model     string
	size      string
	watermark bool
	maxBytes  int64
	http      *http.Client
	logger    zerolog.Logger
}

// EditRequest describes one edit. Without a SourceImageURL the model
// generates from the text alone.
type EditRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
	RequestID      string
	SourceImageURL string
}

// Output is the downloaded result of an edit.
type Output struct {
	URL    string
	Data   []byte
	MIME   string
	Width  int
	Height int
}

type payload struct {
	Model      string     `json:"model"`
	Input      input      `json:"input"`
	Parameters parameters `json:"parameters"`
}

type input struct {
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content []part `json:"content"`
}

type part struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type parameters struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	Watermark      bool   `json:"watermark"`
	Seed           int    `json:"seed,omitempty"`
}

type answer struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Output    struct {
		Choices []struct {
			Message struct {
				Content []part `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
}

// New builds a Client. Empty fields take DashScope's international defaults.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	base = strings.TrimSuffix(base, "/api/v1") + "/api/v1"

	c := &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		endpoint:  base + generationPath,
		model:     firstNonEmpty(cfg.Model, defaultModel),
		size:      firstNonEmpty(cfg.Size, defaultSize),
		watermark: cfg.Watermark,
		maxBytes:  cfg.MaxImageBytes,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}
	if c.maxBytes <= 0 {
		c.maxBytes = defaultMaxBytes
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// HasCredentials reports whether Edit can reach the API.
func (c *Client) HasCredentials() bool { return c.apiKey != "" }

// Edit submits req and downloads the produced image.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*Output, error) {
	if !c.HasCredentials() {
		return nil, ErrNoCredentials
	}
	body, err := c.payloadFor(req)
	if err != nil {
		return nil, err
	}
	ans, err := c.post(ctx, body, req.RequestID)
	if err != nil {
		return nil, err
	}
	imageURL := ans.imageURL()
	if imageURL == "" {
		return nil, errors.New("qwen: answer carries no image")
	}
	out, err := c.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	out.Width, out.Height = ans.Usage.Width, ans.Usage.Height
	if out.Width == 0 || out.Height == 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data)); err == nil {
			out.Width, out.Height = cfg.Width, cfg.Height
		}
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("dashscope_request_id", ans.RequestID).
		Int("bytes", len(out.Data)).
		Msg("qwen edit done")
	return out, nil
}

func (c *Client) payloadFor(req EditRequest) ([]byte, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("qwen: prompt is required")
	}
	msg := message{Role: "user"}
	if src := strings.TrimSpace(req.SourceImageURL); src != "" {
		msg.Content = append(msg.Content, part{Image: src})
	}
	msg.Content = append(msg.Content, part{Text: prompt})

	p := payload{
		Model: c.model,
		Input: input{Messages: []message{msg}},
		Parameters: parameters{
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Size:           firstNonEmpty(req.Size, c.size),
			Watermark:      c.watermark,
		},
	}
	if req.Seed > 0 {
		p.Parameters.Seed = req.Seed
	}
	return json.Marshal(p)
}

func (c *Client) post(ctx context.Context, body []byte, requestID string) (*answer, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: post: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("qwen: read answer: %w", err)
	}

	var ans answer
	decodeErr := json.Unmarshal(raw, &ans)
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Code: ans.Code, Message: ans.Message}
		if decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("qwen: decode answer: %w", decodeErr)
	}
	if ans.Code != "" {
		return nil, &APIError{Status: resp.StatusCode, Code: ans.Code, Message: ans.Message}
	}
	return &ans, nil
}

func (c *Client) fetch(ctx context.Context, imageURL string) (*Output, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("qwen: invalid image url %q: %w", imageURL, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qwen: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qwen: download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("qwen: download image: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("qwen: image larger than %d bytes", c.maxBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &Output{URL: imageURL, Data: data, MIME: mime}, nil
}

func (a *answer) imageURL() string {
	for _, choice := range a.Output.Choices {
		for _, p := range choice.Message.Content {
			if u := strings.TrimSpace(p.Image); u != "" {
				return u
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
