// Package image defines the generation provider capability and its backends.
package image

import (
	"context"
	"strings"
)

// Mode tells a provider whether it produces a fresh variant or edits one.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeEdit     Mode = "edit"
)

// Request asks a provider for one image.
type Request struct {
	Mode           Mode
	Prompt         string
	SourceImageURL string
	// Variant is the position of the prompt in a generation batch.
	Variant   int
	RequestID string
}

// Result is one generated image. Providers set URL, Data, or both.
type Result struct {
	URL    string
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

func normalizeFormat(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}
