// Package caption writes social media copy for a finished marketing image.
package caption

import (
	"context"
	"strings"
)

// Request describes the image to caption.
type Request struct {
	ImageURL    string
	Description string
	// Locale is "fr" or "en".
	Locale string
}

// Post is a ready-to-publish caption.
type Post struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Text renders the caption followed by its hashtags.
func (p Post) Text() string {
	if len(p.Hashtags) == 0 {
		return p.Caption
	}
	return p.Caption + "\n\n" + strings.Join(p.Hashtags, " ")
}

// Captioner produces social copy.
type Captioner interface {
	Caption(ctx context.Context, req Request) (*Post, error)
}

func normalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.Join(strings.Fields(tag), "")
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}
		tag = "#" + tag
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
