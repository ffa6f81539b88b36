// Package storage hosts uploaded originals and generated images.
package storage

import (
	"context"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store persists media and returns a public URL for it.
type Store interface {
	Put(ctx context.Context, folder string, data []byte, contentType string) (string, error)
}

// extensionFor maps a content type onto a file extension.
func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// objectKey builds a fresh key under folder.
func objectKey(folder, contentType string) string {
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+extensionFor(contentType))
}
