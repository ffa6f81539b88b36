package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore keeps media on local disk. The API serves BasePath under /static,
// so baseURL usually ends in "/static".
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates root when missing.
func NewFileStore(root, baseURL string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", root, err)
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath returns the directory served as static content.
func (s *FileStore) BasePath() string { return s.root }

// Put stores data under folder with a fresh name and returns its public URL.
// The file appears under its final name only once fully written.
func (s *FileStore) Put(ctx context.Context, folder string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := sanitizeKey(objectKey(folder, contentType))
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := writeAtomic(target, data); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// sanitizeKey turns key into a clean relative slash path that stays below
// the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	cleaned := strings.TrimLeft(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(path.Clean(key), "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}

var _ Store = (*FileStore)(nil)
