package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxSourceBytes bounds downloads of source images.
const maxSourceBytes = 20 << 20

// fetchImage downloads url and returns its bytes and content type.
func fetchImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(url), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build source request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download source image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read source image: %w", err)
	}
	if len(data) > maxSourceBytes {
		return nil, "", fmt.Errorf("source image exceeds %d bytes", maxSourceBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, normalizeFormat(mime), nil
}
