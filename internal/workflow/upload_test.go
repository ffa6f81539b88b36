package workflow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"image4marketing/internal/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCheckUpload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		ok          bool
	}{
		{"jpeg", "image/jpeg", 1024, true},
		{"jpg alias", "image/jpg", 1024, true},
		{"png with params", "image/png; charset=binary", 1024, true},
		{"webp", "IMAGE/WEBP", 1024, true},
		{"gif", "image/gif", 1024, false},
		{"pdf", "application/pdf", 1024, false},
		{"empty", "image/png", 0, false},
		{"exactly 10MB", "image/png", 10 << 20, true},
		{"12MB", "image/png", 12 << 20, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUpload(tc.contentType, tc.size, 0)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUploadRejectsOversizedFileBeforeStorage(t *testing.T) {
	svc, env := newTestService(t)

	_, err := svc.Upload(context.Background(), UploadInput{ContentType: "image/jpeg", Data: make([]byte, 12<<20)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(domain.Message(err), "too large") {
		t.Fatalf("message = %q", domain.Message(err))
	}
	if env.media.count() != 0 || env.gen.calls() != 0 {
		t.Fatalf("side effects: %d puts, %d provider calls", env.media.count(), env.gen.calls())
	}
}

func TestUploadRejectsUndecodableImage(t *testing.T) {
	svc, env := newTestService(t)

	_, err := svc.Upload(context.Background(), UploadInput{ContentType: "image/png", Data: []byte("definitely not a png")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.media.count() != 0 {
		t.Fatalf("undecodable file was stored")
	}
}

func TestUploadStoresOriginalWithMetadata(t *testing.T) {
	svc, env := newTestService(t)
	data := pngBytes(t, 32, 16)

	// Declared type differs from the content; the decoded format wins.
	res, err := svc.Upload(context.Background(), UploadInput{ContentType: "image/jpeg", Data: data})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.ImageURL != "https://media.test/originals/1" {
		t.Fatalf("ImageURL = %q", res.ImageURL)
	}
	if res.UploadID != "1" {
		t.Fatalf("UploadID = %q, want the stored object name", res.UploadID)
	}
	want := ImageMetadata{Width: 32, Height: 16, Format: "png", Size: int64(len(data))}
	if res.Metadata != want {
		t.Fatalf("Metadata = %+v, want %+v", res.Metadata, want)
	}
	if len(env.media.puts) != 1 || env.media.puts[0] != (put{folder: "originals", contentType: "image/png", size: len(data)}) {
		t.Fatalf("unexpected puts %+v", env.media.puts)
	}
}

func TestUploadID(t *testing.T) {
	tests := map[string]string{
		"https://cdn.test/originals/5f0c2a4e-1111-4222-8333-944445555666.jpg": "5f0c2a4e-1111-4222-8333-944445555666",
		"http://localhost:8080/static/originals/abc.png?v=2":                  "abc",
		"/static/originals/local.webp":                                        "local",
	}
	for in, want := range tests {
		if got := uploadID(in); got != want {
			t.Fatalf("uploadID(%q) = %q, want %q", in, got, want)
		}
	}
	if got := uploadID("https://cdn.test/"); got == "" || got == "/" {
		t.Fatalf("expected a generated id for a bare host, got %q", got)
	}
}

func TestUploadStorageFailureIsProviderError(t *testing.T) {
	svc, env := newTestService(t)
	env.media.err = errUpstream

	_, err := svc.Upload(context.Background(), UploadInput{ContentType: "image/png", Data: pngBytes(t, 4, 4)})
	if !errors.Is(err, domain.ErrProviderFailure) || !errors.Is(err, errUpstream) {
		t.Fatalf("expected provider failure wrapping the cause, got %v", err)
	}
}
