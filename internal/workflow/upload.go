package workflow

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"image4marketing/internal/domain"
)

// DefaultMaxUploadBytes caps uploaded originals.
const DefaultMaxUploadBytes = 10 << 20

// acceptedTypes are the declared content types an upload may carry.
var acceptedTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ImageMetadata describes an accepted upload.
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// CheckUpload validates the declared type and size of an upload. It runs
// before the body is read so oversized files are refused early.
func CheckUpload(contentType string, size, limit int64) error {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	if _, ok := acceptedTypes[normalizeType(contentType)]; !ok {
		return domain.Validation("unsupported file type: only JPEG, PNG and WebP images are accepted")
	}
	if size <= 0 {
		return domain.Validation("file is empty")
	}
	if size > limit {
		return domain.Validation(fmt.Sprintf("file too large: the maximum size is %d MB", limit>>20))
	}
	return nil
}

// inspectImage decodes the header of data and returns its metadata. The
// decoded format must be one of the accepted ones.
func inspectImage(data []byte) (ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageMetadata{}, domain.Validation("file is not a readable image")
	}
	switch format {
	case "jpeg", "png", "webp":
	default:
		return ImageMetadata{}, domain.Validation("unsupported image format " + format)
	}
	return ImageMetadata{Width: cfg.Width, Height: cfg.Height, Format: format, Size: int64(len(data))}, nil
}

func normalizeType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func mimeFor(format string) string {
	return "image/" + format
}
