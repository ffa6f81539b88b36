package image

import (
	"context"
	"time"
)

// Stock food photographs returned by the mock provider.
var (
	mockPhotos = [...]string{
		"https://images.unsplash.com/photo-Yn0l7uwBrpw?w=800&q=80",
		"https://images.unsplash.com/photo-jpkfc5_d-DI?w=800&q=80",
		"https://images.unsplash.com/photo-N_Y88TWmGwA?w=800&q=80",
		"https://images.unsplash.com/photo-MQUqbmszGGM?w=800&q=80",
	}
	mockEditPhoto = "https://images.unsplash.com/photo-tAKXap853rY?w=800&q=80"
)

// DefaultMockDelay simulates provider latency.
const DefaultMockDelay = 1500 * time.Millisecond

// MockGenerator returns stock photos after a fixed delay. It needs no
// credentials and is the default provider in development.
type MockGenerator struct {
	delay time.Duration
}

// NewMockGenerator creates a mock provider; a negative delay means none.
func NewMockGenerator(delay time.Duration) *MockGenerator {
	if delay < 0 {
		delay = 0
	}
	return &MockGenerator{delay: delay}
}

func (m *MockGenerator) Name() string { return "mock" }

// Generate waits for the configured delay or the context, whichever ends first.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	url := mockPhotos[((req.Variant%len(mockPhotos))+len(mockPhotos))%len(mockPhotos)]
	if req.Mode == ModeEdit {
		url = mockEditPhoto
	}
	res := &Result{URL: url, MIME: "image/jpeg", Width: 800, Height: 800}
	if m.delay == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return res, nil
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ Generator = (*MockGenerator)(nil)
