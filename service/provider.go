package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrProviderFailed wraps every failure reported by a generation provider.
var ErrProviderFailed = errors.New("generation provider failed")

// MockVideoURL is the sample clip returned by the mock provider.
const MockVideoURL = "https://www.w3schools.com/html/mov_bbb.mp4"

type ImageRequest struct {
	ShotID      string
	FullID      string
	Prompt      string
	AspectRatio string
}

type VideoRequest struct {
	ShotID          string
	FullID          string
	Prompt          string
	ImageURL        string
	AspectRatio     string
	DurationSeconds int
}

// ImageGenerator returns a URL or a base64 data URI for the generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// VideoGenerator returns a URL for the generated clip.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (string, error)
}

// Generator produces both images and videos.
type Generator interface {
	ImageGenerator
	VideoGenerator
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// MockProvider stands in for a real model service: placeholder images sized
// from the aspect ratio and a fixed sample video.
type MockProvider struct {
	ImageLatency time.Duration
	VideoLatency time.Duration
	Now          func() time.Time
}

func NewMockProvider(imageLatency, videoLatency time.Duration) *MockProvider {
	return &MockProvider{ImageLatency: imageLatency, VideoLatency: videoLatency, Now: time.Now}
}

func (m *MockProvider) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if err := sleepContext(ctx, m.ImageLatency); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	w, h := MockImageSize(req.AspectRatio)
	seed := nonAlnum.ReplaceAllString(req.ShotID, "")
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/%d/%d", seed, m.now().UnixMilli(), w, h), nil
}

func (m *MockProvider) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if req.ImageURL == "" {
		return "", fmt.Errorf("%w: %s", ErrImageRequired, req.ShotID)
	}
	if err := sleepContext(ctx, m.VideoLatency); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return MockVideoURL, nil
}

func (m *MockProvider) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// MockImageSize is 480 wide with the height following the aspect ratio, or
// 640x360 when the ratio cannot be read.
func MockImageSize(aspect string) (int, int) {
	parts := strings.Split(aspect, ":")
	if len(parts) == 2 {
		w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return 480, int(math.Round(480 * h / w))
		}
	}
	return 640, 360
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
