package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyboard-server/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockImageSize(t *testing.T) {
	tests := []struct {
		aspect string
		w, h   int
	}{
		{"16:9", 480, 270},
		{"9:16", 480, 853},
		{"4:5", 480, 600},
		{"1:1", 480, 480},
		{"", 640, 360},
		{"wide", 640, 360},
		{"0:9", 640, 360},
	}
	for _, tt := range tests {
		w, h := service.MockImageSize(tt.aspect)
		assert.Equal(t, tt.w, w, tt.aspect)
		assert.Equal(t, tt.h, h, tt.aspect)
	}
}

func TestMockProvider_Image(t *testing.T) {
	m := service.NewMockProvider(0, 0)
	m.Now = func() time.Time { return time.UnixMilli(1700000000123) }

	url, err := m.GenerateImage(context.Background(), service.ImageRequest{ShotID: "shot-1a_b", AspectRatio: "16:9"})
	require.NoError(t, err)
	assert.Equal(t, "https://picsum.photos/seed/shot1ab-1700000000123/480/270", url)
}

func TestMockProvider_VideoNeedsImage(t *testing.T) {
	m := service.NewMockProvider(0, 0)

	_, err := m.GenerateVideo(context.Background(), service.VideoRequest{ShotID: "s"})
	assert.True(t, errors.Is(err, service.ErrImageRequired))

	url, err := m.GenerateVideo(context.Background(), service.VideoRequest{ShotID: "s", ImageURL: "https://img"})
	require.NoError(t, err)
	assert.Equal(t, service.MockVideoURL, url)
}

func TestMockProvider_CancelledDuringLatency(t *testing.T) {
	m := service.NewMockProvider(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GenerateImage(ctx, service.ImageRequest{ShotID: "s"})
	assert.True(t, errors.Is(err, service.ErrProviderFailed))
}
