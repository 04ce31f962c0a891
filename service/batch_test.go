package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storyboard-server/service"
	"storyboard-server/storyboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateImage(ctx context.Context, req service.ImageRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) GenerateVideo(ctx context.Context, req service.VideoRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// memoryShots records every status a shot passes through.
type memoryShots struct {
	mu      sync.Mutex
	shots   map[string]*storyboard.Shot
	history map[string][]storyboard.GenerationStatus
}

func newMemoryShots(shots ...storyboard.Shot) *memoryShots {
	m := &memoryShots{shots: map[string]*storyboard.Shot{}, history: map[string][]storyboard.GenerationStatus{}}
	for i := range shots {
		sh := shots[i]
		m.shots[sh.ID] = &sh
	}
	return m
}

func (m *memoryShots) ApplyShot(_ context.Context, _ string, shotID string, fn func(*storyboard.Shot)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.shots[shotID]
	if !ok {
		return storyboard.ErrShotNotFound
	}
	fn(sh)
	m.history[shotID] = append(m.history[shotID], sh.ImageStatus)
	return nil
}

func testShots(n int) []storyboard.Shot {
	out := make([]storyboard.Shot, n)
	for i := range out {
		out[i] = storyboard.Shot{
			ID:          string(rune('a' + i)),
			FullID:      "1." + string(rune('1'+i)),
			Prompts:     storyboard.Prompts{Image: "prompt " + string(rune('a'+i))},
			AspectRatio: "16:9",
			ImageStatus: storyboard.StatusIdle,
			VideoStatus: storyboard.StatusIdle,
		}
	}
	return out
}

func TestBatchRunner_SequentialWithFailures(t *testing.T) {
	shots := testShots(3)
	store := newMemoryShots(shots...)
	gen := &mockGenerator{}

	var order []string
	record := func(args mock.Arguments) { order = append(order, args.Get(1).(service.ImageRequest).ShotID) }
	gen.On("GenerateImage", mock.Anything, mock.MatchedBy(func(r service.ImageRequest) bool { return r.ShotID == "a" })).
		Run(record).Return("https://img/a", nil).Once()
	gen.On("GenerateImage", mock.Anything, mock.MatchedBy(func(r service.ImageRequest) bool { return r.ShotID == "b" })).
		Run(record).Return("", errors.New("provider down")).Once()
	gen.On("GenerateImage", mock.Anything, mock.MatchedBy(func(r service.ImageRequest) bool { return r.ShotID == "c" })).
		Run(record).Return("https://img/c", nil).Once()

	var sleeps []time.Duration
	runner := service.NewBatchRunner(gen, store, zap.NewNop(),
		service.WithDelay(750*time.Millisecond),
		service.WithSleep(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}))

	var reports []service.BatchProgress
	final := runner.Run(context.Background(), "p1", service.MediaImage, shots, "16:9", func(bp service.BatchProgress) {
		reports = append(reports, bp)
	})

	gen.AssertExpectations(t)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []time.Duration{750 * time.Millisecond, 750 * time.Millisecond, 750 * time.Millisecond}, sleeps)
	assert.Equal(t, service.BatchProgress{Done: 3, Completed: 2, Failed: 1, Total: 3, LastURL: "https://img/c"}, final)
	require.Len(t, reports, 3)
	assert.Equal(t, 1, reports[0].Done)

	assert.Equal(t, storyboard.StatusGenerated, store.shots["a"].ImageStatus)
	assert.Equal(t, "https://img/a", store.shots["a"].ImageURL)
	assert.Equal(t, storyboard.StatusError, store.shots["b"].ImageStatus)
	assert.Equal(t, "provider down", store.shots["b"].ImageError)
	assert.Empty(t, store.shots["b"].ImageURL)
	assert.Equal(t, storyboard.StatusGenerated, store.shots["c"].ImageStatus)

	assert.Equal(t, []storyboard.GenerationStatus{storyboard.StatusGenerating, storyboard.StatusGenerated}, store.history["a"])
	assert.Equal(t, []storyboard.GenerationStatus{storyboard.StatusGenerating, storyboard.StatusError}, store.history["b"])
}

func TestBatchRunner_EmptyPromptFallsBack(t *testing.T) {
	shots := testShots(1)
	shots[0].Prompts.Image = ""
	shots[0].Image.Description = "A quiet harbour."
	gen := &mockGenerator{}
	gen.On("GenerateImage", mock.Anything, mock.MatchedBy(func(r service.ImageRequest) bool {
		return r.Prompt == "A concept for A quiet harbour." && r.AspectRatio == "16:9"
	})).Return("https://img/a", nil).Once()

	runner := service.NewBatchRunner(gen, newMemoryShots(shots...), nil, service.WithDelay(0))
	final := runner.Run(context.Background(), "p1", service.MediaImage, shots, "", nil)
	assert.Equal(t, 1, final.Completed)
	gen.AssertExpectations(t)
}

func TestBatchRunner_VideoUsesImage(t *testing.T) {
	shots := testShots(2)
	shots[0].ImageURL = "https://img/a"
	shots[0].Prompts.ImageToVideo = "Animate this image"
	shots[0].Video.DurationSeconds = 4
	store := newMemoryShots(shots...)
	gen := &mockGenerator{}
	gen.On("GenerateVideo", mock.Anything, service.VideoRequest{
		ShotID:          "a",
		FullID:          "1.1",
		Prompt:          "Animate this image",
		ImageURL:        "https://img/a",
		AspectRatio:     "16:9",
		DurationSeconds: 4,
	}).Return(service.MockVideoURL, nil).Once()

	runner := service.NewBatchRunner(gen, store, nil, service.WithDelay(0))
	final := runner.Run(context.Background(), "p1", service.MediaVideo, shots, "16:9", nil)

	gen.AssertExpectations(t)
	assert.Equal(t, 1, final.Completed)
	assert.Equal(t, 1, final.Failed)
	assert.Equal(t, service.MockVideoURL, store.shots["a"].VideoURL)
	assert.Equal(t, storyboard.StatusGenerated, store.shots["a"].VideoStatus)
	assert.Equal(t, storyboard.StatusError, store.shots["b"].VideoStatus)
	// the image side is untouched
	assert.Equal(t, storyboard.StatusIdle, store.shots["a"].ImageStatus)
}

type fakeMirror struct{ fail bool }

func (f fakeMirror) Mirror(_ context.Context, base, source string) (string, error) {
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	return "https://minio/" + base + ".jpg", nil
}

func TestBatchRunner_Mirror(t *testing.T) {
	shots := testShots(1)
	gen := &mockGenerator{}
	gen.On("GenerateImage", mock.Anything, mock.Anything).Return("https://picsum/a", nil)

	store := newMemoryShots(shots...)
	service.NewBatchRunner(gen, store, nil, service.WithDelay(0), service.WithMirror(fakeMirror{})).
		Run(context.Background(), "p1", service.MediaImage, shots, "16:9", nil)
	assert.Equal(t, "https://minio/projects/p1/shots/a/image.jpg", store.shots["a"].ImageURL)

	// a failed copy keeps the provider url
	store = newMemoryShots(shots...)
	service.NewBatchRunner(gen, store, nil, service.WithDelay(0), service.WithMirror(fakeMirror{fail: true})).
		Run(context.Background(), "p1", service.MediaImage, shots, "16:9", nil)
	assert.Equal(t, "https://picsum/a", store.shots["a"].ImageURL)
	assert.Equal(t, storyboard.StatusGenerated, store.shots["a"].ImageStatus)
}

func TestBatchRunner_CancelledCallStillRecordsError(t *testing.T) {
	f := newFixture(t)
	res, err := f.service.Create(context.Background(), storySpec("Frozen"))
	require.NoError(t, err)
	shot := res.Project.Shots()[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &mockGenerator{}
	gen.On("GenerateImage", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()

	runner := service.NewBatchRunner(gen, f.shots, nil, service.WithDelay(0))
	final := runner.Run(ctx, res.Project.ID, service.MediaImage, []storyboard.Shot{shot}, "16:9", nil)
	assert.Equal(t, 1, final.Failed)

	stored, err := f.service.Get(context.Background(), res.Project.ID)
	require.NoError(t, err)
	got, ok := stored.FindShot(shot.ID)
	require.True(t, ok)
	assert.Equal(t, storyboard.StatusError, got.ImageStatus)
	assert.Equal(t, context.Canceled.Error(), got.ImageError)
}
