package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storyboard-server/storyboard"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ShotWriter applies a change to one stored shot.
type ShotWriter interface {
	ApplyShot(ctx context.Context, projectID, shotID string, fn func(*storyboard.Shot)) error
}

// Mirror copies a provider result into durable storage.
type Mirror interface {
	Mirror(ctx context.Context, base, source string) (string, error)
}

// BatchProgress is reported after every shot.
type BatchProgress struct {
	Done      int
	Completed int
	Failed    int
	Total     int
	LastURL   string
}

// BatchRunner generates media for shots strictly one at a time, in the order
// given, waiting a fixed delay before every provider call. A failed shot is
// marked as errored and the run moves on to the next one.
type BatchRunner struct {
	images ImageGenerator
	videos VideoGenerator
	writer ShotWriter
	mirror Mirror
	delay  time.Duration
	sleep  func(context.Context, time.Duration) error
	logger *zap.Logger
}

type BatchOption func(*BatchRunner)

// WithDelay sets the wait before every provider call.
func WithDelay(d time.Duration) BatchOption {
	return func(r *BatchRunner) { r.delay = d }
}

// WithMirror stores results through m before they are written to the shot.
func WithMirror(m Mirror) BatchOption {
	return func(r *BatchRunner) { r.mirror = m }
}

// WithSleep replaces the delay function, mostly for tests.
func WithSleep(fn func(context.Context, time.Duration) error) BatchOption {
	return func(r *BatchRunner) { r.sleep = fn }
}

func NewBatchRunner(gen Generator, writer ShotWriter, logger *zap.Logger, opts ...BatchOption) *BatchRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &BatchRunner{
		images: gen,
		videos: gen,
		writer: writer,
		delay:  time.Second,
		sleep:  sleepContext,
		logger: logger.Named("batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates kind for every shot and returns the final tally.
func (r *BatchRunner) Run(ctx context.Context, projectID string, kind MediaKind, shots []storyboard.Shot, aspect string, progress func(BatchProgress)) BatchProgress {
	ctx, span := tracer.Start(ctx, "batch.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("media.kind", string(kind)),
		attribute.Int("shots", len(shots)),
	)

	state := BatchProgress{Total: len(shots)}
	for _, shot := range shots {
		// a cancelled context shortens the wait; the provider call then fails
		// for this shot and the loop still visits the rest
		_ = r.sleep(ctx, r.delay)

		url, err := r.generateOne(ctx, projectID, kind, shot, aspect)
		state.Done++
		if err != nil {
			state.Failed++
			generationOutcomes.WithLabelValues(string(kind), "error").Inc()
			r.logger.Warn("shot generation failed",
				zap.String("project_id", projectID),
				zap.String("shot", shot.FullID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		} else {
			state.Completed++
			state.LastURL = url
			generationOutcomes.WithLabelValues(string(kind), "generated").Inc()
		}
		if progress != nil {
			progress(state)
		}
	}
	return state
}

func (r *BatchRunner) generateOne(ctx context.Context, projectID string, kind MediaKind, shot storyboard.Shot, aspect string) (string, error) {
	if err := r.writer.ApplyShot(ctx, projectID, shot.ID, func(s *storyboard.Shot) {
		setStatus(s, kind, storyboard.StatusGenerating, "", "")
	}); err != nil {
		return "", err
	}

	url, genErr := r.call(ctx, kind, shot, aspect)
	if genErr == nil && r.mirror != nil {
		mirrored, err := r.mirror.Mirror(ctx, ObjectName(projectID, shot.ID, string(kind)), url)
		if err != nil {
			r.logger.Warn("mirror failed, keeping provider url", zap.String("shot", shot.FullID), zap.Error(err))
		} else {
			url = mirrored
		}
	}

	// a cancelled batch context must not leave the shot in generating
	err := r.writer.ApplyShot(context.WithoutCancel(ctx), projectID, shot.ID, func(s *storyboard.Shot) {
		if genErr != nil {
			setStatus(s, kind, storyboard.StatusError, "", genErr.Error())
			return
		}
		setStatus(s, kind, storyboard.StatusGenerated, url, "")
	})
	if genErr != nil {
		return "", genErr
	}
	return url, err
}

func (r *BatchRunner) call(ctx context.Context, kind MediaKind, shot storyboard.Shot, aspect string) (string, error) {
	aspect = firstNonEmpty(shot.AspectRatio, aspect, "16:9")
	switch kind {
	case MediaImage:
		prompt := shot.Prompts.Image
		if prompt == "" {
			prompt = "A concept for " + firstNonEmpty(shot.Image.Description, "a shot")
		}
		return r.images.GenerateImage(ctx, ImageRequest{
			ShotID:      shot.ID,
			FullID:      shot.FullID,
			Prompt:      prompt,
			AspectRatio: aspect,
		})
	case MediaVideo:
		if shot.ImageURL == "" {
			return "", fmt.Errorf("%w: %s", ErrImageRequired, shot.FullID)
		}
		return r.videos.GenerateVideo(ctx, VideoRequest{
			ShotID:          shot.ID,
			FullID:          shot.FullID,
			Prompt:          shot.Prompts.ImageToVideo,
			ImageURL:        shot.ImageURL,
			AspectRatio:     aspect,
			DurationSeconds: shot.Duration(),
		})
	}
	return "", errors.New("unknown media kind " + string(kind))
}

func setStatus(s *storyboard.Shot, kind MediaKind, status storyboard.GenerationStatus, url, errMsg string) {
	switch kind {
	case MediaImage:
		s.ImageStatus = status
		s.ImageError = errMsg
		if url != "" {
			s.ImageURL = url
		}
	case MediaVideo:
		s.VideoStatus = status
		s.VideoError = errMsg
		if url != "" {
			s.VideoURL = url
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *BatchRunner) withoutMirror() *BatchRunner {
	c := *r
	c.mirror = nil
	return &c
}
