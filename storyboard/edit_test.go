package storyboard_test

import (
	"errors"
	"testing"

	"storyboard-server/storyboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRecomputeShot_OnlyTargetChanges(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	target := p.Scenes[1].Shots[1]
	p.Scenes[1].Shots[1].ImageStatus = storyboard.StatusGenerated
	p.Scenes[1].Shots[1].ImageURL = "https://cdn.example/1.png"
	p.Scenes[1].Shots[1].VideoStatus = storyboard.StatusError
	p.Scenes[1].Shots[1].VideoError = "worker timeout"

	out, err := a.RecomputeShot(p, target.ID, storyboard.ShotEdits{
		Description:    ptr("The bottle washes ashore at Ines's feet."),
		CameraMovement: ptr("Crane Shot"),
	})
	require.NoError(t, err)

	got := out.Scenes[1].Shots[1]
	assert.Equal(t, "The bottle washes ashore at Ines's feet.", got.Image.Description)
	assert.Equal(t, "Crane Shot", got.Video.Motion.CameraMovement)
	assert.Contains(t, got.Prompts.Image, "The bottle washes ashore")
	assert.Contains(t, got.Prompts.ImageToVideo, "Crane Shot")
	assert.Equal(t, target.ID, got.ID)
	assert.Equal(t, target.FullID, got.FullID)
	assert.Equal(t, target.Image.Seed, got.Image.Seed)

	assert.Equal(t, storyboard.StatusGenerated, got.ImageStatus)
	assert.Equal(t, "https://cdn.example/1.png", got.ImageURL)
	assert.Equal(t, storyboard.StatusError, got.VideoStatus)
	assert.Equal(t, "worker timeout", got.VideoError)

	for i := range p.Scenes {
		for j := range p.Scenes[i].Shots {
			if i == 1 && j == 1 {
				continue
			}
			assert.Equal(t, p.Scenes[i].Shots[j], out.Scenes[i].Shots[j])
		}
	}
	assert.Equal(t, p.Trailer, out.Trailer)
	// the input preview is not modified
	assert.Equal(t, target.Image.Description, p.Scenes[1].Shots[1].Image.Description)
}

func TestRecomputeShot_EmptyEditIsNoop(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	for _, seg := range p.Segments() {
		for _, sh := range seg.Shots {
			out, err := a.RecomputeShot(p, sh.ID, storyboard.ShotEdits{})
			require.NoError(t, err)
			got, ok := out.FindShot(sh.ID)
			require.True(t, ok)
			assert.Equal(t, sh, *got, sh.FullID)
		}
	}
}

func TestRecomputeShot_DurationResumsScene(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	before := p.Scenes[0].Duration
	old := p.Scenes[0].Shots[0].Duration()

	out, err := a.RecomputeShot(p, p.Scenes[0].Shots[0].ID, storyboard.ShotEdits{Duration: ptr(old + 3)})
	require.NoError(t, err)
	assert.Equal(t, old+3, out.Scenes[0].Shots[0].Duration())
	assert.Equal(t, before+3, out.Scenes[0].Duration)
	assert.Equal(t, before, p.Scenes[0].Duration)
}

func TestRecomputeShot_TrailerShot(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	require.NotNil(t, p.Trailer)
	id := p.Trailer.Shots[2].ID

	out, err := a.RecomputeShot(p, id, storyboard.ShotEdits{Purpose: ptr(storyboard.PurposeBuildSuspense)})
	require.NoError(t, err)
	assert.Equal(t, storyboard.PurposeBuildSuspense, out.Trailer.Shots[2].Purpose)
	assert.Contains(t, out.Trailer.Shots[2].Prompts.Video, "Build Suspense")
	assert.Equal(t, p.Scenes, out.Scenes)
}

func TestRecomputeShot_RawPrompt(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	id := p.Scenes[2].Shots[0].ID

	out, err := a.RecomputeShot(p, id, storyboard.ShotEdits{
		RawPrompt:    ptr("a single gull over grey water"),
		UseRawPrompt: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "a single gull over grey water", out.Scenes[2].Shots[0].Prompts.Image)
}

func TestRecomputeShot_EnvironmentMerges(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	sh := p.Scenes[0].Shots[2]

	out, err := a.RecomputeShot(p, sh.ID, storyboard.ShotEdits{
		Environment: &storyboard.EnvironmentSetting{Weather: "sleet"},
	})
	require.NoError(t, err)
	env := out.Scenes[0].Shots[2].Image.Environment
	assert.Equal(t, "sleet", env.Weather)
	assert.Equal(t, sh.Image.Environment.LocationType, env.LocationType)
	assert.Equal(t, sh.Image.Environment.Lighting, env.Lighting)
}

func TestRecomputeShot_UnknownShot(t *testing.T) {
	a := newAssembler()
	p := a.Assemble(sampleSpec(), nil, nil)
	out, err := a.RecomputeShot(p, "shot-missing", storyboard.ShotEdits{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storyboard.ErrShotNotFound))
	assert.Equal(t, p, out)
}
