package storyboard

import (
	"errors"
	"fmt"
)

// ErrShotNotFound is returned when an edit targets an unknown shot.
var ErrShotNotFound = errors.New("shot not found")

// ShotEdits is a user's change to one shot. Nil fields are left untouched.
type ShotEdits struct {
	Purpose       *NarrativePurpose `json:"narrativePurpose,omitempty"`
	Description   *string           `json:"description,omitempty"`
	DirectorNotes *string           `json:"directorNotes,omitempty"`
	Duration      *int              `json:"duration,omitempty"`

	Subjects    []SubjectDetail     `json:"subjects,omitempty"`
	Environment *EnvironmentSetting `json:"environment,omitempty"`

	CameraFraming *string `json:"cameraFraming,omitempty"`
	CameraAngle   *string `json:"cameraAngle,omitempty"`
	DepthOfField  *string `json:"depthOfField,omitempty"`

	StylePreset      *string  `json:"stylePreset,omitempty"`
	StyleModifiers   []string `json:"styleModifiers,omitempty"`
	NegativeElements []string `json:"negativeElements,omitempty"`
	NegativeFallback *string  `json:"negativePrompt,omitempty"`
	ConsistencyID    *string  `json:"characterConsistencyId,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	RawPrompt        *string  `json:"rawPrompt,omitempty"`
	UseRawPrompt     *bool    `json:"useRawPrompt,omitempty"`

	CameraMovement     *string         `json:"cameraMovement,omitempty"`
	CameraTarget       *string         `json:"cameraTarget,omitempty"`
	SubjectActions     []SubjectAction `json:"subjectActions,omitempty"`
	EnvironmentEffects *string         `json:"environmentEffects,omitempty"`
	MotionPrompt       *string         `json:"motionPrompt,omitempty"`

	Voiceover *string  `json:"voiceover,omitempty"`
	SFX       []string `json:"sfx,omitempty"`
	Music     *string  `json:"music,omitempty"`
}

// Apply merges the edits onto ov. Scalars replace, lists replace when given,
// and the environment is merged field by field.
func (e ShotEdits) Apply(ov *ShotOverride) {
	if ov.Image == nil {
		ov.Image = &ImageInput{}
	}
	if ov.Video == nil {
		ov.Video = &VideoInput{}
	}
	if ov.Audio == nil {
		ov.Audio = &AudioSettings{}
	}
	img, vid, audio := ov.Image, ov.Video, ov.Audio

	if e.Purpose != nil {
		ov.Purpose = *e.Purpose
	}
	setString(&ov.DirectorNotes, e.DirectorNotes)
	if e.Duration != nil && *e.Duration > 0 {
		ov.Duration = *e.Duration
		vid.DurationSeconds = *e.Duration
	}

	setString(&img.Description, e.Description)
	if e.Subjects != nil {
		img.Subjects = append([]SubjectDetail(nil), e.Subjects...)
	}
	if e.Environment != nil {
		mergeEnvironment(&img.Environment, *e.Environment)
	}
	setString(&img.Camera.Framing, e.CameraFraming)
	setString(&img.Camera.Angle, e.CameraAngle)
	setString(&img.Camera.DepthOfField, e.DepthOfField)
	setString(&img.Style.Preset, e.StylePreset)
	setList(&img.Style.Modifiers, e.StyleModifiers)
	setList(&img.Style.Negatives, e.NegativeElements)
	setString(&img.NegativeFallback, e.NegativeFallback)
	setString(&img.ConsistencyID, e.ConsistencyID)
	if e.Seed != nil {
		img.Seed = *e.Seed
	}
	setString(&img.RawPrompt, e.RawPrompt)
	if e.UseRawPrompt != nil {
		img.UseRawPrompt = *e.UseRawPrompt
	}

	setString(&vid.Motion.CameraMovement, e.CameraMovement)
	setString(&vid.Motion.CameraTarget, e.CameraTarget)
	if e.SubjectActions != nil {
		vid.Motion.SubjectActions = append([]SubjectAction(nil), e.SubjectActions...)
	}
	setString(&vid.Motion.EnvironmentEffects, e.EnvironmentEffects)
	setString(&vid.MotionPrompt, e.MotionPrompt)

	setString(&audio.Voiceover, e.Voiceover)
	setList(&audio.SFX, e.SFX)
	setString(&audio.Music, e.Music)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v []string) {
	if v != nil {
		*dst = append([]string(nil), v...)
	}
}

func mergeEnvironment(dst *EnvironmentSetting, src EnvironmentSetting) {
	dst.LocationType = firstNonEmpty(src.LocationType, dst.LocationType)
	dst.TimeOfDay = firstNonEmpty(src.TimeOfDay, dst.TimeOfDay)
	dst.Weather = firstNonEmpty(src.Weather, dst.Weather)
	dst.Lighting = firstNonEmpty(src.Lighting, dst.Lighting)
	setList(&dst.KeyElements, src.KeyElements)
	setList(&dst.AtmosphereKeywords, src.AtmosphereKeywords)
}

type shotLocation struct {
	segment int // -1 for the trailer
	index   int
}

func locateShot(p Preview, id string) (shotLocation, bool) {
	if p.Trailer != nil {
		for j, s := range p.Trailer.Shots {
			if s.ID == id {
				return shotLocation{segment: -1, index: j}, true
			}
		}
	}
	for i, sc := range p.Scenes {
		for j, s := range sc.Shots {
			if s.ID == id {
				return shotLocation{segment: i, index: j}, true
			}
		}
	}
	return shotLocation{}, false
}

// RecomputeShot applies edits to one shot and rebuilds only that shot, using
// the same context and previous shot an assembly would have used. Every other
// shot is left as it was and generation results on the edited shot are kept.
func (a *Assembler) RecomputeShot(p Preview, shotID string, edits ShotEdits) (Preview, error) {
	loc, ok := locateShot(p, shotID)
	if !ok {
		return p, fmt.Errorf("%w: %s", ErrShotNotFound, shotID)
	}

	out := p
	out.Scenes = append([]Scene(nil), p.Scenes...)
	var seg *Scene
	lastScene := false
	if loc.segment < 0 {
		tr := *p.Trailer
		out.Trailer = &tr
		seg = out.Trailer
	} else {
		seg = &out.Scenes[loc.segment]
		lastScene = loc.segment == len(out.Scenes)-1
	}
	seg.Shots = append([]Shot(nil), seg.Shots...)
	old := seg.Shots[loc.index]

	global := loc.index
	if p.Trailer != nil && loc.segment >= 0 {
		global += len(p.Trailer.Shots)
	}
	for i := 0; i < loc.segment; i++ {
		global += len(p.Scenes[i].Shots)
	}

	var prev *Shot
	switch {
	case loc.index > 0:
		prev = &seg.Shots[loc.index-1]
	case loc.segment > 0:
		if shots := p.Scenes[loc.segment-1].Shots; len(shots) > 0 {
			prev = &shots[len(shots)-1]
		}
	}

	ctx := SceneContext{
		SceneID:        seg.ID,
		SceneTitle:     seg.Title,
		SceneNumber:    seg.Number,
		Location:       seg.Location,
		Pacing:         seg.Pacing,
		ShotIndex:      loc.index,
		ShotsInSegment: len(seg.Shots),
		LastScene:      lastScene,
		GlobalIndex:    global,
		Duration:       old.Duration(),
	}

	ov := OverrideFromShot(old)
	edits.Apply(&ov)
	shot := a.build(p.FormData, ov, ctx, prev)
	carryGeneration(&shot, old)

	seg.Shots[loc.index] = shot
	seg.Duration = segmentDuration(*seg)
	return out, nil
}
