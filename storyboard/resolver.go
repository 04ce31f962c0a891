package storyboard

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	defaultShotDuration   = 5
	summaryLength         = 150
	seedSpace             = 1_000_000
	fallbackSubjectAction = "a character discovering an artifact"
	fallbackLocation      = "a suitable location"
	fallbackLighting      = "soft, natural ambient light"
	fallbackFraming       = "Medium Shot (MS)"
	fallbackAngle         = "Eye-Level Shot"
	fallbackDepthOfField  = "shallow"
	fallbackStyle         = "Photorealistic"
	fallbackMovement      = "very slow, almost imperceptible push-in"
	fallbackCharacterDesc = "A character in the story."
)

// ShotOverride is the partial shot a resolution starts from. Zero values mean
// "not set" and fall through to project defaults.
type ShotOverride struct {
	ID            string
	Purpose       NarrativePurpose
	Duration      int
	DirectorNotes string
	Audio         *AudioSettings
	Image         *ImageInput
	Video         *VideoInput
}

// OverrideFromShot turns a stored shot back into an override so that a
// rebuild reproduces it.
func OverrideFromShot(s Shot) ShotOverride {
	audio := cloneAudio(s.Audio)
	img := cloneImage(s.Image)
	vid := cloneVideo(s.Video)
	return ShotOverride{
		ID:            s.ID,
		Purpose:       s.Purpose,
		Duration:      s.Video.DurationSeconds,
		DirectorNotes: s.DirectorNotes,
		Audio:         &audio,
		Image:         &img,
		Video:         &vid,
	}
}

// SceneContext locates a shot inside the storyboard.
type SceneContext struct {
	SceneID        string
	SceneTitle     string
	SceneNumber    int // 0 for the trailer
	Location       string
	Pacing         PacingCode
	ShotIndex      int
	ShotsInSegment int
	LastScene      bool
	GlobalIndex    int // position of the shot in document order
	Duration       int // allocated seconds for this slot
}

// IsTrailer reports whether the shot belongs to the trailer.
func (c SceneContext) IsTrailer() bool { return c.SceneNumber == 0 }

func (c SceneContext) fullID() string {
	if c.IsTrailer() {
		return fmt.Sprintf("T.%d", c.ShotIndex+1)
	}
	return fmt.Sprintf("%d.%d", c.SceneNumber, c.ShotIndex+1)
}

// SubjectBinding is a subject together with its resolved description.
type SubjectBinding struct {
	Subject     SubjectDetail
	Description string
	Bound       bool
}

// ResolvedShot is a shot with every field populated, ready to compose.
type ResolvedShot struct {
	Shot         Shot
	Bindings     []SubjectBinding
	Negatives    []string
	MicroCue     string
	Genre        string
	Tone         string
	ProjectStyle string
	Source       PromptSource
}

// Resolver fills shot fields from the override, the project and fallbacks.
type Resolver struct {
	entropy Entropy
}

// NewResolver returns a Resolver drawing its random picks from e.
func NewResolver(e Entropy) *Resolver {
	return &Resolver{entropy: e}
}

// Resolve never fails: anything missing degrades to a fallback literal.
func (r *Resolver) Resolve(spec ProjectSpec, ov ShotOverride, ctx SceneContext, prev *Shot) ResolvedShot {
	key := ov.ID
	if key == "" {
		key = fmt.Sprintf("%s/%d", ctx.SceneID, ctx.ShotIndex)
	}
	rng := r.entropy.For("shot/" + key)
	chars := ProjectCharacters(spec)
	elements := ParseSpecificElements(spec.SpecificElements)
	aspect := AspectRatioFor(spec.TargetPlatform)

	shot := Shot{
		ID:            ov.ID,
		Number:        ctx.ShotIndex + 1,
		FullID:        ctx.fullID(),
		Purpose:       ov.Purpose,
		DirectorNotes: ov.DirectorNotes,
		AspectRatio:   aspect,
		ImageStatus:   StatusIdle,
		VideoStatus:   StatusIdle,
	}
	if shot.Purpose == "" {
		shot.Purpose = defaultPurpose(ctx, rng)
	}

	shot.Image = r.resolveImage(spec, ov, ctx, chars, elements, rng)
	shot.Image.AspectRatio = aspect
	shot.Video = r.resolveVideo(spec, ov, ctx, shot.Image, prev, rng)
	if ov.Audio != nil {
		shot.Audio = cloneAudio(*ov.Audio)
	}
	shot.NarrativeSummary = summarize(shot.Image.Description)

	bindings := make([]SubjectBinding, 0, len(shot.Image.Subjects))
	for _, s := range shot.Image.Subjects {
		desc, bound := DescribeSubject(s, chars)
		bindings = append(bindings, SubjectBinding{Subject: s, Description: desc, Bound: bound})
	}
	mood := ""
	if len(shot.Image.Subjects) > 0 {
		mood = shot.Image.Subjects[0].ExpressionMood
	}

	return ResolvedShot{
		Shot:         shot,
		Bindings:     bindings,
		Negatives:    AggregateNegatives(shot.Image.Style.Negatives, shot.Image.NegativeFallback, elements.Avoid),
		MicroCue:     MicroExpressionCue(mood),
		Genre:        spec.GenreLabel(),
		Tone:         spec.NarrativeTone,
		ProjectStyle: spec.StyleLabel(),
		Source:       shot.Image.Source(),
	}
}

func (r *Resolver) resolveImage(spec ProjectSpec, ov ShotOverride, ctx SceneContext, chars []CharacterDef, elements SpecificElements, rng Rand) ImageInput {
	var img ImageInput
	if ov.Image != nil {
		img = cloneImage(*ov.Image)
	}
	img.Description = firstNonEmpty(img.Description, defaultDescription(ctx))

	if len(img.Subjects) == 0 {
		if len(chars) > 0 {
			c := chars[ctx.GlobalIndex%len(chars)]
			img.Subjects = []SubjectDetail{{
				Identifier:     c.Name,
				CharacterRef:   c.Label,
				Type:           "Person",
				ExpressionMood: firstNonEmpty(spec.NarrativeTone, "Neutral"),
			}}
			if !strings.Contains(img.Description, c.Name) {
				img.Description += " Features " + c.Name + "."
			}
		} else {
			img.Subjects = []SubjectDetail{{
				Identifier:     "The protagonist",
				Type:           "Person",
				KeyFeatures:    fallbackSubjectAction,
				ExpressionMood: firstNonEmpty(spec.NarrativeTone, "awe"),
			}}
		}
	}

	env := &img.Environment
	env.LocationType = firstNonEmpty(env.LocationType, ctx.Location, spec.EraSetting, fallbackLocation)
	env.Lighting = firstNonEmpty(env.Lighting, pickCycled(spec.LightingStyles, ctx.GlobalIndex), fallbackLighting)
	env.AtmosphereKeywords = firstList(env.AtmosphereKeywords, atmosphereDefaults(spec))
	env.KeyElements = firstList(env.KeyElements, elements.Include)

	cam := &img.Camera
	cam.Framing = firstNonEmpty(cam.Framing, fallbackFraming)
	cam.Angle = firstNonEmpty(cam.Angle, pickCycled(spec.CameraAngles, ctx.GlobalIndex), fallbackAngle)
	cam.DepthOfField = firstNonEmpty(cam.DepthOfField, fallbackDepthOfField)

	img.Style.Preset = firstNonEmpty(img.Style.Preset, spec.StyleLabel(), fallbackStyle)
	img.NegativeFallback = firstNonEmpty(img.NegativeFallback, DefaultNegativePrompt)
	if img.Seed == 0 {
		img.Seed = rng.Int63n(seedSpace) + 1
	}
	return img
}

func (r *Resolver) resolveVideo(spec ProjectSpec, ov ShotOverride, ctx SceneContext, img ImageInput, prev *Shot, rng Rand) VideoInput {
	var vid VideoInput
	if ov.Video != nil {
		vid = cloneVideo(*ov.Video)
	}
	vid.DurationSeconds = firstPositive(vid.DurationSeconds, ov.Duration, ctx.Duration, defaultShotDuration)
	vid.Pacing = LookupPacing(firstNonEmptyCode(ctx.Pacing, vid.Pacing)).Code

	m := &vid.Motion
	m.CameraMovement = firstNonEmpty(m.CameraMovement, pickRandom(spec.CameraMovement, rng), fallbackMovement)
	target := "the subject"
	if len(img.Subjects) > 0 {
		target = img.Subjects[0].Identifier
	}
	m.CameraTarget = firstNonEmpty(m.CameraTarget, target)

	vid.Continuity = Continuity{}
	if prev != nil {
		vid.Continuity = continuityFrom(*prev)
	}
	return vid
}

func continuityFrom(prev Shot) Continuity {
	c := Continuity{
		PreviousCameraState: strings.TrimSpace(prev.Video.Motion.CameraMovement + " on " + prev.Image.Camera.Framing),
		PreviousSummary:     prev.NarrativeSummary,
	}
	if acts := prev.Video.Motion.SubjectActions; len(acts) > 0 {
		c.PreviousActionEnd = acts[len(acts)-1].Description
	}
	if subs := prev.Image.Subjects; len(subs) > 0 {
		c.PreviousEmotion = subs[0].ExpressionMood
	}
	return c
}

func defaultPurpose(ctx SceneContext, rng Rand) NarrativePurpose {
	last := ctx.ShotIndex == ctx.ShotsInSegment-1
	switch {
	case ctx.IsTrailer():
	case ctx.ShotIndex == 0 && ctx.SceneNumber == 1:
		return PurposeEstablishScene
	case ctx.ShotIndex == 0:
		return PurposeTransition
	case last && ctx.LastScene:
		return PurposeResolution
	case last:
		return PurposeTransition
	}
	return randomPurposes[rng.Intn(len(randomPurposes))]
}

func defaultDescription(ctx SceneContext) string {
	segment := "Trailer"
	if !ctx.IsTrailer() {
		segment = fmt.Sprintf("Scene %d", ctx.SceneNumber)
		if ctx.SceneTitle != "" {
			segment += " (" + ctx.SceneTitle + ")"
		}
	}
	return fmt.Sprintf("Visuals for %s, shot %d: %s.", segment, ctx.ShotIndex+1, fallbackSubjectAction)
}

func atmosphereDefaults(spec ProjectSpec) []string {
	var out []string
	if spec.NarrativeTone != "" {
		out = append(out, spec.NarrativeTone)
	}
	return append(out, spec.Themes...)
}

// ProjectCharacters drops blank character rows and fills in defaults.
func ProjectCharacters(spec ProjectSpec) []CharacterDef {
	out := make([]CharacterDef, 0, len(spec.Characters))
	for _, c := range spec.Characters {
		if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Description) == "" {
			continue
		}
		i := len(out)
		out = append(out, CharacterDef{
			ID:          firstNonEmpty(c.ID, fmt.Sprintf("char-form-%d", i)),
			Name:        firstNonEmpty(c.Name, fmt.Sprintf("Character %d", i+1)),
			Label:       firstNonEmpty(c.Label, fmt.Sprintf("@char%d", i+1)),
			Description: firstNonEmpty(c.Description, fallbackCharacterDesc),
		})
	}
	return out
}

// FindCharacter matches a subject to a character by label, then by name.
func FindCharacter(s SubjectDetail, chars []CharacterDef) (CharacterDef, bool) {
	if s.CharacterRef != "" {
		for _, c := range chars {
			if c.Label == s.CharacterRef {
				return c, true
			}
		}
	}
	for _, c := range chars {
		if (s.CharacterRef != "" && c.Name == s.CharacterRef) || (s.Identifier != "" && c.Name == s.Identifier) {
			return c, true
		}
	}
	return CharacterDef{}, false
}

// DescribeSubject returns the subject's description and whether it was bound
// to a project character. Unbound subjects get a description built from their
// own attributes, "Subject" when there are none.
func DescribeSubject(s SubjectDetail, chars []CharacterDef) (string, bool) {
	if c, ok := FindCharacter(s, chars); ok {
		desc := c.Description
		if s.KeyFeaturesOverride != "" {
			desc += " Override: " + s.KeyFeaturesOverride + "."
		}
		if s.ClothingOverride != "" {
			desc += " Clothing: " + s.ClothingOverride + "."
		}
		return desc, true
	}

	desc := firstNonEmpty(s.KeyFeatures, s.Type, "Subject")
	if s.AgeAppearance != "" {
		desc += ", appearing " + s.AgeAppearance
	}
	if s.SkinTone != "" {
		desc += ", skin tone: " + s.SkinTone
	}
	if hair := strings.TrimSpace(s.Hair.Color + " " + s.Hair.StyleCondition); hair != "" {
		desc += ", hair: " + hair
	}
	if notes := splitList(strings.Join(s.ConditionNotes, ",")); len(notes) > 0 {
		desc += ". Notes: " + strings.Join(notes, ", ")
	}
	if s.Wearing != "" {
		desc += ". Wearing: " + s.Wearing
	}
	if !strings.HasSuffix(desc, ".") {
		desc += "."
	}
	return desc, false
}

// AggregateNegatives is the case-insensitive union of the shot's negatives,
// the comma-separated fallback string and the project's avoid list.
func AggregateNegatives(shotNegatives []string, fallback string, avoid []string) []string {
	return unionFold(shotNegatives, splitList(fallback), avoid)
}

func summarize(desc string) string {
	if utf8.RuneCountInString(desc) <= summaryLength {
		return desc
	}
	return string([]rune(desc)[:summaryLength]) + "..."
}

func pickCycled(options []string, i int) string {
	opts := splitList(strings.Join(options, ","))
	if len(opts) == 0 {
		return ""
	}
	return opts[i%len(opts)]
}

func pickRandom(options []string, rng Rand) string {
	if len(options) == 0 {
		return ""
	}
	return options[rng.Intn(len(options))]
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmptyCode(codes ...PacingCode) PacingCode {
	for _, c := range codes {
		if c != "" {
			return c
		}
	}
	return PacingMedium
}

func cloneImage(in ImageInput) ImageInput {
	out := in
	out.Subjects = make([]SubjectDetail, len(in.Subjects))
	for i, s := range in.Subjects {
		s.ConditionNotes = append([]string(nil), s.ConditionNotes...)
		out.Subjects[i] = s
	}
	if len(out.Subjects) == 0 {
		out.Subjects = nil
	}
	out.Environment.KeyElements = append([]string(nil), in.Environment.KeyElements...)
	out.Environment.AtmosphereKeywords = append([]string(nil), in.Environment.AtmosphereKeywords...)
	out.Style.Modifiers = append([]string(nil), in.Style.Modifiers...)
	out.Style.Negatives = append([]string(nil), in.Style.Negatives...)
	return out
}

func cloneVideo(in VideoInput) VideoInput {
	out := in
	out.Motion.SubjectActions = append([]SubjectAction(nil), in.Motion.SubjectActions...)
	return out
}

func cloneAudio(in AudioSettings) AudioSettings {
	out := in
	out.SFX = append([]string(nil), in.SFX...)
	return out
}
