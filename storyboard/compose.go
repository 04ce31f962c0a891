package storyboard

import (
	"fmt"
	"regexp"
	"strings"
)

// PromptSource selects how the image prompt body is produced.
type PromptSource interface {
	promptSource()
}

// Templated builds the image prompt from the resolved fields.
type Templated struct{}

// Raw uses the user's own prompt text verbatim.
type Raw struct {
	Text string
}

func (Templated) promptSource() {}
func (Raw) promptSource()       {}

// clause renders one piece of a prompt; an empty result is skipped.
type clause struct {
	name  string
	build func(rs ResolvedShot) string
}

var spaces = regexp.MustCompile(`\s\s+`)

func normalize(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func render(clauses []clause, rs ResolvedShot) []string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if s := strings.TrimSpace(c.build(rs)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Compose renders the three prompts. It is pure: the same ResolvedShot always
// yields the same strings.
func Compose(rs ResolvedShot) Prompts {
	return Prompts{
		Image:        ComposeImagePrompt(rs),
		ImageToVideo: ComposeImageToVideoPrompt(rs),
		Video:        ComposeVideoPrompt(rs),
	}
}

var imageClauses = []clause{
	{"opener", imageOpener},
	{"location", imageLocation},
	{"subjects", imageSubjects},
	{"narrative", imageNarrative},
	{"lighting", imageLighting},
	{"style", imageStyle},
	{"consistency", imageConsistency},
	{"negatives", imageNegatives},
	{"aspect", imageAspect},
	{"seed", imageSeed},
}

// ComposeImagePrompt builds the still-image prompt.
func ComposeImagePrompt(rs ResolvedShot) string {
	switch src := rs.Source.(type) {
	case Raw:
		return src.Text
	default:
		return normalize(strings.Join(render(imageClauses, rs), " "))
	}
}

func openingStyle(rs ResolvedShot) string {
	preset := firstNonEmpty(rs.Shot.Image.Style.Preset, fallbackStyle)
	if strings.EqualFold(preset, "default") {
		return fallbackStyle
	}
	return preset
}

func imageOpener(rs ResolvedShot) string {
	return fmt.Sprintf("A breathtaking, %s cinematic still.", openingStyle(rs))
}

func imageLocation(rs ResolvedShot) string {
	return fmt.Sprintf("In %s,", firstNonEmpty(rs.Shot.Image.Environment.LocationType, fallbackLocation))
}

func imageSubjects(rs ResolvedShot) string {
	parts := make([]string, 0, len(rs.Bindings))
	for _, b := range rs.Bindings {
		p := fmt.Sprintf("the subject is **%s**: %s", b.Subject.Identifier, b.Description)
		if b.Subject.ExpressionMood != "" {
			p += fmt.Sprintf(" Their face is filled with %s.", b.Subject.ExpressionMood)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

func imageNarrative(rs ResolvedShot) string {
	return firstNonEmpty(rs.Shot.Image.Description, "A character discovering an artifact, caught in a quiet moment of revelation.")
}

func imageLighting(rs ResolvedShot) string {
	env := rs.Shot.Image.Environment
	if env.Lighting == "" {
		return ""
	}
	atmosphere := "quiet anticipation"
	if len(env.AtmosphereKeywords) > 0 {
		atmosphere = strings.Join(env.AtmosphereKeywords, ", ")
	}
	return fmt.Sprintf("The scene is lit by %s, casting soft, volumetric light and creating an atmosphere of %s.", env.Lighting, atmosphere)
}

func imageStyle(rs ResolvedShot) string {
	style := rs.Shot.Image.Style
	dof := firstNonEmpty(rs.Shot.Image.Camera.DepthOfField, fallbackDepthOfField)
	details := fmt.Sprintf("8K, hyper-detailed, sharp focus, with a %s depth of field", dof)
	if style.Preset != "" && style.Preset != fallbackStyle {
		details = style.Preset + ", " + details
	}
	if len(style.Modifiers) > 0 {
		details += ", " + strings.Join(style.Modifiers, ", ")
	}
	if kw, ok := StyleKeywords(firstNonEmpty(style.Preset, fallbackStyle)); ok && !strings.Contains(details, kw) {
		details += ", " + kw
	}
	return details + "."
}

func imageConsistency(rs ResolvedShot) string {
	if id := rs.Shot.Image.ConsistencyID; id != "" {
		return fmt.Sprintf("Character ID: %s.", id)
	}
	if subs := rs.Shot.Image.Subjects; len(subs) > 0 && subs[0].CharacterRef != "" {
		return fmt.Sprintf("Character Ref: %s.", subs[0].CharacterRef)
	}
	return ""
}

func imageNegatives(rs ResolvedShot) string {
	if len(rs.Negatives) == 0 {
		return ""
	}
	return fmt.Sprintf("Avoid: %s.", strings.Join(rs.Negatives, ", "))
}

func imageAspect(rs ResolvedShot) string {
	r := firstNonEmpty(rs.Shot.AspectRatio, defaultAspectRatio)
	return fmt.Sprintf("IMPORTANT: The image must be generated with a strict aspect ratio of %s. Output dimensions must follow %s.", r, r)
}

func imageSeed(rs ResolvedShot) string {
	if rs.Shot.Image.Seed == 0 {
		return ""
	}
	return fmt.Sprintf("Seed: %d.", rs.Shot.Image.Seed)
}

var imageToVideoClauses = []clause{
	{"animate", i2vAnimate},
	{"camera", i2vCamera},
	{"subject", i2vSubject},
	{"ambient", i2vAmbient},
	{"closing", func(ResolvedShot) string {
		return "The goal is to make a silent, static moment feel alive with magic and tension."
	}},
}

// ComposeImageToVideoPrompt builds the prompt that animates the still.
func ComposeImageToVideoPrompt(rs ResolvedShot) string {
	return normalize(strings.Join(render(imageToVideoClauses, rs), " "))
}

func i2vAnimate(rs ResolvedShot) string {
	return fmt.Sprintf("Animate this image of %s.", strings.TrimSuffix(firstNonEmpty(rs.Shot.Image.Description, fallbackSubjectAction), "."))
}

func i2vCamera(rs ResolvedShot) string {
	m := rs.Shot.Video.Motion
	return fmt.Sprintf("The camera should perform a %s towards %s, enhancing the feeling of intimacy and importance.",
		firstNonEmpty(m.CameraMovement, fallbackMovement), firstNonEmpty(m.CameraTarget, "the subject"))
}

func i2vSubject(rs ResolvedShot) string {
	subs := rs.Shot.Image.Subjects
	if len(subs) == 0 {
		return ""
	}
	if acts := rs.Shot.Video.Motion.SubjectActions; len(acts) > 0 && acts[0].Description != "" {
		return acts[0].Description
	}
	mood := firstNonEmpty(subs[0].ExpressionMood, "awe")
	return fmt.Sprintf("Animate %s's fingers to tremble ever so slightly with anticipation. Their expression of %s should deepen; %s",
		subs[0].Identifier, mood, rs.MicroCue)
}

type ambientEffect struct {
	keywords []string
	render   func(lighting, keyword string) string
}

var ambientEffects = []ambientEffect{
	{[]string{"fungi", "ethereal", "glow", "neon", "candle"}, func(lighting, _ string) string {
		return fmt.Sprintf("The ethereal %s should pulse gently, as if it's breathing.", lighting)
	}},
	{[]string{"fog", "mist", "haze", "smoke"}, func(_, kw string) string {
		return fmt.Sprintf("Let the %s drift slowly across the frame.", kw)
	}},
	{[]string{"dust"}, func(string, string) string {
		return "Animate dust motes to float slowly through the soft, volumetric light beams."
	}},
}

func i2vAmbient(rs ResolvedShot) string {
	env := rs.Shot.Image.Environment
	haystack := strings.ToLower(strings.Join([]string{
		env.Lighting,
		env.Weather,
		strings.Join(env.AtmosphereKeywords, " "),
		rs.Shot.Video.Motion.EnvironmentEffects,
	}, " "))
	var parts []string
	for _, fx := range ambientEffects {
		for _, kw := range fx.keywords {
			if strings.Contains(haystack, kw) {
				parts = append(parts, fx.render(env.Lighting, kw))
				break
			}
		}
	}
	return strings.Join(parts, " ")
}

var videoSections = []clause{
	{"opening", videoOpening},
	{"subject", videoSubject},
	{"location", videoLocation},
	{"cinematography", videoCinematography},
	{"lighting", videoLighting},
	{"atmosphere", videoAtmosphere},
	{"style", videoStyle},
	{"sound", videoSound},
	{"dialogue", videoDialogue},
	{"avoid", videoAvoid},
}

// ComposeVideoPrompt builds the sectioned text-to-video prompt.
func ComposeVideoPrompt(rs ResolvedShot) string {
	return strings.TrimSpace(strings.Join(render(videoSections, rs), "\n\n"))
}

func section(header, body string) string {
	return fmt.Sprintf("**%s:**\n*   %s", header, body)
}

func videoOpening(rs ResolvedShot) string {
	var style []string
	for _, s := range []string{rs.Genre, rs.Tone} {
		if s != "" {
			style = append(style, s)
		}
	}
	if len(style) == 0 {
		style = []string{"cinematic"}
	}
	return fmt.Sprintf("A cinematic shot focusing on %s. Style: %s.", rs.Shot.Purpose, strings.Join(style, ", "))
}

func videoSubject(rs ResolvedShot) string {
	if len(rs.Bindings) == 0 {
		return section("Subject", "An unnamed figure, central to the frame.")
	}
	lines := make([]string, 0, len(rs.Bindings))
	for _, b := range rs.Bindings {
		lines = append(lines, fmt.Sprintf("*   **%s**: %s", b.Subject.Identifier, b.Description))
	}
	return "**Subject:**\n" + strings.Join(lines, "\n")
}

func videoLocation(rs ResolvedShot) string {
	env := rs.Shot.Image.Environment
	loc := firstNonEmpty(env.LocationType, "A quiet, hidden place, deep inside a silent building.")
	if env.TimeOfDay != "" {
		loc += fmt.Sprintf(". Time: %s", env.TimeOfDay)
	}
	if env.Weather != "" {
		loc += fmt.Sprintf(". Weather: %s", env.Weather)
	}
	return section("Location", loc)
}

func videoCinematography(rs ResolvedShot) string {
	subject := "the subject"
	if subs := rs.Shot.Image.Subjects; len(subs) > 0 {
		subject = subs[0].Identifier
	}
	action := firstNonEmpty(rs.Shot.Video.MotionPrompt, fmt.Sprintf(
		"The video begins with a slow pan across the details of the environment. "+
			"The camera then settles on %s as they approach a point of interest. "+
			"The camera moves into a tight over-the-shoulder shot, then cuts to a close-up capturing their expression.",
		subject))
	if rs.Shot.DirectorNotes != "" {
		action += fmt.Sprintf(" Director's Notes: %s.", rs.Shot.DirectorNotes)
	}
	return section("Cinematography/Action", action)
}

func videoLighting(rs ResolvedShot) string {
	return section("Lighting", firstNonEmpty(rs.Shot.Image.Environment.Lighting,
		"The scene is illuminated by soft ambient light, creating gentle shadows and volumetric depth."))
}

func videoAtmosphere(rs ResolvedShot) string {
	atmosphere := "Awe-inspiring, quiet, and filled with a sacred tension."
	if kws := rs.Shot.Image.Environment.AtmosphereKeywords; len(kws) > 0 {
		atmosphere = strings.Join(kws, ", ")
	}
	return section("Atmosphere", atmosphere)
}

func videoStyle(rs ResolvedShot) string {
	preset := firstNonEmpty(rs.Shot.Image.Style.Preset, rs.ProjectStyle, "Cinematic")
	text := "A cinematic 8K hyperrealistic shot with a very shallow depth of field, focusing on emotional micro-expressions and intricate details."
	switch preset {
	case "Cinematic", "Hyperrealistic", "Photorealistic":
	default:
		kw, ok := StyleKeywords(preset)
		if !ok {
			kw, _ = StyleKeywords("Default")
		}
		text = fmt.Sprintf("%s, %s. %s", preset, kw, text)
	}
	return section("Video Style", fmt.Sprintf("%s Aspect Ratio: %s.", text, firstNonEmpty(rs.Shot.AspectRatio, defaultAspectRatio)))
}

func videoSound(rs ResolvedShot) string {
	audio := rs.Shot.Audio
	content := "The sound is minimalist and atmospheric."
	if sfx := strings.Join(audio.SFX, ", "); sfx != "" {
		content += " " + sfx
	}
	if audio.Music != "" {
		content += " Music/Score: " + audio.Music
	}
	return section("Sound Design", content)
}

func videoDialogue(rs ResolvedShot) string {
	line := strings.TrimSpace(rs.Shot.Audio.Voiceover)
	if line == "" {
		return section("Dialogue", "(Silent, her expression says everything)")
	}
	speaker := "Character"
	if subs := rs.Shot.Image.Subjects; len(subs) > 0 && subs[0].Identifier != "" {
		speaker = subs[0].Identifier
	}
	return section("Dialogue", fmt.Sprintf("**%s:** (Voice characteristics optional) \"%s\"", speaker, line))
}

func videoAvoid(rs ResolvedShot) string {
	if len(rs.Negatives) == 0 {
		return ""
	}
	return fmt.Sprintf("Avoid for video: %s.", strings.Join(rs.Negatives, ", "))
}
