package storyboard

import "strings"

// PacingCode identifies a pacing curve.
type PacingCode string

const (
	PacingVeryFast PacingCode = "VF"
	PacingFast     PacingCode = "F"
	PacingMedium   PacingCode = "M"
	PacingSlow     PacingCode = "SL"
	PacingVerySlow PacingCode = "VS"
)

// Pacing is the average seconds per shot and its allowed range.
type Pacing struct {
	Code    PacingCode `json:"code"`
	Label   string     `json:"label"`
	Average float64    `json:"averageShotDuration"`
	Min     int        `json:"min"`
	Max     int        `json:"max"`
}

var pacingTable = []Pacing{
	{Code: PacingVeryFast, Label: "Very Fast (VF) - ~1.5s/shot", Average: 1.5, Min: 1, Max: 2},
	{Code: PacingFast, Label: "Fast (F) - ~3s/shot", Average: 3, Min: 2, Max: 4},
	{Code: PacingMedium, Label: "Medium (M) - ~4.5s/shot", Average: 4.5, Min: 3, Max: 6},
	{Code: PacingSlow, Label: "Slow (SL) - ~6.5s/shot", Average: 6.5, Min: 5, Max: 8},
	{Code: PacingVerySlow, Label: "Very Slow (VS) - 8s+/shot", Average: 8.5, Min: 8, Max: 12},
}

// LookupPacing returns the pacing for code, Medium when the code is unknown.
func LookupPacing(code PacingCode) Pacing {
	for _, p := range pacingTable {
		if p.Code == code {
			return p
		}
	}
	return pacingTable[2]
}

// Pacings lists every pacing curve.
func Pacings() []Pacing {
	out := make([]Pacing, len(pacingTable))
	copy(out, pacingTable)
	return out
}

// NarrativePurpose tags what a shot does for the story.
type NarrativePurpose string

const (
	PurposeEstablishScene     NarrativePurpose = "Establish Scene"
	PurposeIntroduceCharacter NarrativePurpose = "Introduce Character"
	PurposeKeyInformation     NarrativePurpose = "Deliver Key Information"
	PurposeShowReaction       NarrativePurpose = "Show Reaction"
	PurposeBuildSuspense      NarrativePurpose = "Build Suspense"
	PurposeClimaxAction       NarrativePurpose = "Climax Action"
	PurposeResolution         NarrativePurpose = "Resolution"
	PurposeMontage            NarrativePurpose = "Montage Sequence"
	PurposeTransition         NarrativePurpose = "Transition"
	PurposeForeshadowing      NarrativePurpose = "Foreshadowing"
	PurposeCharacterMoment    NarrativePurpose = "Character Development Moment"
	PurposeWorldBuilding      NarrativePurpose = "World Building Detail"
)

// NarrativePurposes is the full enumeration in display order.
var NarrativePurposes = []NarrativePurpose{
	PurposeEstablishScene,
	PurposeIntroduceCharacter,
	PurposeKeyInformation,
	PurposeShowReaction,
	PurposeBuildSuspense,
	PurposeClimaxAction,
	PurposeResolution,
	PurposeMontage,
	PurposeTransition,
	PurposeForeshadowing,
	PurposeCharacterMoment,
	PurposeWorldBuilding,
}

// randomPurposes excludes purposes that only make sense at fixed positions.
var randomPurposes = func() []NarrativePurpose {
	out := make([]NarrativePurpose, 0, len(NarrativePurposes))
	for _, p := range NarrativePurposes {
		switch p {
		case PurposeResolution, PurposeEstablishScene, PurposeIntroduceCharacter:
			continue
		}
		out = append(out, p)
	}
	return out
}()

// DurationOptions are the selectable project lengths in seconds.
var DurationOptions = []int{15, 30, 45, 60, 90, 120, 150, 180, 210, 240, 270, 300}

// SceneRecommendation is a coarse scene-count band for a project length.
type SceneRecommendation struct {
	MinScenes int    `json:"minScenes"`
	MaxScenes int    `json:"maxScenes"`
	Typical   string `json:"typical"`
}

var sceneRecommendations = map[int]SceneRecommendation{
	15:  {1, 2, "1-2 scenes"},
	30:  {1, 3, "1-3 scenes"},
	45:  {2, 4, "2-4 scenes"},
	60:  {2, 5, "2-5 scenes"},
	90:  {3, 6, "3-6 scenes"},
	120: {3, 7, "3-7 scenes"},
	150: {4, 8, "4-8 scenes"},
	180: {4, 10, "4-10 scenes"},
	210: {5, 11, "5-11 scenes"},
	240: {5, 12, "5-12 scenes"},
	270: {6, 14, "6-14 scenes"},
	300: {6, 15, "6-15 scenes"},
}

// RecommendScenes returns the scene band for total; ok is false off the table.
func RecommendScenes(total int) (SceneRecommendation, bool) {
	r, ok := sceneRecommendations[total]
	return r, ok
}

const defaultAspectRatio = "16:9"

var platformRatios = map[string]string{
	"YouTube (16:9)":                   "16:9",
	"YouTube Shorts (9:16)":            "9:16",
	"Instagram Feed - Square (1:1)":    "1:1",
	"Instagram Feed - Portrait (4:5)":  "4:5",
	"Instagram Story/Reels (9:16)":     "9:16",
	"TikTok (9:16)":                    "9:16",
	"Facebook Feed - Landscape (16:9)": "16:9",
	"Facebook Feed - Portrait (4:5)":   "4:5",
	"Facebook Story (9:16)":            "9:16",
	"Film Festival (16:9)":             "16:9",
}

// AspectRatioFor maps a target platform to its aspect ratio.
func AspectRatioFor(platform string) string {
	if r, ok := platformRatios[platform]; ok {
		return r
	}
	return defaultAspectRatio
}

// DefaultNegativePrompt is appended to every shot's negatives.
const DefaultNegativePrompt = "blurry, low quality, text, watermark, deformed, ugly, worst quality, lowres, bad art, bad anatomy, bad hands, error, missing fngers, extra digit, fewer digits, cropped, jpeg artifacts, signature, username, artist name"

var styleKeywords = map[string]string{
	"Cinematic":                  "cinematic lighting, dramatic, film grain, high contrast, professional color grading, wide screen, depth of field",
	"Photorealistic":             "photorealistic, 8K, UHD, sharp focus, high detail, realistic textures, natural lighting",
	"Hyperrealistic":             "hyperrealistic, intricate detail, lifelike, physically-based rendering, ultra high resolution, meticulous textures",
	"Film Noir":                  "film noir, black and white, chiaroscuro, low-key lighting, dramatic shadows, mysterious, venetian blinds effect, 1940s aesthetic",
	"Neo-Noir":                   "neo-noir, dark, moody, neon lighting, urban decay, rain-slicked streets, modern noir aesthetic",
	"Naturalistic Lighting":      "natural light, soft shadows, balanced exposure, realistic illumination, unstyled lighting",
	"Golden Hour Aesthetic":      "golden hour, warm lighting, long shadows, soft light, beautiful, atmospheric",
	"Gritty Realism":             "gritty, realism, urban decay, desaturated colors, textured, raw, documentary style",
	"Abstract":                   "abstract, non-representational, shapes, colors, textures, experimental, conceptual",
	"Anime (General)":            "anime style, cel shaded, vibrant colors, expressive eyes, Japanese animation, dynamic lines",
	"Anime (Shonen)":             "shonen anime style, action-packed, dynamic poses, speed lines, intense expressions, bright effects",
	"Anime (Shojo)":              "shojo anime style, romantic, delicate lines, large expressive eyes, pastel colors, floral motifs, emotional",
	"Cartoon (General)":          "cartoon style, exaggerated features, bright colors, simple shapes, 2D animation, playful",
	"Comic Book Art (Manga)":     "manga style, black and white, screentones, dynamic paneling, expressive characters, Japanese comic art",
	"Comic Book Art (Marvel/DC)": "comic book art, American superhero style, dynamic action, bold colors, inked lines, heroic poses",
	"Cyberpunk":                  "cyberpunk, futuristic, neon lights, dystopian city, cybernetics, high-tech, gritty urban, blade runner aesthetic",
	"Disney Animation Style":     "classic Disney animation style, expressive characters, fluid animation, rounded shapes, vibrant colors, charming",
	"Impressionistic":            "impressionistic, soft focus, visible brush strokes, light and color, painterly, dreamy",
	"Low Poly 3D":                "low poly, 3D render, geometric shapes, stylized, minimalist, retro 3D aesthetic",
	"Minimalist":                 "minimalist, clean lines, simple shapes, negative space, uncluttered, modern",
	"Modern Flat Cartoon":        "modern flat design, 2D cartoon, simple characters, bold outlines, limited color palette, vector art",
	"Oil Painting":               "oil painting style, rich colors, visible brushstrokes, textured, classical art",
	"Pixar Animation Style":      "Pixar style, 3D animation, appealing characters, detailed environments, expressive, storytelling focus",
	"Pop Art":                    "pop art, bold colors, graphic style, Ben-Day dots, iconic imagery, Andy Warhol style",
	"Retro (80s)":                "80s retro aesthetic, neon, synthwave, vintage electronics, grainy, vibrant, nostalgic",
	"Retro (90s)":                "90s retro aesthetic, grunge, early internet, colorful patterns, nostalgic,Saved by the Bell style",
	"Sketch/Hand-drawn":          "sketch style, hand-drawn, pencil lines, cross-hatching, unfinished look, artistic",
	"Solarpunk":                  "solarpunk, optimistic future, sustainable technology, lush greenery, art nouveau influences, bright and clean",
	"Steampunk":                  "steampunk, Victorian era, steam-powered technology, gears, brass, goggles, retrofuturistic",
	"Studio Ghibli Inspired":     "Studio Ghibli style, hand-drawn animation, lush nature, fantastical elements, whimsical, detailed backgrounds, emotional storytelling",
	"Surreal":                    "surreal, dreamlike, illogical, bizarre imagery, Salvador Dali style, subconscious exploration",
	"Vintage Film Look":          "vintage film, desaturated colors, film grain, light leaks, old movie aesthetic, scratches",
	"Watercolor":                 "watercolor style, soft washes, translucent colors, blended edges, artistic, delicate",
	"Kubrickian":                 "Kubrickian, symmetrical composition, one-point perspective, meticulous detail, wide-angle shots, psychological tension",
	"Tarantinoesque":             "Tarantinoesque, stylized violence, non-linear narrative, pop culture references, witty dialogue, vibrant cinematography",
	"Tim Burton Gothic":          "Tim Burton style, gothic, dark fantasy, quirky characters, whimsical, expressionistic, pale skin, large eyes",
	"Wes Anderson Symmetry":      "Wes Anderson style, symmetrical composition, flat space, distinct color palettes, quirky, deadpan humor, detailed props",
	"Aerial/Drone":               "aerial view, drone shot, top-down perspective, birds-eye view, expansive landscape",
	"Black & White":              "black and white, monochrome, grayscale, contrast, shadows, classic photography",
	"Blue Hour Lighting":         "blue hour, twilight, cool tones, soft light, atmospheric, moody",
	"Macro":                      "macro photography, extreme close-up, tiny details, shallow depth of field, intricate textures",
	"Sepia":                      "sepia tone, brownish tint, vintage photo effect, nostalgic, old-fashioned",
	"Default":                    "well-lit, clear, detailed, standard composition, good quality",
	"Other":                      "user-defined custom style, unique aesthetic",
}

// StyleKeywords returns the keyword expansion for a style preset.
func StyleKeywords(preset string) (string, bool) {
	k, ok := styleKeywords[preset]
	return k, ok
}

type expressionCue struct {
	keywords []string
	cue      string
}

// first match wins
var expressionCues = []expressionCue{
	{[]string{"sad", "melancholic"}, "their lower lip trembles slightly, eyes glisten with unshed tears, and they subtly clench their jaw."},
	{[]string{"happy", "joy"}, "their eyes crinkle at the corners, a genuine smile lights up their face, perhaps a soft chuckle escapes."},
	{[]string{"angry", "furious"}, "their brows furrow deeply, nostrils flare, lips thin into a hard line, and jaw tenses."},
	{[]string{"surprised", "shocked"}, "their eyes widen, eyebrows raise high, and mouth may fall slightly open."},
	{[]string{"fear", "scared"}, "their eyes dart around, pupils may dilate, they might swallow hard or their breath hitches."},
	{[]string{"thoughtful", "contemplative"}, "their gaze is distant, perhaps a slight frown of concentration, or a finger lightly touching their lips or chin."},
	{[]string{"determined", "focused"}, "their jaw is set, eyes narrowed with intent, and their expression is firm and unwavering."},
	{[]string{"awe", "wonder"}, "eyes widen marginally, perhaps a slight parting of the lips, breath held for a moment."},
}

// MicroExpressionCue maps a mood to a physical cue sentence.
func MicroExpressionCue(mood string) string {
	if strings.TrimSpace(mood) == "" {
		return "subtle facial movements indicating thought or emotion."
	}
	lower := strings.ToLower(mood)
	for _, c := range expressionCues {
		for _, k := range c.keywords {
			if strings.Contains(lower, k) {
				return c.cue
			}
		}
	}
	return "subtle facial movements reflecting " + mood + "."
}
