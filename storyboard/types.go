package storyboard

// GenerationStatus tracks the external image/video generation of one shot.
type GenerationStatus string

const (
	StatusIdle       GenerationStatus = "idle"
	StatusGenerating GenerationStatus = "generating"
	StatusGenerated  GenerationStatus = "generated"
	StatusError      GenerationStatus = "error"
)

// CharacterDef is a character declared on the project.
type CharacterDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SceneConfig is the user's scene plan: duration in seconds and pacing code.
type SceneConfig struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Duration int        `json:"estimatedDuration"`
	Pacing   PacingCode `json:"pacing"`
}

// ProjectSpec is the submitted wizard form. It is never mutated by the engine.
type ProjectSpec struct {
	ProjectTitle        string         `json:"projectTitle"`
	Description         string         `json:"description"`
	Genre               string         `json:"genre"`
	CustomGenre         string         `json:"customGenre,omitempty"`
	NarrativeTone       string         `json:"narrativeTone"`
	VisualStyle         string         `json:"visualStyle"`
	CustomVisualStyle   string         `json:"customVisualStyle,omitempty"`
	TotalDuration       int            `json:"totalDuration"`
	EraSetting          string         `json:"eraSetting,omitempty"`
	MainConflict        string         `json:"mainConflict,omitempty"`
	Themes              []string       `json:"themes,omitempty"`
	Characters          []CharacterDef `json:"characters,omitempty"`
	CameraMovement      []string       `json:"cameraMovement,omitempty"`
	CameraAngles        []string       `json:"cameraAngles,omitempty"`
	LightingStyles      []string       `json:"lightingStyles,omitempty"`
	TargetPlatform      string         `json:"targetPlatform,omitempty"`
	AudienceAge         string         `json:"audienceAge,omitempty"`
	PromptLanguageStyle string         `json:"promptLanguageStyle,omitempty"`
	KeyMoments          string         `json:"keyMoments,omitempty"`
	DesiredEnding       string         `json:"desiredEnding,omitempty"`
	SpecificElements    string         `json:"specificElements,omitempty"`
	SceneConfigurations []SceneConfig  `json:"sceneConfigurations,omitempty"`
}

// GenreLabel returns the custom genre when "Other" was picked.
func (p ProjectSpec) GenreLabel() string {
	if p.Genre == "Other" && p.CustomGenre != "" {
		return p.CustomGenre
	}
	return p.Genre
}

// StyleLabel returns the custom visual style when "Other" was picked.
func (p ProjectSpec) StyleLabel() string {
	if p.VisualStyle == "Other" {
		return p.CustomVisualStyle
	}
	return p.VisualStyle
}

// Hair describes a subject's hair.
type Hair struct {
	Color          string `json:"color,omitempty"`
	StyleCondition string `json:"style_condition,omitempty"`
}

// SubjectDetail is one subject slot of a shot.
type SubjectDetail struct {
	Identifier          string   `json:"identifier"`
	CharacterRef        string   `json:"use_character_reference_id,omitempty"`
	Type                string   `json:"type,omitempty"`
	AgeAppearance       string   `json:"age_appearance,omitempty"`
	KeyFeatures         string   `json:"key_features,omitempty"`
	KeyFeaturesOverride string   `json:"key_features_override,omitempty"`
	ClothingOverride    string   `json:"clothing_override,omitempty"`
	ExpressionMood      string   `json:"expression_mood,omitempty"`
	SkinTone            string   `json:"skin_tone,omitempty"`
	Hair                Hair     `json:"hair,omitempty"`
	ConditionNotes      []string `json:"condition_notes,omitempty"`
	Wearing             string   `json:"wearing,omitempty"`
}

// EnvironmentSetting is where and under what light a shot happens.
type EnvironmentSetting struct {
	LocationType       string   `json:"location_type,omitempty"`
	TimeOfDay          string   `json:"time_of_day,omitempty"`
	Weather            string   `json:"weather,omitempty"`
	KeyElements        []string `json:"key_elements,omitempty"`
	Lighting           string   `json:"lighting_description,omitempty"`
	AtmosphereKeywords []string `json:"atmosphere_keywords,omitempty"`
}

// CameraDetails is the still camera setup.
type CameraDetails struct {
	Framing      string `json:"shot_framing,omitempty"`
	Angle        string `json:"camera_angle,omitempty"`
	DepthOfField string `json:"depth_of_field,omitempty"`
}

// ArtisticStyle is the style preset plus modifiers and negatives.
type ArtisticStyle struct {
	Preset    string   `json:"selected_style_preset,omitempty"`
	Modifiers []string `json:"user_specific_style_modifiers,omitempty"`
	Negatives []string `json:"negative_style_elements,omitempty"`
}

// ImageInput carries the structured fields behind the image prompt.
type ImageInput struct {
	Description      string             `json:"description_narrative,omitempty"`
	Subjects         []SubjectDetail    `json:"subject_details,omitempty"`
	Environment      EnvironmentSetting `json:"environment_setting"`
	Camera           CameraDetails      `json:"camera_shot_details"`
	Style            ArtisticStyle      `json:"artistic_style"`
	ConsistencyID    string             `json:"character_consistency_id,omitempty"`
	NegativeFallback string             `json:"negative_prompt_fallback,omitempty"`
	Seed             int64              `json:"seed,omitempty"`
	AspectRatio      string             `json:"aspect_ratio,omitempty"`
	RawPrompt        string             `json:"raw_user_prompt_input,omitempty"`
	UseRawPrompt     bool               `json:"use_raw_user_prompt,omitempty"`
}

// Source converts the persisted raw-prompt flag into a PromptSource.
func (in ImageInput) Source() PromptSource {
	if in.UseRawPrompt && in.RawPrompt != "" {
		return Raw{Text: in.RawPrompt}
	}
	return Templated{}
}

// SubjectAction is one animated action in a shot.
type SubjectAction struct {
	SubjectID   string `json:"subject_identifier"`
	Description string `json:"action_description"`
	Emotion     string `json:"emotion_during_action,omitempty"`
}

// MotionDescription is the camera and subject motion of a shot.
type MotionDescription struct {
	CameraMovement     string          `json:"camera_movement,omitempty"`
	CameraTarget       string          `json:"camera_movement_target,omitempty"`
	SubjectActions     []SubjectAction `json:"subject_action,omitempty"`
	EnvironmentEffects string          `json:"environmental_effects_animation,omitempty"`
}

// Continuity is copied from the shot that precedes this one.
type Continuity struct {
	PreviousCameraState string `json:"previous_camera_state,omitempty"`
	PreviousActionEnd   string `json:"previous_action_end,omitempty"`
	PreviousEmotion     string `json:"previous_emotion,omitempty"`
	PreviousSummary     string `json:"previous_summary,omitempty"`
}

// VideoInput carries the structured fields behind the video prompts.
type VideoInput struct {
	DurationSeconds int               `json:"shot_duration_seconds"`
	MotionPrompt    string            `json:"user_video_motion_prompt,omitempty"`
	Pacing          PacingCode        `json:"pacing,omitempty"`
	Motion          MotionDescription `json:"motion_description"`
	Continuity      Continuity        `json:"continuity"`
}

// AudioSettings is the per-shot sound plan.
type AudioSettings struct {
	Voiceover string   `json:"voiceover,omitempty"`
	SFX       []string `json:"sfx,omitempty"`
	Music     string   `json:"music_score_description,omitempty"`
}

// Prompts holds the three composed prompt strings.
type Prompts struct {
	Image        string `json:"imagePrompt"`
	ImageToVideo string `json:"imageToVideoPrompt"`
	Video        string `json:"videoPrompt"`
}

// Shot is a single node of the storyboard tree.
type Shot struct {
	ID               string           `json:"id"`
	Number           int              `json:"shotNumberInScene"`
	FullID           string           `json:"fullShotIdentifier"`
	Purpose          NarrativePurpose `json:"narrativePurpose"`
	DirectorNotes    string           `json:"directorNotes,omitempty"`
	Audio            AudioSettings    `json:"audio"`
	Image            ImageInput       `json:"imagePromptInput"`
	Video            VideoInput       `json:"videoPromptInput"`
	Prompts          Prompts          `json:"prompts"`
	NarrativeSummary string           `json:"narrativeSummary,omitempty"`
	AspectRatio      string           `json:"aspectRatio"`

	ImageStatus GenerationStatus `json:"imageStatus"`
	VideoStatus GenerationStatus `json:"videoStatus"`
	ImageURL    string           `json:"generatedImageUrl,omitempty"`
	VideoURL    string           `json:"generatedVideoUrl,omitempty"`
	ImageError  string           `json:"imageError,omitempty"`
	VideoError  string           `json:"videoError,omitempty"`
}

// Duration is the resolved length of the shot in seconds.
func (s Shot) Duration() int { return s.Video.DurationSeconds }

// Scene is a scene or the trailer segment. The trailer has Number 0.
type Scene struct {
	ID            string     `json:"id"`
	Number        int        `json:"sceneNumber"`
	Title         string     `json:"title"`
	Duration      int        `json:"duration"`
	Pacing        PacingCode `json:"pacing"`
	Location      string     `json:"location,omitempty"`
	Time          string     `json:"time,omitempty"`
	Overview      string     `json:"overview,omitempty"`
	DirectorNotes string     `json:"directorNotes,omitempty"`
	Shots         []Shot     `json:"shots"`
}

// IsTrailer reports whether the segment is the trailer.
func (s Scene) IsTrailer() bool { return s.Number == 0 }

// Preview is the assembled storyboard tree.
type Preview struct {
	FormData    ProjectSpec `json:"formData"`
	Trailer     *Scene      `json:"trailer,omitempty"`
	Scenes      []Scene     `json:"scenes"`
	TotalScenes int         `json:"totalScenes"`
	TotalShots  int         `json:"totalShots"`
	AspectRatio string      `json:"aspectRatio"`
}

// Segments returns the trailer (if any) followed by the scenes, in document order.
func (p *Preview) Segments() []*Scene {
	out := make([]*Scene, 0, len(p.Scenes)+1)
	if p.Trailer != nil {
		out = append(out, p.Trailer)
	}
	for i := range p.Scenes {
		out = append(out, &p.Scenes[i])
	}
	return out
}

// FindShot returns the shot with the given id.
func (p *Preview) FindShot(id string) (*Shot, bool) {
	for _, seg := range p.Segments() {
		for i := range seg.Shots {
			if seg.Shots[i].ID == id {
				return &seg.Shots[i], true
			}
		}
	}
	return nil, false
}
