package storyboard

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTrailerTitle = "Mysterious Project"

// Assembler builds whole storyboards and rebuilds single shots.
type Assembler struct {
	entropy  Entropy
	resolver *Resolver
	newID    func() string
	logger   *zap.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSeed fixes the root seed of every random pick.
func WithSeed(seed int64) Option {
	return func(a *Assembler) { a.entropy = NewEntropy(seed) }
}

// WithIDGenerator replaces uuid-based shot ids.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) { a.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// NewAssembler returns an Assembler seeded from the clock unless WithSeed is given.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		entropy: NewEntropy(time.Now().UnixNano()),
		newID:   uuid.NewString,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.resolver = NewResolver(a.entropy)
	return a
}

// Assemble derives the storyboard for spec. When previous scenes or a
// previous trailer are given, their shots are used as overrides slot by slot
// so that edits and generation results survive the rebuild.
func (a *Assembler) Assemble(spec ProjectSpec, previousScenes []Scene, previousTrailer *Scene) Preview {
	total := spec.TotalDuration
	if total <= 0 {
		total = defaultTotalDuration
	}
	alloc := Allocate(total, spec.SceneConfigurations, a.entropy)

	preview := Preview{
		FormData:    spec,
		Scenes:      []Scene{},
		AspectRatio: AspectRatioFor(spec.TargetPlatform),
	}
	global := 0

	trailerPlan := alloc.Trailer
	var trailerShots []Shot
	if previousTrailer != nil {
		p := a.planFromScene(*previousTrailer)
		trailerPlan = &p
		trailerShots = previousTrailer.Shots
	}
	if trailerPlan != nil {
		trailerPlan.Title = "Trailer: " + firstNonEmpty(spec.ProjectTitle, defaultTrailerTitle)
		tr, _ := a.buildSegment(spec, *trailerPlan, previousTrailer, trailerShots, false, &global, nil)
		preview.Trailer = &tr
	}

	plans := alloc.Scenes
	if len(previousScenes) > 0 {
		plans = make([]SegmentPlan, len(previousScenes))
		for i, s := range previousScenes {
			plans[i] = a.planFromScene(s)
			plans[i].Number = i + 1
		}
	}

	// continuity restarts after the trailer
	var prev *Shot
	for i, plan := range plans {
		var old *Scene
		var oldShots []Shot
		if i < len(previousScenes) {
			old = &previousScenes[i]
			oldShots = old.Shots
		}
		scene, last := a.buildSegment(spec, plan, old, oldShots, i == len(plans)-1, &global, prev)
		preview.Scenes = append(preview.Scenes, scene)
		prev = last
	}

	preview.TotalScenes = len(preview.Scenes)
	preview.TotalShots = global
	a.logger.Debug("storyboard assembled",
		zap.String("title", spec.ProjectTitle),
		zap.Int("scenes", preview.TotalScenes),
		zap.Int("shots", preview.TotalShots),
		zap.Bool("trailer", preview.Trailer != nil),
		zap.Bool("fallback", alloc.Fallback && len(previousScenes) == 0),
	)
	return preview
}

func (a *Assembler) planFromScene(s Scene) SegmentPlan {
	pacing := LookupPacing(s.Pacing)
	d := s.Duration
	if d <= 0 {
		for _, sh := range s.Shots {
			d += sh.Duration()
		}
	}
	count := len(s.Shots)
	if count == 0 {
		count = ShotCount(d, pacing)
	}
	return SegmentPlan{
		ID:            s.ID,
		Title:         s.Title,
		Number:        s.Number,
		Pacing:        pacing.Code,
		Duration:      d,
		ShotDurations: SplitDurations(d, count, pacing, a.entropy.For("alloc/"+s.ID)),
	}
}

func (a *Assembler) buildSegment(spec ProjectSpec, plan SegmentPlan, old *Scene, oldShots []Shot, lastScene bool, global *int, prev *Shot) (Scene, *Shot) {
	scene := Scene{
		ID:       plan.ID,
		Number:   plan.Number,
		Title:    plan.Title,
		Pacing:   plan.Pacing,
		Location: spec.EraSetting,
		Overview: "General overview of " + plan.Title + ".",
		Shots:    make([]Shot, 0, len(plan.ShotDurations)),
	}
	if old != nil {
		scene.Location = firstNonEmpty(old.Location, scene.Location)
		scene.Time = old.Time
		scene.Overview = firstNonEmpty(old.Overview, scene.Overview)
		scene.DirectorNotes = old.DirectorNotes
	}

	for j, d := range plan.ShotDurations {
		ctx := SceneContext{
			SceneID:        scene.ID,
			SceneTitle:     scene.Title,
			SceneNumber:    scene.Number,
			Location:       scene.Location,
			Pacing:         scene.Pacing,
			ShotIndex:      j,
			ShotsInSegment: len(plan.ShotDurations),
			LastScene:      lastScene,
			GlobalIndex:    *global,
			Duration:       d,
		}
		var shot Shot
		if j < len(oldShots) {
			shot = a.build(spec, OverrideFromShot(oldShots[j]), ctx, prev)
			carryGeneration(&shot, oldShots[j])
		} else {
			shot = a.build(spec, ShotOverride{ID: "shot-" + a.newID()}, ctx, prev)
		}
		scene.Shots = append(scene.Shots, shot)
		last := shot
		prev = &last
		*global++
	}
	scene.Duration = segmentDuration(scene)
	return scene, prev
}

func (a *Assembler) build(spec ProjectSpec, ov ShotOverride, ctx SceneContext, prev *Shot) Shot {
	rs := a.resolver.Resolve(spec, ov, ctx, prev)
	shot := rs.Shot
	shot.Prompts = Compose(rs)
	return shot
}

// carryGeneration keeps generation results across any rebuild.
func carryGeneration(dst *Shot, src Shot) {
	dst.ImageStatus = firstStatus(src.ImageStatus)
	dst.VideoStatus = firstStatus(src.VideoStatus)
	dst.ImageURL = src.ImageURL
	dst.VideoURL = src.VideoURL
	dst.ImageError = src.ImageError
	dst.VideoError = src.VideoError
}

func firstStatus(s GenerationStatus) GenerationStatus {
	if s == "" {
		return StatusIdle
	}
	return s
}

func segmentDuration(s Scene) int {
	sum := 0
	for _, sh := range s.Shots {
		sum += sh.Duration()
	}
	return sum
}

// ResetEdgePurposes returns a copy of s in which the opening and/or closing
// shot drops a narrative purpose that assembly derives from the scene's
// position, so the next assembly derives it again for the new position.
func ResetEdgePurposes(s Scene, first, last bool) Scene {
	shots := append([]Shot(nil), s.Shots...)
	if n := len(shots); n > 0 {
		if first && (shots[0].Purpose == PurposeEstablishScene || shots[0].Purpose == PurposeTransition) {
			shots[0].Purpose = ""
		}
		if last && (shots[n-1].Purpose == PurposeResolution || shots[n-1].Purpose == PurposeTransition) {
			shots[n-1].Purpose = ""
		}
	}
	s.Shots = shots
	return s
}
