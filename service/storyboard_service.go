package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storyboard-server/models"
	"storyboard-server/storyboard"
)

var (
	ErrImageRequired = errors.New("shot has no generated image")
	ErrNotStoryboard = errors.New("project is not a storyboard")
	ErrNoShots       = errors.New("project has no shots")
	ErrTaskNotFound  = errors.New("task not found")
)

const (
	storyboardIDPrefix = "storyboard-"
	storylineIDPrefix  = "storyline-"
)

var tracer = otel.Tracer("storyboard-server/service")

// CreateResult is a saved storyboard plus the soft warnings raised while
// building it.
type CreateResult struct {
	Project  models.SavedProject `json:"project"`
	Warnings []string            `json:"warnings"`
}

// StoryboardService ties the engine to storage and the generation queue.
type StoryboardService struct {
	projects  ProjectRepository
	shots     *ProjectShots
	db        *gorm.DB
	queue     TaskEnqueuer
	assembler *storyboard.Assembler
	mirror    bool
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

type ServiceOption func(*StoryboardService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *StoryboardService) {
		s.now = now
		s.shots.now = now
	}
}

// WithProjectIDs replaces uuid-based project ids.
func WithProjectIDs(fn func() string) ServiceOption {
	return func(s *StoryboardService) { s.newID = fn }
}

// WithMirroring asks the processor to copy results into object storage.
func WithMirroring(on bool) ServiceOption {
	return func(s *StoryboardService) { s.mirror = on }
}

func NewStoryboardService(projects ProjectRepository, shots *ProjectShots, db *gorm.DB, queue TaskEnqueuer, assembler *storyboard.Assembler, logger *zap.Logger, opts ...ServiceOption) *StoryboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StoryboardService{
		projects:  projects,
		shots:     shots,
		db:        db,
		queue:     queue,
		assembler: assembler,
		logger:    logger.Named("storyboard"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assembles a storyboard from spec and saves it. A storyboard already
// saved under the same title is replaced in place.
func (s *StoryboardService) Create(ctx context.Context, spec storyboard.ProjectSpec) (CreateResult, error) {
	ctx, span := tracer.Start(ctx, "storyboard.create")
	defer span.End()

	warnings := storyboard.CheckDurations(spec)
	if len(warnings) > 0 {
		durationWarnings.Inc()
		s.logger.Info("duration mismatch", zap.String("title", spec.ProjectTitle), zap.Strings("warnings", warnings))
	}

	preview := s.assembler.Assemble(spec, nil, nil)
	storyboardsAssembled.WithLabelValues("create").Inc()

	id := storyboardIDPrefix + s.newID()
	if spec.ProjectTitle != "" {
		existing, err := s.projects.FindByTitle(ctx, spec.ProjectTitle)
		switch {
		case err == nil:
			id = existing.ID
		case !errors.Is(err, models.ErrProjectNotFound):
			return CreateResult{}, err
		}
	}
	span.SetAttributes(attribute.String("project.id", id), attribute.Int("shots", preview.TotalShots))

	project := models.NewStoryboardProject(id, preview, s.now())
	if err := s.projects.SaveProject(ctx, project); err != nil {
		return CreateResult{}, err
	}
	s.logger.Info("storyboard created",
		zap.String("project_id", id),
		zap.Int("scenes", preview.TotalScenes),
		zap.Int("shots", preview.TotalShots),
		zap.Bool("trailer", preview.Trailer != nil))
	if warnings == nil {
		warnings = []string{}
	}
	return CreateResult{Project: project, Warnings: warnings}, nil
}

func (s *StoryboardService) Get(ctx context.Context, id string) (models.SavedProject, error) {
	return s.projects.LoadProject(ctx, id)
}

func (s *StoryboardService) List(ctx context.Context) ([]models.SavedProject, error) {
	return s.projects.ListProjects(ctx)
}

func (s *StoryboardService) Delete(ctx context.Context, id string) error {
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}

// Import saves every readable project from an exported project list. Records
// that do not validate are skipped; a project with the same id is replaced.
func (s *StoryboardService) Import(ctx context.Context, raw []byte) ([]models.SavedProject, error) {
	projects := models.ParseProjectList(raw)
	for _, p := range projects {
		if err := s.projects.SaveProject(ctx, p); err != nil {
			return nil, fmt.Errorf("import %s: %w", p.ID, err)
		}
	}
	s.logger.Info("projects imported", zap.Int("count", len(projects)))
	return projects, nil
}

// Duplicate saves a copy of the project under a new id.
func (s *StoryboardService) Duplicate(ctx context.Context, id string) (models.SavedProject, error) {
	src, err := s.projects.LoadProject(ctx, id)
	if err != nil {
		return models.SavedProject{}, err
	}
	prefix := storyboardIDPrefix
	if src.ProjectType == models.ProjectTypeStorylineIdea {
		prefix = storylineIDPrefix
	}
	cp, err := src.Duplicate(prefix+s.newID(), s.now())
	if err != nil {
		return models.SavedProject{}, err
	}
	if err := s.projects.SaveProject(ctx, cp); err != nil {
		return models.SavedProject{}, err
	}
	return cp, nil
}

// Regenerate rebuilds the storyboard from its spec, or from spec when one is
// given. Existing shots are kept slot by slot.
func (s *StoryboardService) Regenerate(ctx context.Context, id string, spec *storyboard.ProjectSpec) (models.SavedProject, error) {
	ctx, span := tracer.Start(ctx, "storyboard.regenerate")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id))

	return s.shots.Update(ctx, id, func(p *models.SavedProject) error {
		current, ok := p.Preview()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotStoryboard, id)
		}
		scenes, trailer := current.Scenes, current.Trailer
		form := current.FormData
		if spec != nil {
			form = *spec
			scenes, trailer = carryScenes(form, current.Scenes, current.Trailer)
		}
		preview := s.assembler.Assemble(form, scenes, trailer)
		storyboardsAssembled.WithLabelValues("regenerate").Inc()
		*p = models.NewStoryboardProject(p.ID, preview, s.now())
		return nil
	})
}

// carryScenes lines the stored scenes up with an edited scene plan. A scene
// whose id, duration and pacing are unchanged keeps its shots; any other
// configured scene starts empty and is rebuilt. A kept scene that moves into
// or out of the opening or closing slot has its edge purposes re-derived.
func carryScenes(spec storyboard.ProjectSpec, old []storyboard.Scene, oldTrailer *storyboard.Scene) ([]storyboard.Scene, *storyboard.Scene) {
	alloc := storyboard.Allocate(spec.TotalDuration, spec.SceneConfigurations, storyboard.NewEntropy(0))
	if alloc.Fallback {
		return nil, nil
	}
	byID := make(map[string]int, len(old))
	for i, sc := range old {
		byID[sc.ID] = i
	}
	out := make([]storyboard.Scene, 0, len(alloc.Scenes))
	for k, plan := range alloc.Scenes {
		if i, ok := byID[plan.ID]; ok && old[i].Duration == plan.Duration && old[i].Pacing == plan.Pacing {
			wasFirst, wasLast := i == 0, i == len(old)-1
			isFirst, isLast := k == 0, k == len(alloc.Scenes)-1
			sc := storyboard.ResetEdgePurposes(old[i], wasFirst != isFirst, wasLast != isLast)
			sc.Title = plan.Title
			sc.Number = plan.Number
			out = append(out, sc)
			continue
		}
		out = append(out, storyboard.Scene{
			ID:       plan.ID,
			Number:   plan.Number,
			Title:    plan.Title,
			Duration: plan.Duration,
			Pacing:   plan.Pacing,
		})
	}
	if alloc.Trailer == nil {
		return out, nil
	}
	return out, oldTrailer
}

// UpdateShot applies edits to one shot and rebuilds its prompts.
func (s *StoryboardService) UpdateShot(ctx context.Context, projectID, shotID string, edits storyboard.ShotEdits) (storyboard.Shot, error) {
	ctx, span := tracer.Start(ctx, "storyboard.update_shot")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID), attribute.String("shot.id", shotID))

	var updated storyboard.Shot
	_, err := s.shots.Update(ctx, projectID, func(p *models.SavedProject) error {
		current, ok := p.Preview()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotStoryboard, projectID)
		}
		next, err := s.assembler.RecomputeShot(current, shotID, edits)
		if err != nil {
			return err
		}
		shotsRecomputed.Inc()
		*p = models.NewStoryboardProject(p.ID, next, s.now())
		shot, _ := p.FindShot(shotID)
		updated = *shot
		return nil
	})
	if err != nil {
		return storyboard.Shot{}, err
	}
	return updated, nil
}

// RequestImages queues image generation for every shot of the project, in
// document order.
func (s *StoryboardService) RequestImages(ctx context.Context, projectID string) (*models.Task, error) {
	p, err := s.storyboardProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	shots := p.Shots()
	if len(shots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoShots, projectID)
	}
	ids := make([]string, 0, len(shots))
	for _, sh := range shots {
		ids = append(ids, sh.ID)
	}
	return s.submit(ctx, &models.Task{
		ProjectId:  projectID,
		Type:       models.TaskTypeBulkImages,
		Parameters: models.TaskParameters{ShotIDs: ids, Mirror: s.mirror},
		Result:     models.TaskResult{Total: len(ids), ResourceType: string(MediaImage)},
	})
}

// RequestShotImage queues image generation for one shot.
func (s *StoryboardService) RequestShotImage(ctx context.Context, projectID, shotID string) (*models.Task, error) {
	p, err := s.storyboardProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.FindShot(shotID); !ok {
		return nil, fmt.Errorf("%w: %s", storyboard.ErrShotNotFound, shotID)
	}
	return s.submit(ctx, &models.Task{
		ProjectId:  projectID,
		ShotId:     shotID,
		Type:       models.TaskTypeShotImage,
		Parameters: models.TaskParameters{ShotIDs: []string{shotID}, Mirror: s.mirror},
		Result:     models.TaskResult{Total: 1, ResourceType: string(MediaImage)},
	})
}

// RequestShotVideo queues image-to-video generation for one shot. The shot
// must already have an image.
func (s *StoryboardService) RequestShotVideo(ctx context.Context, projectID, shotID string) (*models.Task, error) {
	p, err := s.storyboardProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	shot, ok := p.FindShot(shotID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storyboard.ErrShotNotFound, shotID)
	}
	if shot.ImageURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrImageRequired, shot.FullID)
	}
	return s.submit(ctx, &models.Task{
		ProjectId:  projectID,
		ShotId:     shotID,
		Type:       models.TaskTypeShotVideo,
		Parameters: models.TaskParameters{ShotIDs: []string{shotID}, Mirror: s.mirror},
		Result:     models.TaskResult{Total: 1, ResourceType: string(MediaVideo)},
	})
}

func (s *StoryboardService) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := models.GetTaskByID(ctx, s.db, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, err
}

func (s *StoryboardService) storyboardProject(ctx context.Context, id string) (models.SavedProject, error) {
	p, err := s.projects.LoadProject(ctx, id)
	if err != nil {
		return models.SavedProject{}, err
	}
	if p.ProjectType != models.ProjectTypeStoryboard {
		return models.SavedProject{}, fmt.Errorf("%w: %s", ErrNotStoryboard, id)
	}
	return p, nil
}

func (s *StoryboardService) submit(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.ID = uuid.NewString()
	task.Status = models.TaskStatusPending
	task.Message = "queued"
	if err := models.CreateTask(ctx, s.db, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := s.queue.EnqueueTask(ctx, task.ID); err != nil {
		_ = task.UpdateStatus(ctx, s.db, models.TaskStatusFailed, nil, err.Error())
		return nil, err
	}
	s.logger.Info("generation task submitted",
		zap.String("task_id", task.ID),
		zap.String("project_id", task.ProjectId),
		zap.String("type", task.Type),
		zap.Int("shots", len(task.Parameters.ShotIDs)))
	return task, nil
}
