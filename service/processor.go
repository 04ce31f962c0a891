package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storyboard-server/config"
	"storyboard-server/models"
	"storyboard-server/storyboard"
)

// Processor consumes generation tasks from the queue.
type Processor struct {
	db       *gorm.DB
	projects ProjectRepository
	runner   *BatchRunner
	logger   *zap.Logger
	server   *asynq.Server
}

func NewProcessor(db *gorm.DB, projects ProjectRepository, runner *BatchRunner, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		db:       db,
		projects: projects,
		runner:   runner,
		logger:   logger.Named("processor"),
	}
}

// Start runs the asynq server in the background.
func (p *Processor) Start(redis config.RedisConfig, concurrency int) error {
	p.server = asynq.NewServer(
		RedisOpt(redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: p.logger.Sugar(),
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateTask, p.HandleGenerateTask)

	p.logger.Info("starting task processor", zap.Int("concurrency", concurrency))
	return p.server.Start(mux)
}

// Shutdown waits for running handlers and stops the server.
func (p *Processor) Shutdown() {
	if p.server != nil {
		p.server.Shutdown()
	}
}

// HandleGenerateTask runs one stored task to completion. Generation failures
// are recorded on the task and its shots; they never cause a retry.
func (p *Processor) HandleGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	task, err := models.GetTaskByID(ctx, p.db, payload.TaskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("task %s not found: %w", payload.TaskID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load task %s: %w", payload.TaskID, err)
	}
	if task.Finished() {
		return nil
	}

	log := p.logger.With(
		zap.String("task_id", task.ID),
		zap.String("project_id", task.ProjectId),
		zap.String("type", task.Type))
	log.Info("processing task")

	if err := task.UpdateStatus(ctx, p.db, models.TaskStatusProcessing, nil, ""); err != nil {
		log.Warn("update status to processing failed", zap.Error(err))
	}

	status, result, errMsg := p.run(ctx, task, log)
	// the handler context may already be done; the final status must still land
	if err := task.UpdateStatus(context.WithoutCancel(ctx), p.db, status, &result, errMsg); err != nil {
		log.Error("update final status failed", zap.Error(err))
	}
	log.Info("task finished",
		zap.String("status", status),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed))
	return nil
}

func (p *Processor) run(ctx context.Context, task *models.Task, log *zap.Logger) (string, models.TaskResult, string) {
	kind := MediaImage
	if task.Type == models.TaskTypeShotVideo {
		kind = MediaVideo
	}
	result := models.TaskResult{Total: len(task.Parameters.ShotIDs), ResourceType: string(kind)}

	switch task.Type {
	case models.TaskTypeBulkImages, models.TaskTypeShotImage, models.TaskTypeShotVideo:
	default:
		return models.TaskStatusFailed, result, "unknown task type: " + task.Type
	}

	project, err := p.projects.LoadProject(ctx, task.ProjectId)
	if err != nil {
		return models.TaskStatusFailed, result, err.Error()
	}

	shots := make([]storyboard.Shot, 0, len(task.Parameters.ShotIDs))
	for _, id := range task.Parameters.ShotIDs {
		shot, ok := project.FindShot(id)
		if !ok {
			// removed by a regenerate since the task was queued
			log.Warn("shot no longer in project", zap.String("shot_id", id))
			result.Failed++
			continue
		}
		shots = append(shots, *shot)
	}
	if len(shots) == 0 {
		return models.TaskStatusFailed, result, "no shots to generate"
	}

	runner := p.runner
	if !task.Parameters.Mirror {
		runner = runner.withoutMirror()
	}
	missing := result.Failed
	final := runner.Run(ctx, task.ProjectId, kind, shots, project.AspectRatio, func(bp BatchProgress) {
		r := result
		r.Completed = bp.Completed
		r.Failed = missing + bp.Failed
		r.ResourceUrl = bp.LastURL
		msg := fmt.Sprintf("%d/%d shots", bp.Done+missing, result.Total)
		if err := task.UpdateProgress(ctx, p.db, progressPercent(bp.Done+missing, result.Total), msg, r); err != nil {
			log.Warn("update progress failed", zap.Error(err))
		}
	})
	result.Completed = final.Completed
	result.Failed = missing + final.Failed
	result.ResourceUrl = final.LastURL

	switch {
	case result.Completed == 0:
		return models.TaskStatusFailed, result, "every shot failed"
	case task.Type != models.TaskTypeBulkImages && result.Failed > 0:
		return models.TaskStatusFailed, result, "shot generation failed"
	}
	return models.TaskStatusSuccess, result, ""
}

// progressPercent stays below 100 until the final status update.
func progressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	pct := done * 100 / total
	if pct >= 100 {
		pct = 99
	}
	return pct
}
