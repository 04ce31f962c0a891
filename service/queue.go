package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"storyboard-server/config"
)

const (
	TypeGenerateTask = "task:generate"
)

type TaskPayload struct {
	TaskID string `json:"task_id"`
}

// TaskEnqueuer hands a stored task to the background processor.
type TaskEnqueuer interface {
	EnqueueTask(ctx context.Context, taskID string) error
}

// Queue enqueues generation tasks on Redis.
type Queue struct {
	client *asynq.Client
	logger *zap.Logger
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewQueue(cfg config.RedisConfig, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		client: asynq.NewClient(RedisOpt(cfg)),
		logger: logger.Named("queue"),
	}
}

// NewGenerateTask builds the asynq task for a stored task id.
func NewGenerateTask(taskID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeGenerateTask, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute), // a full bulk run on a slow worker
		asynq.Retention(24*time.Hour),
	), nil
}

func (q *Queue) EnqueueTask(ctx context.Context, taskID string) error {
	task, err := NewGenerateTask(taskID)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	q.logger.Info("task enqueued", zap.String("task_id", taskID), zap.String("queue_id", info.ID))
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
