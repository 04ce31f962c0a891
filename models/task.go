package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusSuccess    = "finished"
	TaskStatusFailed     = "failed"

	TaskTypeBulkImages = "generate_images"     // every shot, document order
	TaskTypeShotImage  = "generate_shot_image" // one shot, image
	TaskTypeShotVideo  = "generate_shot_video" // one shot, image to video
)

type Task struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId  string         `gorm:"type:varchar(64);index" json:"projectId"`
	ShotId     string         `gorm:"type:varchar(64)" json:"shotId,omitempty"`
	Type       string         `gorm:"type:varchar(32)" json:"type"`
	Status     string         `gorm:"type:varchar(16)" json:"status"`
	Progress   int            `json:"progress"`
	Message    string         `json:"message"`
	Parameters TaskParameters `gorm:"type:json" json:"parameters"`
	Result     TaskResult     `gorm:"type:json" json:"result"`
	Error      string         `json:"error"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type TaskParameters struct {
	ShotIDs []string `json:"shot_ids,omitempty"`
	Mirror  bool     `json:"mirror,omitempty"` // copy results into object storage
}

// TaskResult counts outcomes and points at the last produced resource.
type TaskResult struct {
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	ResourceType string `json:"resource_type,omitempty"` // image or video
	ResourceUrl  string `json:"resource_url,omitempty"`
}

func (p TaskParameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *TaskParameters) Scan(value interface{}) error {
	return scanJSON(value, p)
}

func (r TaskResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *TaskResult) Scan(value interface{}) error {
	return scanJSON(value, r)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return errors.New(fmt.Sprint("failed to unmarshal JSON value: ", value))
}

func (Task) TableName() string {
	return "task"
}

// Finished reports whether the task reached a terminal status.
func (t *Task) Finished() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusFailed
}

func CreateTask(ctx context.Context, db *gorm.DB, t *Task) error {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return db.WithContext(ctx).Create(t).Error
}

func GetTaskByID(ctx context.Context, db *gorm.DB, taskID string) (*Task, error) {
	var task Task
	if err := db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus moves the task to status. Start and finish times are stamped
// on the transitions into processing and into a terminal status.
func (t *Task) UpdateStatus(ctx context.Context, db *gorm.DB, status string, result *TaskResult, errMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case TaskStatusProcessing:
		updates["started_at"] = now
		t.StartedAt = &now
	case TaskStatusSuccess, TaskStatusFailed:
		updates["finished_at"] = now
		updates["progress"] = 100
		t.FinishedAt = &now
		t.Progress = 100
	}
	if result != nil {
		updates["result"] = *result
		t.Result = *result
	}
	if errMsg != "" {
		updates["error"] = errMsg
		t.Error = errMsg
	}
	t.Status = status
	return db.WithContext(ctx).Model(t).Updates(updates).Error
}

// UpdateProgress records a percentage and a short message.
func (t *Task) UpdateProgress(ctx context.Context, db *gorm.DB, progress int, message string, result TaskResult) error {
	t.Progress = progress
	t.Message = message
	t.Result = result
	return db.WithContext(ctx).Model(t).Updates(map[string]interface{}{
		"progress":   progress,
		"message":    message,
		"result":     result,
		"updated_at": time.Now(),
	}).Error
}
