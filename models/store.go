package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrMalformedProject = errors.New("malformed project record")
)

// ProjectRecord is one saved project. The whole SavedProject is kept in
// Payload; Title and ProjectType are copied out for lookups.
type ProjectRecord struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)"`
	Title       string         `gorm:"type:varchar(255);index"`
	ProjectType string         `gorm:"type:varchar(32)"`
	Payload     datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProjectRecord) TableName() string {
	return "project"
}

// ProjectStore keeps saved projects in the relational database.
type ProjectStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProjectStore(db *gorm.DB, logger *zap.Logger) *ProjectStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectStore{db: db, logger: logger.Named("project_store")}
}

func decodeRecord(rec ProjectRecord) (SavedProject, error) {
	var p SavedProject
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return SavedProject{}, fmt.Errorf("%w: %s: %v", ErrMalformedProject, rec.ID, err)
	}
	if !p.Valid() || p.ID != rec.ID {
		return SavedProject{}, fmt.Errorf("%w: %s", ErrMalformedProject, rec.ID)
	}
	return p, nil
}

// LoadProject returns the project with the given id.
func (s *ProjectStore) LoadProject(ctx context.Context, id string) (SavedProject, error) {
	var rec ProjectRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SavedProject{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return SavedProject{}, err
	}
	return decodeRecord(rec)
}

// SaveProject inserts or replaces the project.
func (s *ProjectStore) SaveProject(ctx context.Context, p SavedProject) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrMalformedProject, p.ID)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	rec := ProjectRecord{
		ID:          p.ID,
		Title:       p.Title(),
		ProjectType: string(p.ProjectType),
		Payload:     datatypes.JSON(payload),
	}
	var existing ProjectRecord
	err = s.db.WithContext(ctx).Select("created_at").First(&existing, "id = ?", p.ID).Error
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// ListProjects returns every readable project, newest first. Rows that fail
// validation are skipped.
func (s *ProjectStore) ListProjects(ctx context.Context) ([]SavedProject, error) {
	var recs []ProjectRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]SavedProject, 0, len(recs))
	for _, rec := range recs {
		p, err := decodeRecord(rec)
		if err != nil {
			s.logger.Warn("skipping unreadable project", zap.String("project_id", rec.ID), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	SortByLastModified(out)
	return out, nil
}

// DeleteProject removes the project.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&ProjectRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}

// FindByTitle returns the storyboard project saved under title.
func (s *ProjectStore) FindByTitle(ctx context.Context, title string) (SavedProject, error) {
	var rec ProjectRecord
	err := s.db.WithContext(ctx).
		Where("title = ? AND project_type = ?", title, string(ProjectTypeStoryboard)).
		Order("updated_at desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SavedProject{}, fmt.Errorf("%w: title %q", ErrProjectNotFound, title)
	}
	if err != nil {
		return SavedProject{}, err
	}
	return decodeRecord(rec)
}
