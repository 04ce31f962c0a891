package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storyboard-server/models"
	"storyboard-server/storyboard"
)

// ProjectRepository is the persistence the service needs.
type ProjectRepository interface {
	LoadProject(ctx context.Context, id string) (models.SavedProject, error)
	SaveProject(ctx context.Context, p models.SavedProject) error
	ListProjects(ctx context.Context) ([]models.SavedProject, error)
	DeleteProject(ctx context.Context, id string) error
	FindByTitle(ctx context.Context, title string) (models.SavedProject, error)
}

// projectLocks serialises read-modify-write cycles per project id so that a
// generation task and a user edit never overwrite each other's shot changes.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: map[string]*sync.Mutex{}}
}

func (l *projectLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ProjectShots applies single-shot updates against the latest stored copy of
// a project.
type ProjectShots struct {
	repo  ProjectRepository
	locks *projectLocks
	now   func() time.Time
}

func NewProjectShots(repo ProjectRepository) *ProjectShots {
	return &ProjectShots{repo: repo, locks: newProjectLocks(), now: time.Now}
}

// Update loads the project, hands it to fn and saves it when fn succeeds.
func (s *ProjectShots) Update(ctx context.Context, projectID string, fn func(*models.SavedProject) error) (models.SavedProject, error) {
	unlock := s.locks.lock(projectID)
	defer unlock()

	p, err := s.repo.LoadProject(ctx, projectID)
	if err != nil {
		return models.SavedProject{}, err
	}
	if err := fn(&p); err != nil {
		return models.SavedProject{}, err
	}
	p.LastModified = s.now().UTC()
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return models.SavedProject{}, err
	}
	return p, nil
}

func (s *ProjectShots) ApplyShot(ctx context.Context, projectID, shotID string, fn func(*storyboard.Shot)) error {
	_, err := s.Update(ctx, projectID, func(p *models.SavedProject) error {
		shot, ok := p.FindShot(shotID)
		if !ok {
			return fmt.Errorf("%w: %s", storyboard.ErrShotNotFound, shotID)
		}
		fn(shot)
		return nil
	})
	return err
}
