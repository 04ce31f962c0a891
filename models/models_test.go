package models_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storyboard-server/models"
	"storyboard-server/storyboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func sampleProject(id, title string, at time.Time) models.SavedProject {
	preview := storyboard.NewAssembler(storyboard.WithSeed(3)).Assemble(storyboard.ProjectSpec{
		ProjectTitle:  title,
		TotalDuration: 30,
		Characters:    []storyboard.CharacterDef{{Name: "Rin", Description: "A courier."}},
	}, nil, nil)
	return models.NewStoryboardProject(id, preview, at)
}

func TestProjectStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := models.NewProjectStore(openTestDB(t), nil)
	p := sampleProject("storyboard-1", "Night Shift", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	p.Scenes[0].Shots[0].ImageURL = "https://cdn.example/a.png"
	p.Scenes[0].Shots[0].ImageStatus = storyboard.StatusGenerated

	require.NoError(t, store.SaveProject(ctx, p))
	got, err := store.LoadProject(ctx, "storyboard-1")
	require.NoError(t, err)

	assert.Equal(t, "Night Shift", got.Title())
	assert.Equal(t, p.LastModified, got.LastModified)
	require.NotEmpty(t, got.Scenes)
	assert.Equal(t, "https://cdn.example/a.png", got.Scenes[0].Shots[0].ImageURL)
	assert.Equal(t, storyboard.StatusGenerated, got.Scenes[0].Shots[0].ImageStatus)

	preview, ok := got.Preview()
	require.True(t, ok)
	assert.Equal(t, p.TotalShots, preview.TotalShots)
}

func TestProjectStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := models.NewProjectStore(openTestDB(t), nil)
	p := sampleProject("storyboard-1", "Draft", time.Now())
	require.NoError(t, store.SaveProject(ctx, p))

	p.FormData.ProjectTitle = "Final"
	require.NoError(t, store.SaveProject(ctx, p))

	all, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Final", all[0].Title())

	found, err := store.FindByTitle(ctx, "Final")
	require.NoError(t, err)
	assert.Equal(t, "storyboard-1", found.ID)

	_, err = store.FindByTitle(ctx, "Draft")
	assert.True(t, errors.Is(err, models.ErrProjectNotFound))
}

func TestProjectStore_ListSkipsMalformedAndSorts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := models.NewProjectStore(db, nil)

	older := sampleProject("storyboard-old", "Old", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleProject("storyboard-new", "New", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveProject(ctx, older))
	require.NoError(t, store.SaveProject(ctx, newer))
	require.NoError(t, db.Create(&models.ProjectRecord{
		ID:      "broken",
		Payload: []byte(`{"id":"broken","projectType":"storyboard"}`),
	}).Error)

	all, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "storyboard-new", all[0].ID)
	assert.Equal(t, "storyboard-old", all[1].ID)

	_, err = store.LoadProject(ctx, "broken")
	assert.True(t, errors.Is(err, models.ErrMalformedProject))
}

func TestProjectStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := models.NewProjectStore(openTestDB(t), nil)
	require.NoError(t, store.SaveProject(ctx, sampleProject("storyboard-1", "Gone", time.Now())))

	require.NoError(t, store.DeleteProject(ctx, "storyboard-1"))
	_, err := store.LoadProject(ctx, "storyboard-1")
	assert.True(t, errors.Is(err, models.ErrProjectNotFound))
	assert.True(t, errors.Is(store.DeleteProject(ctx, "storyboard-1"), models.ErrProjectNotFound))
}

func TestProjectStore_RejectsInvalid(t *testing.T) {
	store := models.NewProjectStore(openTestDB(t), nil)
	err := store.SaveProject(context.Background(), models.SavedProject{ID: "x", ProjectType: models.ProjectTypeStoryboard})
	assert.True(t, errors.Is(err, models.ErrMalformedProject))
}

func TestParseProjectList(t *testing.T) {
	raw := []byte(`[
		{"id":"a","lastModified":"2026-01-02T00:00:00Z","projectType":"storyboard","formData":{"projectTitle":"A"}},
		{"id":"b","lastModified":"2026-02-02T00:00:00Z","projectType":"storylineIdea","storylineIdeaData":{"genre":"Drama","visualStyle":"Anime","result":{"title":"B"}}},
		{"id":"c","lastModified":"2026-03-02T00:00:00Z","projectType":"storyboard"},
		{"id":"d","lastModified":"not a date","projectType":"storyboard","formData":{}},
		{"lastModified":"2026-03-02T00:00:00Z","projectType":"storyboard","formData":{}},
		42
	]`)
	got := models.ParseProjectList(raw)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "B", got[0].Title())
	assert.Equal(t, "a", got[1].ID)

	assert.Empty(t, models.ParseProjectList([]byte(`{"id":"a"}`)))
	assert.Empty(t, models.ParseProjectList([]byte(`garbage`)))
	assert.NotNil(t, models.ParseProjectList(nil))
}

func TestSavedProject_Duplicate(t *testing.T) {
	now := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	p := sampleProject("storyboard-1", "Harbor", now.Add(-time.Hour))

	dup, err := p.Duplicate("storyboard-2", now)
	require.NoError(t, err)
	assert.Equal(t, "storyboard-2", dup.ID)
	assert.Equal(t, now, dup.LastModified)
	assert.Equal(t, "Harbor (Copy)", dup.Title())
	assert.Equal(t, "Harbor", p.Title())

	again, err := dup.Duplicate("storyboard-3", now)
	require.NoError(t, err)
	assert.Equal(t, "Harbor (Copy)", again.Title())
}

func TestTask_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	task := &models.Task{
		ID:         "task-1",
		ProjectId:  "storyboard-1",
		Type:       models.TaskTypeBulkImages,
		Parameters: models.TaskParameters{ShotIDs: []string{"shot-a", "shot-b"}},
	}
	require.NoError(t, models.CreateTask(ctx, db, task))
	assert.Equal(t, models.TaskStatusPending, task.Status)

	require.NoError(t, task.UpdateStatus(ctx, db, models.TaskStatusProcessing, nil, ""))
	require.NoError(t, task.UpdateProgress(ctx, db, 50, "1/2", models.TaskResult{Total: 2, Completed: 1}))
	require.NoError(t, task.UpdateStatus(ctx, db, models.TaskStatusSuccess, &models.TaskResult{Total: 2, Completed: 2}, ""))

	got, err := models.GetTaskByID(ctx, db, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSuccess, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, []string{"shot-a", "shot-b"}, got.Parameters.ShotIDs)
	assert.Equal(t, 2, got.Result.Completed)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
	assert.True(t, got.Finished())
}
