package routers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyboard-server/config"
	"storyboard-server/models"
	"storyboard-server/routers"
	"storyboard-server/routers/api"
	"storyboard-server/service"
	"storyboard-server/storyboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type queued struct{ ids []string }

func (q *queued) EnqueueTask(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

type env struct {
	router *gin.Engine
	db     *gorm.DB
	shots  *service.ProjectShots
	queue  *queued
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	store := models.NewProjectStore(db, zap.NewNop())
	shots := service.NewProjectShots(store)
	q := &queued{}
	svc := service.NewStoryboardService(store, shots, db, q, storyboard.NewAssembler(storyboard.WithSeed(5)), zap.NewNop())
	h := api.NewHandler(svc, zap.NewNop()).WithPollInterval(10 * time.Millisecond)
	return &env{router: routers.InitRouter(h, config.ServerConfig{}, zap.NewNop()), db: db, shots: shots, queue: q}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type createResponse struct {
	ProjectID string              `json:"project_id"`
	Project   models.SavedProject `json:"project"`
	Warnings  []string            `json:"warnings"`
}

func (e *env) create(t *testing.T) createResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/api/storyboards", storyboard.ProjectSpec{
		ProjectTitle:   "Harbour",
		Genre:          "Drama",
		TotalDuration:  60,
		TargetPlatform: "TikTok (9:16)",
		SceneConfigurations: []storyboard.SceneConfig{
			{ID: "one", Title: "Dock", Duration: 30, Pacing: storyboard.PacingMedium},
			{ID: "two", Title: "Sea", Duration: 30, Pacing: storyboard.PacingFast},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateAndFetch(t *testing.T) {
	e := setup(t)
	created := e.create(t)

	assert.Empty(t, created.Warnings)
	assert.Equal(t, "9:16", created.Project.AspectRatio)
	assert.Nil(t, created.Project.Trailer)
	require.Len(t, created.Project.Scenes, 2)

	w := e.do(t, http.MethodGet, "/v1/api/projects/"+created.ProjectID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Project models.SavedProject `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.Project.Scenes[1].Shots[0].Prompts, got.Project.Scenes[1].Shots[0].Prompts)

	w = e.do(t, http.MethodGet, "/v1/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ProjectID)

	w = e.do(t, http.MethodGet, "/v1/api/projects/"+created.ProjectID+"/shots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var shots struct {
		Total int `json:"total_shots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shots))
	assert.Equal(t, created.Project.TotalShots, shots.Total)
}

func TestCreateRejectsBadJSON(t *testing.T) {
	e := setup(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/api/storyboards", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestUnknownProjectIs404(t *testing.T) {
	e := setup(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/api/projects/nope"},
		{http.MethodDelete, "/v1/api/projects/nope"},
		{http.MethodPost, "/v1/api/projects/nope/regenerate"},
		{http.MethodPost, "/v1/api/projects/nope/duplicate"},
		{http.MethodPost, "/v1/api/projects/nope/images"},
		{http.MethodGet, "/v1/api/tasks/nope"},
	} {
		w := e.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestUpdateShot(t *testing.T) {
	e := setup(t)
	created := e.create(t)
	shot := created.Project.Scenes[0].Shots[1]
	path := "/v1/api/projects/" + created.ProjectID + "/shots/" + shot.ID

	w := e.do(t, http.MethodPut, path, map[string]interface{}{"cameraMovement": "Whip Pan"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Shot storyboard.Shot `json:"shot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Whip Pan", resp.Shot.Video.Motion.CameraMovement)
	assert.Equal(t, shot.FullID, resp.Shot.FullID)

	w = e.do(t, http.MethodPut, "/v1/api/projects/"+created.ProjectID+"/shots/missing", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerationRequests(t *testing.T) {
	e := setup(t)
	created := e.create(t)
	shot := created.Project.Scenes[0].Shots[0]
	base := "/v1/api/projects/" + created.ProjectID

	w := e.do(t, http.MethodPost, base+"/shots/"+shot.ID+"/video", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, base+"/images", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	w = e.do(t, http.MethodPost, base+"/shots/"+shot.ID+"/image", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, e.queue.ids, 2)
	assert.Equal(t, resp.TaskID, e.queue.ids[1])

	w = e.do(t, http.MethodGet, "/v1/api/tasks/"+resp.TaskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.TaskStatusPending)
}

func TestDuplicateAndDelete(t *testing.T) {
	e := setup(t)
	created := e.create(t)

	w := e.do(t, http.MethodPost, "/v1/api/projects/"+created.ProjectID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var dup createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dup))
	assert.Equal(t, "Harbour (Copy)", dup.Project.Title())

	w = e.do(t, http.MethodDelete, "/v1/api/projects/"+created.ProjectID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, "/v1/api/projects/"+dup.ProjectID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestImportProjects(t *testing.T) {
	e := setup(t)
	created := e.create(t)
	w := e.do(t, http.MethodGet, "/v1/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Projects []json.RawMessage `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Projects, 1)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/v1/api/projects/"+created.ProjectID, nil).Code)

	export := append(listed.Projects, json.RawMessage(`{"id":"broken","projectType":"storyboard"}`))
	w = e.do(t, http.MethodPost, "/v1/api/projects/import", export)
	require.Equal(t, http.StatusCreated, w.Code)
	var imported struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	assert.Equal(t, 1, imported.Imported)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/v1/api/projects/"+created.ProjectID, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/api/projects/broken", nil).Code)

	w = e.do(t, http.MethodPost, "/v1/api/projects/import", map[string]string{"not": "a list"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":0`)
}

func TestSceneConfigs(t *testing.T) {
	e := setup(t)
	w := e.do(t, http.MethodGet, "/v1/api/scene-configs?duration=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Configs        []storyboard.SceneConfig       `json:"configs"`
		Recommendation storyboard.SceneRecommendation `json:"recommendation"`
		Durations      []int                          `json:"durations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Configs, 3)
	assert.Equal(t, storyboard.DurationOptions, resp.Durations)
	assert.Equal(t, 6, resp.Recommendation.MaxScenes)

	w = e.do(t, http.MethodGet, "/v1/api/scene-configs?duration=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/v1/api/scene-configs/resize", map[string]interface{}{
		"duration": 60,
		"scenes":   2,
		"configs":  resp.Configs,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.Configs[0].ID)
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", nil).Code)
	w := e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaskWebSocketStreamsUntilFinished(t *testing.T) {
	e := setup(t)
	created := e.create(t)
	shot := created.Project.Scenes[0].Shots[0]
	w := e.do(t, http.MethodPost, "/v1/api/projects/"+created.ProjectID+"/shots/"+shot.ID+"/image", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		Task models.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/tasks/"+resp.Task.ID+"/wss", nil)
	require.NoError(t, err)
	defer conn.Close()

	var first models.Task
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.TaskStatusPending, first.Status)

	task := resp.Task
	require.NoError(t, task.UpdateStatus(context.Background(), e.db, models.TaskStatusSuccess, nil, ""))

	var last models.Task
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&last))
	assert.Equal(t, models.TaskStatusSuccess, last.Status)
	assert.Equal(t, 100, last.Progress)
}
