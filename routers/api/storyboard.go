package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyboard-server/storyboard"
)

// CreateStoryboard assembles and saves a storyboard: POST /v1/api/storyboards
func (h *Handler) CreateStoryboard(c *gin.Context) {
	var spec storyboard.ProjectSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Create(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"project_id": res.Project.ID,
		"project":    res.Project,
		"warnings":   res.Warnings,
	})
}

// SceneConfigs suggests a scene plan: GET /v1/api/scene-configs?duration=N&scenes=M
// Without scenes the recommended count for the duration is used.
func (h *Handler) SceneConfigs(c *gin.Context) {
	duration, err := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if err != nil || duration <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a positive number of seconds"})
		return
	}
	scenes, err := strconv.Atoi(c.DefaultQuery("scenes", "0"))
	if err != nil || scenes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scenes must be a non-negative number"})
		return
	}
	resp := gin.H{
		"configs":   storyboard.RecommendSceneConfigs(duration, scenes),
		"durations": storyboard.DurationOptions,
	}
	if rec, ok := storyboard.RecommendScenes(duration); ok {
		resp["recommendation"] = rec
	}
	c.JSON(http.StatusOK, resp)
}

// ResizeSceneConfigs changes the scene count of an existing plan:
// POST /v1/api/scene-configs/resize
func (h *Handler) ResizeSceneConfigs(c *gin.Context) {
	var req struct {
		Duration int                      `json:"duration"`
		Scenes   int                      `json:"scenes" binding:"required,min=1"`
		Configs  []storyboard.SceneConfig `json:"configs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": storyboard.ResizeSceneConfigs(req.Duration, req.Configs, req.Scenes)})
}
