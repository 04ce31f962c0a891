package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/storyboard"
)

// GetShots lists the shots of a project in document order:
// GET /v1/api/projects/:project_id/shots
func (h *Handler) GetShots(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	shots := project.Shots()
	if shots == nil {
		shots = []storyboard.Shot{}
	}
	c.JSON(http.StatusOK, gin.H{"shots": shots, "total_shots": len(shots)})
}

// GetShotDetail: GET /v1/api/projects/:project_id/shots/:shot_id
func (h *Handler) GetShotDetail(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	shotID := c.Param("shot_id")
	shot, ok := project.FindShot(shotID)
	if !ok {
		h.fail(c, fmt.Errorf("%w: %s", storyboard.ErrShotNotFound, shotID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": shot})
}

// UpdateShot applies edits and rebuilds the shot's prompts:
// PUT /v1/api/projects/:project_id/shots/:shot_id
func (h *Handler) UpdateShot(c *gin.Context) {
	var edits storyboard.ShotEdits
	if err := c.ShouldBindJSON(&edits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shot, err := h.svc.UpdateShot(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"), edits)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": shot})
}

// GenerateShotImage: POST /v1/api/projects/:project_id/shots/:shot_id/image
func (h *Handler) GenerateShotImage(c *gin.Context) {
	task, err := h.svc.RequestShotImage(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "task": task})
}

// GenerateShotVideo needs the shot's image first:
// POST /v1/api/projects/:project_id/shots/:shot_id/video
func (h *Handler) GenerateShotVideo(c *gin.Context) {
	task, err := h.svc.RequestShotVideo(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "task": task})
}
