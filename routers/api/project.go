package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/storyboard"
)

// ListProjects returns saved projects, newest first: GET /v1/api/projects
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject: GET /v1/api/projects/:project_id
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DeleteProject: DELETE /v1/api/projects/:project_id
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")
	if err := h.svc.Delete(c.Request.Context(), projectID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "deleted": true})
}

// RegenerateProject rebuilds the storyboard, optionally from an edited spec
// sent as the body: POST /v1/api/projects/:project_id/regenerate
func (h *Handler) RegenerateProject(c *gin.Context) {
	var spec *storyboard.ProjectSpec
	if c.Request.ContentLength > 0 {
		spec = &storyboard.ProjectSpec{}
		if err := c.ShouldBindJSON(spec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	project, err := h.svc.Regenerate(c.Request.Context(), c.Param("project_id"), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DuplicateProject: POST /v1/api/projects/:project_id/duplicate
func (h *Handler) DuplicateProject(c *gin.Context) {
	project, err := h.svc.Duplicate(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project_id": project.ID, "project": project})
}

// GenerateImages queues image generation for every shot:
// POST /v1/api/projects/:project_id/images
func (h *Handler) GenerateImages(c *gin.Context) {
	task, err := h.svc.RequestImages(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "task": task})
}

// ImportProjects saves the readable entries of an exported project list:
// POST /v1/api/projects/import
func (h *Handler) ImportProjects(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	projects, err := h.svc.Import(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": len(projects), "projects": projects})
}
