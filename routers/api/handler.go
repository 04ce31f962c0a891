package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyboard-server/models"
	"storyboard-server/service"
	"storyboard-server/storyboard"
)

// Handler serves the storyboard API.
type Handler struct {
	svc          *service.StoryboardService
	logger       *zap.Logger
	pollInterval time.Duration
}

func NewHandler(svc *service.StoryboardService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger.Named("api"), pollInterval: time.Second}
}

// WithPollInterval sets how often the task websocket re-reads the task.
func (h *Handler) WithPollInterval(d time.Duration) *Handler {
	h.pollInterval = d
	return h
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrProjectNotFound),
		errors.Is(err, storyboard.ErrShotNotFound),
		errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrImageRequired),
		errors.Is(err, service.ErrNotStoryboard),
		errors.Is(err, service.ErrNoShots):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
