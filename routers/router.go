package routers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"storyboard-server/config"
	"storyboard-server/routers/api"
)

var (
	metricsOnce sync.Once
	ginMetrics  *ginprometheus.Prometheus
)

// the collectors register globally, so every router shares one instance
func requestMetrics() *ginprometheus.Prometheus {
	metricsOnce.Do(func() {
		ginMetrics = ginprometheus.NewPrometheus("gin")
	})
	return ginMetrics
}

func corsConfig(cfg config.ServerConfig) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	} else {
		c.AllowAllOrigins = true
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	c.MaxAge = 12 * time.Hour
	return c
}

func InitRouter(h *api.Handler, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ZapLogger(logger.Named("http")))
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(otelgin.Middleware("storyboard-server"))
	requestMetrics().Use(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1/api")
	{
		v1.POST("/storyboards", h.CreateStoryboard)
		v1.GET("/scene-configs", h.SceneConfigs)
		v1.POST("/scene-configs/resize", h.ResizeSceneConfigs)

		v1.GET("/projects", h.ListProjects)
		v1.POST("/projects/import", h.ImportProjects)
		v1.GET("/projects/:project_id", h.GetProject)
		v1.DELETE("/projects/:project_id", h.DeleteProject)
		v1.POST("/projects/:project_id/regenerate", h.RegenerateProject)
		v1.POST("/projects/:project_id/duplicate", h.DuplicateProject)
		v1.POST("/projects/:project_id/images", h.GenerateImages)

		v1.GET("/projects/:project_id/shots", h.GetShots)
		v1.GET("/projects/:project_id/shots/:shot_id", h.GetShotDetail)
		v1.PUT("/projects/:project_id/shots/:shot_id", h.UpdateShot)
		v1.POST("/projects/:project_id/shots/:shot_id/image", h.GenerateShotImage)
		v1.POST("/projects/:project_id/shots/:shot_id/video", h.GenerateShotVideo)

		v1.GET("/tasks/:task_id", h.GetTaskStatus)
	}
	r.GET("/tasks/:task_id/wss", h.TaskProgressWebSocket)
	return r
}
