package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/neurobridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-backend/internal/http/middleware"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// RouterConfig wires spec §6's full HTTP surface: task-configuration routes
// and todo/approval routes, both gated by header-based identity in place of
// the teacher's JWT auth.
type RouterConfig struct {
	RequireIdentity gin.HandlerFunc
	Metrics         gin.HandlerFunc

	TaskHandler   *httpH.TaskHandler
	TodoHandler   *httpH.TodoHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(log *logger.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(log))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics)
	}
	r.GET("/metrics", func(c *gin.Context) {
		m := observability.Current()
		if m == nil {
			c.Status(http.StatusNotFound)
			return
		}
		m.WriteHTTP(c.Writer, c.Request)
	})

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.RequireIdentity != nil {
		api.Use(cfg.RequireIdentity)
	}

	if cfg.TaskHandler != nil {
		api.POST("/task/save", cfg.TaskHandler.Save)
		api.POST("/task/save-and-generate", cfg.TaskHandler.SaveAndGenerate)
		api.GET("/task/project/list", cfg.TaskHandler.ListProjects)
		api.GET("/task/project/:id", cfg.TaskHandler.GetProject)
	}

	if cfg.TodoHandler != nil {
		api.POST("/todo/submit/:task_id", cfg.TodoHandler.Submit)
		api.POST("/todo/approve/:apply_id", cfg.TodoHandler.Approve)
		api.POST("/todo/reject/:apply_id", cfg.TodoHandler.Reject)
		api.POST("/todo/resubmit/:task_id", cfg.TodoHandler.Resubmit)
		api.GET("/todo/my/tasks/list", cfg.TodoHandler.MyTasks)
		api.GET("/todo/history/tasks/list", cfg.TodoHandler.HistoryTasks)
		api.GET("/todo/task/:id/detail", cfg.TodoHandler.TaskDetail)
	}

	return r
}
