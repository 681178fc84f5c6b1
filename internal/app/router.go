package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/neurobridge-backend/internal/http"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers, mw Middleware) *gin.Engine {
	return apphttp.NewRouter(log, apphttp.RouterConfig{
		RequireIdentity: mw.RequireIdentity,
		Metrics:         mw.Metrics,
		TaskHandler:     handlers.Task,
		TodoHandler:     handlers.Todo,
		HealthHandler:   handlers.Health,
	})
}
