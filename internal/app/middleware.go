package app

import (
	"github.com/gin-gonic/gin"

	httpMW "github.com/yungbote/neurobridge-backend/internal/http/middleware"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

type Middleware struct {
	RequireIdentity gin.HandlerFunc
	Metrics         gin.HandlerFunc
}

func wireMiddleware(log *logger.Logger, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		RequireIdentity: httpMW.RequireIdentity(),
		Metrics:         httpMW.Metrics(metrics),
	}
}
