package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/neurobridge-backend/internal/http/handlers"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

type Handlers struct {
	Task   *httpH.TaskHandler
	Todo   *httpH.TodoHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, repos Repos, engines Engines) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Task:   httpH.NewTaskHandler(log, engines.Reconcile, engines.ProjectView),
		Todo:   httpH.NewTodoHandler(log, db, repos.Task, repos.TaskExecution, engines.Approval, engines.Materialize, engines.Query, engines.Cache),
		Health: httpH.NewHealthHandler(),
	}
}
