package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-backend/internal/approval"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
	"github.com/yungbote/neurobridge-backend/internal/projectview"
	"github.com/yungbote/neurobridge-backend/internal/query"
	"github.com/yungbote/neurobridge-backend/internal/reconcile"
	"github.com/yungbote/neurobridge-backend/internal/snowflake"
)

// Engines collects the core's domain components, wired in dependency
// order: Materialization Engine first (spec §4.5, no upstream dependency),
// then the Reconciler and Approval Engine that call into it, then the
// read-only Query/Projection Service and project view.
type Engines struct {
	Materialize *materialize.Engine
	Reconcile   *reconcile.Reconciler
	Approval    *approval.Engine
	Query       *query.Service
	ProjectView *projectview.Service
	Directory   directory.Directory
	IDs         *snowflake.Generator
	Cache       *redisx.Client
}

func wireEngines(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, cache *redisx.Client, dir directory.Directory, metrics *observability.Metrics) (Engines, error) {
	log.Info("Wiring engines...")

	ids, err := snowflake.NewGenerator(cfg.SnowflakeWorkerID, cfg.SnowflakeDCID)
	if err != nil {
		return Engines{}, fmt.Errorf("init snowflake generator: %w", err)
	}

	materializer := materialize.NewEngine(db, repos.Stage, repos.Task, repos.StageExecution, repos.TaskExecution, log).WithMetrics(metrics)
	reconciler := reconcile.NewReconciler(db, repos.Stage, repos.Task, repos.StageExecution, repos.TaskExecution, materializer, log).WithMetrics(metrics)
	approvalEngine := approval.NewEngine(repos.Application, repos.ApprovalRule, repos.ApprovalLog, repos.TaskApplyDetail, repos.TaskExecution, materializer, dir, ids, log)
	queryService := query.NewService(repos.TaskExecution, repos.StageExecution, repos.Stage, repos.Task, repos.Application, repos.ApprovalRule, repos.ApprovalLog, repos.TaskApplyDetail, dir, cache, log)
	projectViewService := projectview.NewService(repos.Stage, repos.Task, repos.StageExecution, repos.TaskExecution)

	return Engines{
		Materialize: materializer,
		Reconcile:   reconciler,
		Approval:    approvalEngine,
		Query:       queryService,
		ProjectView: projectViewService,
		Directory:   dir,
		IDs:         ids,
		Cache:       cache,
	}, nil
}
