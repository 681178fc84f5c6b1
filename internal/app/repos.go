package app

import (
	"gorm.io/gorm"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// Repos collects every Graph Store repository (spec §4.1/§3): the plan
// tables (Stage/Task), the execution tables (StageExecution/TaskExecution),
// and the Approval Engine's tables (Application/ApprovalRule/ApprovalLog/
// TaskApplyDetail).
type Repos struct {
	Stage            graphrepo.StageRepo
	Task             graphrepo.TaskRepo
	StageExecution   graphrepo.StageExecutionRepo
	TaskExecution    graphrepo.TaskExecutionRepo
	Application      graphrepo.ApplicationRepo
	ApprovalRule     graphrepo.ApprovalRuleRepo
	ApprovalLog      graphrepo.ApprovalLogRepo
	TaskApplyDetail  graphrepo.TaskApplyDetailRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Stage:           graphrepo.NewStageRepo(db, log),
		Task:            graphrepo.NewTaskRepo(db, log),
		StageExecution:  graphrepo.NewStageExecutionRepo(db, log),
		TaskExecution:   graphrepo.NewTaskExecutionRepo(db, log),
		Application:     graphrepo.NewApplicationRepo(db, log),
		ApprovalRule:    graphrepo.NewApprovalRuleRepo(db, log),
		ApprovalLog:     graphrepo.NewApprovalLogRepo(db, log),
		TaskApplyDetail: graphrepo.NewTaskApplyDetailRepo(db, log),
	}
}
