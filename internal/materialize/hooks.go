package materialize

import (
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
)

// CompleteTask implements §4.5.4: transitions a TaskExecution to status=3,
// checks whether that completes its owning stage, and re-runs the cascade
// so newly-eligible successors materialize in the same transaction. Callers
// (submit-without-approval, the approval engine's task-approved callback)
// must already hold the project's row lock via dbc.Tx.
func (e *Engine) CompleteTask(dbc dbctx.Context, taskID int64) error {
	te, err := e.taskExecRepo.GetByTaskID(dbc, taskID)
	if err != nil {
		return err
	}
	if te == nil {
		return nil
	}
	now := currentTime()
	if err := e.taskExecRepo.UpdateStatus(dbc, taskID, domain.TaskStatusCompleted, nil, &now); err != nil {
		return err
	}
	if te.StageID != nil {
		if err := e.maybeCompleteStage(dbc, *te.StageID); err != nil {
			return err
		}
	}
	return e.Cascade(dbc, te.ProjectID)
}

// RejectTask implements the approval engine's task-rejected callback:
// transitions a TaskExecution to status=4. Rejected tasks never re-enter the
// cascade on their own — resubmission (outside this engine) resets status
// back to 1.
func (e *Engine) RejectTask(dbc dbctx.Context, taskID int64) error {
	te, err := e.taskExecRepo.GetByTaskID(dbc, taskID)
	if err != nil {
		return err
	}
	if te == nil {
		return nil
	}
	return e.taskExecRepo.UpdateStatus(dbc, taskID, domain.TaskStatusRejected, nil, nil)
}

func (e *Engine) maybeCompleteStage(dbc dbctx.Context, stageID int64) error {
	tasks, err := e.taskExecRepo.ListByStageID(dbc, stageID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}
	for _, t := range tasks {
		if t.Status != domain.TaskStatusCompleted {
			return nil
		}
	}
	now := currentTime()
	return e.stageExecRepo.UpdateStatus(dbc, stageID, domain.StageStatusCompleted, &now)
}
