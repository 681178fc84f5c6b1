// Package approval implements the Approval Engine (spec §4.6): one
// Application per submission, routed through an immutable ordered node list
// with a growing approved prefix and a cursor, including auto-advance
// through organization positions with no assigned employee.
package approval

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	platformerrors "github.com/yungbote/neurobridge-backend/internal/platform/errors"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/snowflake"
)

const applyTypeTask = "task"

type Engine struct {
	appRepo      graphrepo.ApplicationRepo
	ruleRepo     graphrepo.ApprovalRuleRepo
	logRepo      graphrepo.ApprovalLogRepo
	detailRepo   graphrepo.TaskApplyDetailRepo
	taskExecRepo graphrepo.TaskExecutionRepo
	materializer *materialize.Engine
	dir          directory.Directory
	ids          *snowflake.Generator
	log          *logger.Logger
}

func NewEngine(
	appRepo graphrepo.ApplicationRepo,
	ruleRepo graphrepo.ApprovalRuleRepo,
	logRepo graphrepo.ApprovalLogRepo,
	detailRepo graphrepo.TaskApplyDetailRepo,
	taskExecRepo graphrepo.TaskExecutionRepo,
	materializer *materialize.Engine,
	dir directory.Directory,
	ids *snowflake.Generator,
	baseLog *logger.Logger,
) *Engine {
	return &Engine{
		appRepo:      appRepo,
		ruleRepo:     ruleRepo,
		logRepo:      logRepo,
		detailRepo:   detailRepo,
		taskExecRepo: taskExecRepo,
		materializer: materializer,
		dir:          dir,
		ids:          ids,
		log:          baseLog.With("component", "ApprovalEngine"),
	}
}

// Submit implements the `submit` transition (spec §4.6's state table). When
// the task's approval_type is `none` the caller should not invoke this
// engine at all — it closes the task directly via materialize.Engine.
// CompleteTask — matching the original's submit_task direct-complete branch.
func (e *Engine) Submit(dbc dbctx.Context, taskID int64, submitterJobNumber string, submitText string, attachments []string) (string, error) {
	te, err := e.taskExecRepo.GetByTaskID(dbc, taskID)
	if err != nil {
		return "", err
	}
	if te == nil {
		return "", fmt.Errorf("%w: task %d has no execution", platformerrors.ErrInvalidArgument, taskID)
	}
	if te.Status != domain.TaskStatusInProgress {
		return "", fmt.Errorf("%w: task %d is not in progress", platformerrors.ErrConflict, taskID)
	}
	nodes := domain.DecodeIDs(te.ApprovalNodes)
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: approval_nodes is empty, submit must not route through the approval engine", platformerrors.ErrInvalidArgument)
	}

	applyID, err := e.ids.Generate()
	if err != nil {
		return "", err
	}

	if err := e.appRepo.Insert(dbc, &domain.Application{
		ApplyID:   applyID,
		ApplyType: applyTypeTask,
		Status:    domain.ApplyStatusInApproval,
	}); err != nil {
		return "", err
	}

	cursor := nodes[0]
	if err := e.ruleRepo.Insert(dbc, &domain.ApprovalRule{
		ApplyID:       applyID,
		Nodes:         domain.EncodeIDs(nodes),
		ApprovedNodes: domain.EncodeIDs(nil),
		CurrentCursor: &cursor,
	}); err != nil {
		return "", err
	}

	if err := e.detailRepo.Insert(dbc, &domain.TaskApplyDetail{
		ApplyID:              applyID,
		TaskExecutionID:      te.ID,
		SubmitterText:        submitText,
		SubmitterAttachments: encodeStrings(attachments),
	}); err != nil {
		return "", err
	}

	if err := e.appendLog(dbc, applyID, cursor, submitterJobNumber, domain.ApprovalResultSubmit, "submitted"); err != nil {
		return "", err
	}

	if err := e.taskExecRepo.UpdateStatus(dbc, taskID, domain.TaskStatusSubmitted, nil, nil); err != nil {
		return "", err
	}

	empty, err := e.positionIsEmpty(cursor)
	if err != nil {
		return "", err
	}
	if empty {
		if _, err := e.autoAdvance(dbc, applyID, nodes, nil, cursor); err != nil {
			return "", err
		}
	}
	return applyID, nil
}

// Resubmit implements the `resubmit` transition: resets a rejected task back
// to in-progress so its owner can submit() again. It does not touch the
// rejected Application — that stays in history — matching the original's
// resubmit_task, which only flips todo_task.task_status and leaves the old
// application row alone.
func (e *Engine) Resubmit(dbc dbctx.Context, taskID int64, jobNumber string) error {
	te, err := e.taskExecRepo.GetByTaskID(dbc, taskID)
	if err != nil {
		return err
	}
	if te == nil {
		return fmt.Errorf("%w: task %d has no execution", platformerrors.ErrInvalidArgument, taskID)
	}
	if te.Status != domain.TaskStatusRejected {
		return fmt.Errorf("%w: task %d is not rejected", platformerrors.ErrConflict, taskID)
	}
	if te.JobNumber != jobNumber {
		return fmt.Errorf("%w: only the task owner may resubmit", platformerrors.ErrUnauthorized)
	}
	return e.taskExecRepo.UpdateStatus(dbc, taskID, domain.TaskStatusInProgress, nil, nil)
}

// Approve implements the `approve` transition. The returned bool reports
// whether this call advanced the Application to Completed (spec §6's
// is_completed response field), so callers don't need a separate lookup.
func (e *Engine) Approve(dbc dbctx.Context, applyID string, approverJobNumber string, comment string) (bool, error) {
	app, err := e.appRepo.GetByIDLocked(dbc, applyID)
	if err != nil {
		return false, err
	}
	if app == nil {
		return false, fmt.Errorf("%w: application %s not found", platformerrors.ErrNotFound, applyID)
	}
	rule, err := e.ruleRepo.GetByApplyID(dbc, applyID)
	if err != nil {
		return false, err
	}
	if rule == nil || rule.CurrentCursor == nil {
		return false, fmt.Errorf("%w: application %s has no pending approval node", platformerrors.ErrConflict, applyID)
	}
	if err := e.verifyApprover(approverJobNumber, *rule.CurrentCursor); err != nil {
		return false, err
	}

	nodes := domain.DecodeIDs(rule.Nodes)
	approved := domain.DecodeIDs(rule.ApprovedNodes)
	cursor := *rule.CurrentCursor

	if err := e.appendLog(dbc, applyID, cursor, approverJobNumber, domain.ApprovalResultApprove, comment); err != nil {
		return false, err
	}
	approved = append(approved, cursor)

	return e.advanceOrComplete(dbc, applyID, nodes, approved)
}

// Reject implements the `reject` transition.
func (e *Engine) Reject(dbc dbctx.Context, applyID string, approverJobNumber string, comment string) error {
	if comment == "" {
		return fmt.Errorf("%w: reject requires a non-empty comment", platformerrors.ErrInvalidArgument)
	}
	app, err := e.appRepo.GetByIDLocked(dbc, applyID)
	if err != nil {
		return err
	}
	if app == nil {
		return fmt.Errorf("%w: application %s not found", platformerrors.ErrNotFound, applyID)
	}
	rule, err := e.ruleRepo.GetByApplyID(dbc, applyID)
	if err != nil {
		return err
	}
	if rule == nil || rule.CurrentCursor == nil {
		return fmt.Errorf("%w: application %s has no pending approval node", platformerrors.ErrConflict, applyID)
	}
	if err := e.verifyApprover(approverJobNumber, *rule.CurrentCursor); err != nil {
		return err
	}
	cursor := *rule.CurrentCursor

	if err := e.appendLog(dbc, applyID, cursor, approverJobNumber, domain.ApprovalResultReject, comment); err != nil {
		return err
	}
	if err := e.ruleRepo.AdvanceCursor(dbc, applyID, domain.DecodeIDs(rule.ApprovedNodes), nil); err != nil {
		return err
	}
	if err := e.appRepo.UpdateStatus(dbc, applyID, domain.ApplyStatusRejected); err != nil {
		return err
	}

	detail, err := e.detailRepo.GetByApplyID(dbc, applyID)
	if err != nil {
		return err
	}
	if detail == nil {
		return nil
	}
	te, err := e.taskExecRepo.GetByID(dbc, detail.TaskExecutionID)
	if err != nil {
		return err
	}
	if te == nil {
		return nil
	}
	return e.materializer.RejectTask(dbc, te.TaskID)
}

func (e *Engine) advanceOrComplete(dbc dbctx.Context, applyID string, nodes, approved []int64) (bool, error) {
	nextIndex := len(approved)
	if nextIndex >= len(nodes) {
		if err := e.ruleRepo.AdvanceCursor(dbc, applyID, approved, nil); err != nil {
			return false, err
		}
		if err := e.complete(dbc, applyID); err != nil {
			return false, err
		}
		return true, nil
	}
	next := nodes[nextIndex]
	if err := e.ruleRepo.AdvanceCursor(dbc, applyID, approved, &next); err != nil {
		return false, err
	}
	empty, err := e.positionIsEmpty(next)
	if err != nil {
		return false, err
	}
	if empty {
		return e.autoAdvance(dbc, applyID, nodes, approved, next)
	}
	return false, nil
}

// autoAdvance implements the recursive "auto-advance on empty position"
// behavior: synthesize a system-approved log entry for the empty cursor and
// recurse until a staffed position is reached or the chain completes.
func (e *Engine) autoAdvance(dbc dbctx.Context, applyID string, nodes, approved []int64, cursor int64) (bool, error) {
	if err := e.appendLog(dbc, applyID, cursor, "system", domain.ApprovalResultApprove, "empty post auto-approved"); err != nil {
		return false, err
	}
	approved = append(approved, cursor)
	return e.advanceOrComplete(dbc, applyID, nodes, approved)
}

// complete finalizes the Application and invokes the task-approved callback,
// which — per spec §9's resolved open question — rolls back the whole
// transaction if it fails, matching reject's existing behavior rather than
// the original's log-and-swallow.
func (e *Engine) complete(dbc dbctx.Context, applyID string) error {
	if err := e.appRepo.UpdateStatus(dbc, applyID, domain.ApplyStatusCompleted); err != nil {
		return err
	}
	detail, err := e.detailRepo.GetByApplyID(dbc, applyID)
	if err != nil {
		return err
	}
	if detail == nil {
		return nil
	}
	te, err := e.taskExecRepo.GetByID(dbc, detail.TaskExecutionID)
	if err != nil {
		return err
	}
	if te == nil {
		return nil
	}
	return e.materializer.CompleteTask(dbc, te.TaskID)
}

func (e *Engine) verifyApprover(approverJobNumber string, cursor int64) error {
	emp, ok := e.dir.Employee(approverJobNumber)
	if !ok || emp.OrgPositionID != cursor {
		return fmt.Errorf("%w: %s does not hold organization position %d", platformerrors.ErrUnauthorized, approverJobNumber, cursor)
	}
	return nil
}

func (e *Engine) positionIsEmpty(orgPositionID int64) (bool, error) {
	employees, ok := e.dir.EmployeesAtPosition(orgPositionID)
	if !ok || len(employees) == 0 {
		return true, nil
	}
	return false, nil
}

func (e *Engine) appendLog(dbc dbctx.Context, applyID string, node int64, approver string, result domain.ApprovalResult, comment string) error {
	now := currentTime()
	return e.logRepo.Append(dbc, &domain.ApprovalLog{
		ApplyID:   applyID,
		Node:      node,
		Approver:  approver,
		Result:    result,
		Comment:   comment,
		StartTime: now,
		EndTime:   &now,
	})
}

func currentTime() time.Time {
	return time.Now().UTC()
}

func encodeStrings(vals []string) datatypes.JSON {
	if vals == nil {
		vals = []string{}
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}
