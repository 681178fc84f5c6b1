package query

import (
	"context"
	"time"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
)

// myTaskStatuses are the TaskExecution statuses branch (a) of the "my
// tasks" union includes: pending-submit, in-approval, rejected. Completed
// (3) belongs to the history view instead.
var myTaskStatuses = map[domain.TaskStatus]bool{
	domain.TaskStatusInProgress: true,
	domain.TaskStatusSubmitted:  true,
	domain.TaskStatusRejected:   true,
}

// MyTasks implements spec §4.7's "my tasks" view: the union of (a)
// TaskExecutions owned by jobNumber in an open/actionable status and (b)
// TaskExecutions with an open Application currently routed through
// orgPosition, categorized by project/department/status.
func (s *Service) MyTasks(ctx context.Context, jobNumber string, orgPosition int64) (*MyTasksView, error) {
	cacheKey := redisx.MyTasksKey(jobNumber, orgPosition, 0)
	var cached MyTasksView
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	dbc := dbctx.Context{Ctx: ctx}

	owned, err := s.taskExecRepo.ListByJobNumber(dbc, jobNumber)
	if err != nil {
		return nil, err
	}

	byTaskID := map[int64]domain.TaskExecution{}
	for _, te := range owned {
		if myTaskStatuses[te.Status] {
			byTaskID[te.TaskID] = te
		}
	}

	if orgPosition != 0 {
		rules, err := s.ruleRepo.ListByCurrentCursor(dbc, orgPosition)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			detail, err := s.detailRepo.GetByApplyID(dbc, rule.ApplyID)
			if err != nil || detail == nil {
				continue
			}
			te, err := s.taskExecRepo.GetByID(dbc, detail.TaskExecutionID)
			if err != nil || te == nil {
				continue
			}
			byTaskID[te.TaskID] = *te
		}
	}

	rows := make([]TaskProjection, 0, len(byTaskID))
	for _, te := range byTaskID {
		proj := s.projectFromExecution(dbc, te)
		if te.Status == domain.TaskStatusRejected {
			proj.RejectTime = s.latestRejectTime(dbc, te.ID)
		}
		rows = append(rows, proj)
	}

	view := &MyTasksView{
		Categories: buildCategories(rows),
		Rows:       rows,
	}
	s.cache.SetJSON(ctx, cacheKey, view, viewCacheTTL)
	return view, nil
}

// latestRejectTime finds the reject log's end time from the most recent
// Application opened for a task execution.
func (s *Service) latestRejectTime(dbc dbctx.Context, taskExecutionID int64) *time.Time {
	applies, err := s.detailRepo.ListByTaskExecutionID(dbc, taskExecutionID)
	if err != nil || len(applies) == 0 {
		return nil
	}
	logs, err := s.logRepo.ListByApplyID(dbc, applies[0].ApplyID)
	if err != nil {
		return nil
	}
	for _, l := range logs {
		if l.Result == domain.ApprovalResultReject {
			return l.EndTime
		}
	}
	return nil
}
