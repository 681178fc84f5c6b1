package query

import (
	"context"
	"sort"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	platformerrors "github.com/yungbote/neurobridge-backend/internal/platform/errors"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
)

// TaskDetail implements spec §4.7's "task detail" view: a single task's
// plan+execution merged projection, every Application ever opened for it
// with per-node status, and predecessor/successor tasks enriched into full
// projections (including the "not-generated" pseudo-status).
func (s *Service) TaskDetail(ctx context.Context, taskID int64, viewerJobNumber string) (*TaskDetailView, error) {
	dbc := dbctx.Context{Ctx: ctx}

	task, err := s.taskRepo.GetByID(dbc, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, platformerrors.ErrNotFound
	}

	te, err := s.taskExecRepo.GetByTaskID(dbc, taskID)
	if err != nil {
		return nil, err
	}

	var projection TaskProjection
	var predIDs, succIDs, nodeIDs []int64
	if te != nil {
		projection = s.projectFromExecution(dbc, *te)
		predIDs = domain.DecodeIDs(te.PredecessorTasks)
		succIDs = domain.DecodeIDs(te.SuccessorTasks)
		nodeIDs = domain.DecodeIDs(te.ApprovalNodes)
	} else {
		projection = s.projectFromPlan(dbc, *task)
		predIDs = domain.DecodeIDs(task.PredecessorTasks)
		succIDs = domain.DecodeIDs(task.SuccessorTasks)
		nodeIDs = domain.DecodeIDs(task.ApprovalNodes)
	}

	view := &TaskDetailView{
		Task:             projection,
		PredecessorTasks: s.projectRelated(dbc, predIDs),
		SuccessorTasks:   s.projectRelated(dbc, succIDs),
	}

	if te != nil {
		applies, err := s.detailRepo.ListByTaskExecutionID(dbc, te.ID)
		if err != nil {
			return nil, err
		}
		var currentRule *domain.ApprovalRule
		for _, detail := range applies {
			rule, err := s.ruleRepo.GetByApplyID(dbc, detail.ApplyID)
			if err != nil || rule == nil {
				continue
			}
			logs, err := s.logRepo.ListByApplyID(dbc, detail.ApplyID)
			if err != nil {
				return nil, err
			}
			app, err := s.appRepo.GetByID(dbc, detail.ApplyID)
			if err != nil || app == nil {
				continue
			}
			appView := ApplicationView{
				ApplyID:    detail.ApplyID,
				Status:     int(app.Status),
				Nodes:      s.buildNodeViews(nodeIDs, *rule, logs),
				SubmitText: detail.SubmitterText,
				SubmitTime: &detail.SubmitTime,
			}
			if rule.CurrentCursor != nil && currentRule == nil {
				view.CurrentApplication = &appView
				currentRule = rule
			} else {
				view.History = append(view.History, appView)
			}
		}

		view.CanSubmit = te.Status == domain.TaskStatusInProgress && te.JobNumber == viewerJobNumber
		view.CanResubmit = te.Status == domain.TaskStatusRejected && te.JobNumber == viewerJobNumber
		if te.Status == domain.TaskStatusSubmitted && currentRule != nil && currentRule.CurrentCursor != nil {
			if emp, ok := s.dir.Employee(viewerJobNumber); ok && emp.OrgPositionID == *currentRule.CurrentCursor {
				view.CanApprove = true
			}
		}
	}

	return view, nil
}

// projectRelated resolves a list of plan task IDs into full projections,
// preferring the materialized TaskExecution and falling back to the plan
// Task (status "not-generated") when no execution exists yet.
func (s *Service) projectRelated(dbc dbctx.Context, ids []int64) []TaskProjection {
	out := make([]TaskProjection, 0, len(ids))
	for _, id := range ids {
		if te, err := s.taskExecRepo.GetByTaskID(dbc, id); err == nil && te != nil {
			out = append(out, s.projectFromExecution(dbc, *te))
			continue
		}
		if t, err := s.taskRepo.GetByID(dbc, id); err == nil && t != nil {
			out = append(out, s.projectFromPlan(dbc, *t))
		}
	}
	return out
}

// buildNodeViews joins an Application's immutable ordered node list against
// its ApprovalRule.approved_nodes/current_cursor and ApprovalLogs to compute
// each node's status, mirroring todo_query_service.py's node loop.
func (s *Service) buildNodeViews(nodeIDs []int64, rule domain.ApprovalRule, logs []domain.ApprovalLog) []ApprovalNodeView {
	approved := map[int64]bool{}
	for _, n := range domain.DecodeIDs(rule.ApprovedNodes) {
		approved[n] = true
	}
	logsByNode := map[int64][]domain.ApprovalLog{}
	for _, l := range logs {
		logsByNode[l.Node] = append(logsByNode[l.Node], l)
	}

	views := make([]ApprovalNodeView, 0, len(nodeIDs))
	for i, node := range nodeIDs {
		var rejectLog, approveLog *domain.ApprovalLog
		nodeLogs := logsByNode[node]
		sort.Slice(nodeLogs, func(a, b int) bool { return nodeLogs[a].StartTime.Before(nodeLogs[b].StartTime) })
		for idx := range nodeLogs {
			l := nodeLogs[idx]
			switch l.Result {
			case domain.ApprovalResultReject:
				if rejectLog == nil {
					rejectLog = &l
				}
			case domain.ApprovalResultApprove:
				if approveLog == nil {
					approveLog = &l
				}
			}
		}

		v := ApprovalNodeView{NodeIndex: i + 1, OrgPositionID: node}
		switch {
		case approved[node] && rejectLog != nil:
			v.Status = "rejected"
			v.Approver = rejectLog.Approver
			v.ApprovalTime = rejectLog.EndTime
			v.Comment = rejectLog.Comment
		case approved[node] && approveLog != nil:
			v.Status = "approved"
			v.Approver = approveLog.Approver
			v.ApprovalTime = approveLog.EndTime
			v.Comment = approveLog.Comment
		case approved[node]:
			v.Status = "approved"
		case rule.CurrentCursor != nil && *rule.CurrentCursor == node:
			v.Status = "approving"
		default:
			v.Status = "pending"
		}
		if v.Approver != "" {
			if emp, ok := s.dir.Employee(v.Approver); ok {
				v.ApproverName = emp.Name
			}
		}
		views = append(views, v)
	}
	return views
}
