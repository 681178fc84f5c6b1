package query

import (
	"context"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
)

// HistoryTasks implements spec §4.7's "history tasks" view: TaskExecutions
// with status=3 (completed) owned by jobNumber, paginated, with the same
// project/department/status category axes as the "my tasks" view.
func (s *Service) HistoryTasks(ctx context.Context, jobNumber string, pageNum, pageSize int) (*HistoryTasksView, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	cacheKey := redisx.HistoryTasksKey(jobNumber, 0, pageNum, pageSize)
	var cached HistoryTasksView
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	all, err := s.taskExecRepo.ListByJobNumber(dbc, jobNumber)
	if err != nil {
		return nil, err
	}

	completed := make([]domain.TaskExecution, 0, len(all))
	for _, te := range all {
		if te.Status == domain.TaskStatusCompleted {
			completed = append(completed, te)
		}
	}

	allRows := make([]TaskProjection, 0, len(completed))
	for _, te := range completed {
		proj := s.projectFromExecution(dbc, te)
		if detail := s.latestApplyID(dbc, te.ID); detail != "" {
			proj.ApplyID = detail
		}
		allRows = append(allRows, proj)
	}
	categories := buildCategories(allRows)

	total := len(allRows)
	start := (pageNum - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	view := &HistoryTasksView{
		Categories: categories,
		Total:      int64(total),
		PageNum:    pageNum,
		PageSize:   pageSize,
		Rows:       allRows[start:end],
	}
	s.cache.SetJSON(ctx, cacheKey, view, viewCacheTTL)
	return view, nil
}

func (s *Service) latestApplyID(dbc dbctx.Context, taskExecutionID int64) string {
	applies, err := s.detailRepo.ListByTaskExecutionID(dbc, taskExecutionID)
	if err != nil || len(applies) == 0 {
		return ""
	}
	return applies[0].ApplyID
}
