package projectview

import (
	"context"
	"fmt"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/validator"
)

// Service answers the plan-side project summary and detail views by
// re-deriving validation status from the persisted plan, the same way
// task_service.py's project-list endpoint re-runs TaskDao's validation
// statistics query rather than caching a stored status column.
type Service struct {
	stageRepo     graphrepo.StageRepo
	taskRepo      graphrepo.TaskRepo
	stageExecRepo graphrepo.StageExecutionRepo
	taskExecRepo  graphrepo.TaskExecutionRepo
}

func NewService(
	stageRepo graphrepo.StageRepo,
	taskRepo graphrepo.TaskRepo,
	stageExecRepo graphrepo.StageExecutionRepo,
	taskExecRepo graphrepo.TaskExecutionRepo,
) *Service {
	return &Service{
		stageRepo:     stageRepo,
		taskRepo:      taskRepo,
		stageExecRepo: stageExecRepo,
		taskExecRepo:  taskExecRepo,
	}
}

// List implements GET /task/project/list.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	dbc := dbctx.Context{Ctx: ctx}

	stages, err := s.stageRepo.ListAllEnabled(dbc)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.ListAllEnabled(dbc)
	if err != nil {
		return nil, err
	}

	stagesByProject := map[int64][]domain.Stage{}
	for _, st := range stages {
		stagesByProject[st.ProjectID] = append(stagesByProject[st.ProjectID], st)
	}
	tasksByProject := map[int64][]domain.Task{}
	for _, t := range tasks {
		tasksByProject[t.ProjectID] = append(tasksByProject[t.ProjectID], t)
	}

	projectIDs := map[int64]bool{}
	for id := range stagesByProject {
		projectIDs[id] = true
	}
	for id := range tasksByProject {
		projectIDs[id] = true
	}

	out := make([]Summary, 0, len(projectIDs))
	for projectID := range projectIDs {
		projStages := stagesByProject[projectID]
		projTasks := tasksByProject[projectID]

		generated := false
		for _, t := range projTasks {
			ok, err := s.taskExecRepo.Exists(dbc, t.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				generated = true
				break
			}
		}

		sum := Summary{
			ProjectID:      projectID,
			ProjectName:    fmt.Sprintf("Project %d", projectID),
			StageCount:     len(projStages),
			TaskCount:      len(projTasks),
			TasksGenerated: generated,
		}

		if len(projStages) == 0 && len(projTasks) == 0 {
			sum.ProjectStatus = StatusUnconfigured
			out = append(out, sum)
			continue
		}

		payload := toPayload(projectID, projStages, projTasks)
		result, vErr := validator.Validate(payload)

		for _, t := range projTasks {
			if taskMissingInfo(t) {
				sum.MissingInfoCount++
			}
			if t.StageID == nil {
				sum.UnassignedStageCount++
			}
		}
		if vErr != nil {
			sum.TimeRelationErrorCount++
		} else {
			sum.TimeRelationErrorCount += len(result.Warnings)
		}

		if vErr != nil || sum.MissingInfoCount > 0 || sum.TimeRelationErrorCount > 0 {
			sum.ProjectStatus = StatusAbnormal
		} else {
			sum.ProjectStatus = StatusNormal
		}
		out = append(out, sum)
	}
	return out, nil
}

// Detail implements GET /task/project/{id}: the full plan with per-entity
// isEditable computed from task_generation_util.py's rule — a stage/task is
// editable for as long as it has not been generated into an execution row.
func (s *Service) Detail(ctx context.Context, projectID int64) (*Detail, error) {
	dbc := dbctx.Context{Ctx: ctx}

	stages, err := s.stageRepo.LoadProjectPlan(dbc, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.LoadProjectPlan(dbc, projectID)
	if err != nil {
		return nil, err
	}

	out := &Detail{ProjectID: projectID}
	for _, st := range stages {
		generated, err := s.stageExecRepo.Exists(dbc, st.ID)
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, StageView{
			ID:                st.ID,
			Name:              st.Name,
			StartTime:         st.StartDate,
			EndTime:           st.EndDate,
			Duration:          st.DurationDays,
			PredecessorStages: domain.DecodeIDs(st.PredecessorStages),
			SuccessorStages:   domain.DecodeIDs(st.SuccessorStages),
			IsEditable:        !generated,
		})
	}
	for _, t := range tasks {
		generated, err := s.taskExecRepo.Exists(dbc, t.ID)
		if err != nil {
			return nil, err
		}
		if generated {
			out.TasksGenerated = true
		}
		out.Tasks = append(out.Tasks, TaskView{
			ID:               t.ID,
			Name:             t.Name,
			Description:      t.Description,
			StartTime:        t.StartDate,
			EndTime:          t.EndDate,
			Duration:         t.Duration,
			JobNumber:        t.JobNumber,
			StageID:          t.StageID,
			PredecessorTasks: domain.DecodeIDs(t.PredecessorTasks),
			SuccessorTasks:   domain.DecodeIDs(t.SuccessorTasks),
			ApprovalType:     string(t.ApprovalType),
			ApprovalNodes:    domain.DecodeIDs(t.ApprovalNodes),
			IsEditable:       !generated,
		})
	}
	return out, nil
}

func taskMissingInfo(t domain.Task) bool {
	if t.JobNumber == "" || t.StartDate == nil || t.EndDate == nil {
		return true
	}
	if t.ApprovalType != domain.ApprovalTypeNone && len(domain.DecodeIDs(t.ApprovalNodes)) == 0 {
		return true
	}
	return false
}

func toPayload(projectID int64, stages []domain.Stage, tasks []domain.Task) validator.TaskConfigPayload {
	payload := validator.TaskConfigPayload{ProjectID: projectID}
	for _, st := range stages {
		sp := validator.StagePayload{
			ID:                st.ID,
			Name:              st.Name,
			Duration:          st.DurationDays,
			PredecessorStages: domain.DecodeIDs(st.PredecessorStages),
			SuccessorStages:   domain.DecodeIDs(st.SuccessorStages),
			ProjectID:         projectID,
		}
		if st.StartDate != nil {
			v := st.StartDate.Format("2006-01-02")
			sp.StartTime = &v
		}
		if st.EndDate != nil {
			v := st.EndDate.Format("2006-01-02")
			sp.EndTime = &v
		}
		payload.Stages = append(payload.Stages, sp)
	}
	for _, t := range tasks {
		tp := validator.TaskPayload{
			ID:               t.ID,
			Name:             t.Name,
			Description:      t.Description,
			Duration:         t.Duration,
			JobNumber:        t.JobNumber,
			StageID:          t.StageID,
			PredecessorTasks: domain.DecodeIDs(t.PredecessorTasks),
			SuccessorTasks:   domain.DecodeIDs(t.SuccessorTasks),
			ProjectID:        projectID,
			ApprovalType:     validator.ApprovalType(t.ApprovalType),
			ApprovalNodes:    domain.DecodeIDs(t.ApprovalNodes),
		}
		if t.StartDate != nil {
			v := t.StartDate.Format("2006-01-02")
			tp.StartTime = &v
		}
		if t.EndDate != nil {
			v := t.EndDate.Format("2006-01-02")
			tp.EndTime = &v
		}
		payload.Tasks = append(payload.Tasks, tp)
	}
	return payload
}
