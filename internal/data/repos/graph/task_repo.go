package graph

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// TaskRepo is the Graph Store's access point for Task plan rows (spec §4.1).
type TaskRepo interface {
	LoadProjectPlanLocked(dbc dbctx.Context, projectID int64) ([]domain.Task, error)
	LoadProjectPlan(dbc dbctx.Context, projectID int64) ([]domain.Task, error)
	// ListAllEnabled returns every live task across every project, for the
	// project-list summary view (spec §6's GET /task/project/list).
	ListAllEnabled(dbc dbctx.Context) ([]domain.Task, error)
	GetByID(dbc dbctx.Context, taskID int64) (*domain.Task, error)
	Insert(dbc dbctx.Context, t *domain.Task) error
	UpdateScalarFields(dbc dbctx.Context, t *domain.Task) error
	UpdateStageID(dbc dbctx.Context, taskID int64, stageID *int64) error
	UpdateEdges(dbc dbctx.Context, taskID int64, predecessors, successors []int64) (bool, error)
	SoftDelete(dbc dbctx.Context, taskID int64) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *taskRepo) LoadProjectPlanLocked(dbc dbctx.Context, projectID int64) ([]domain.Task, error) {
	var rows []domain.Task
	err := forUpdate(r.tx(dbc).WithContext(dbc.Ctx)).
		Unscoped().
		Where("project_id = ?", projectID).
		Order("task_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *taskRepo) LoadProjectPlan(dbc dbctx.Context, projectID int64) ([]domain.Task, error) {
	var rows []domain.Task
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ? AND enable = ?", projectID, true).
		Order("task_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *taskRepo) ListAllEnabled(dbc dbctx.Context) ([]domain.Task, error) {
	var rows []domain.Task
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("enable = ?", true).
		Order("project_id ASC, task_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *taskRepo) GetByID(dbc dbctx.Context, taskID int64) (*domain.Task, error) {
	var row domain.Task
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("task_id = ?", taskID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *taskRepo) Insert(dbc dbctx.Context, t *domain.Task) error {
	t.Enable = true
	return r.tx(dbc).WithContext(dbc.Ctx).Create(t).Error
}

func (r *taskRepo) UpdateScalarFields(dbc dbctx.Context, t *domain.Task) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Task{}).
		Where("task_id = ?", t.ID).
		Updates(map[string]any{
			"name":          t.Name,
			"description":   t.Description,
			"start_date":    t.StartDate,
			"end_date":      t.EndDate,
			"duration":      t.Duration,
			"job_number":    t.JobNumber,
			"approval_type": t.ApprovalType,
			"approval_nodes": t.ApprovalNodes,
			"layout_blob":   t.LayoutBlob,
		}).Error
}

func (r *taskRepo) UpdateStageID(dbc dbctx.Context, taskID int64, stageID *int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Task{}).
		Where("task_id = ?", taskID).
		Update("stage_id", stageID).Error
}

func (r *taskRepo) UpdateEdges(dbc dbctx.Context, taskID int64, predecessors, successors []int64) (bool, error) {
	current, err := r.GetByID(dbc, taskID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}
	if sortedEqual(domain.DecodeIDs(current.PredecessorTasks), predecessors) &&
		sortedEqual(domain.DecodeIDs(current.SuccessorTasks), successors) {
		return false, nil
	}
	err = r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Task{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"predecessor_tasks": domain.EncodeIDs(predecessors),
			"successor_tasks":   domain.EncodeIDs(successors),
		}).Error
	return err == nil, err
}

func (r *taskRepo) SoftDelete(dbc dbctx.Context, taskID int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Task{}).
		Where("task_id = ?", taskID).
		Update("enable", false).Error
}
