package graph

import (
	"time"

	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// TaskExecutionRepo persists materialized task instances and drives the
// status transitions the approval/materialization engines depend on
// (spec §4.5, §4.6).
type TaskExecutionRepo interface {
	GetByID(dbc dbctx.Context, id int64) (*domain.TaskExecution, error)
	GetByTaskID(dbc dbctx.Context, taskID int64) (*domain.TaskExecution, error)
	Exists(dbc dbctx.Context, taskID int64) (bool, error)
	Insert(dbc dbctx.Context, te *domain.TaskExecution) error
	UpdateStatus(dbc dbctx.Context, taskID int64, status domain.TaskStatus, startTime, completeTime *time.Time) error
	SyncSuccessors(dbc dbctx.Context, taskID int64, successors []int64) error
	ListByProjectID(dbc dbctx.Context, projectID int64) ([]domain.TaskExecution, error)
	ListByStageID(dbc dbctx.Context, stageID int64) ([]domain.TaskExecution, error)
	ListByJobNumber(dbc dbctx.Context, jobNumber string) ([]domain.TaskExecution, error)
}

type taskExecutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskExecutionRepo(db *gorm.DB, baseLog *logger.Logger) TaskExecutionRepo {
	return &taskExecutionRepo{db: db, log: baseLog.With("repo", "TaskExecutionRepo")}
}

func (r *taskExecutionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *taskExecutionRepo) GetByID(dbc dbctx.Context, id int64) (*domain.TaskExecution, error) {
	var row domain.TaskExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *taskExecutionRepo) GetByTaskID(dbc dbctx.Context, taskID int64) (*domain.TaskExecution, error) {
	var row domain.TaskExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("task_id = ?", taskID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *taskExecutionRepo) Exists(dbc dbctx.Context, taskID int64) (bool, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.TaskExecution{}).
		Where("task_id = ?", taskID).Count(&count).Error
	return count > 0, err
}

func (r *taskExecutionRepo) Insert(dbc dbctx.Context, te *domain.TaskExecution) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(te).Error
}

func (r *taskExecutionRepo) UpdateStatus(dbc dbctx.Context, taskID int64, status domain.TaskStatus, startTime, completeTime *time.Time) error {
	updates := map[string]any{"task_status": status}
	if startTime != nil {
		updates["actual_start_time"] = startTime
	}
	if completeTime != nil {
		updates["actual_complete_time"] = completeTime
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.TaskExecution{}).
		Where("task_id = ?", taskID).
		Updates(updates).Error
}

func (r *taskExecutionRepo) SyncSuccessors(dbc dbctx.Context, taskID int64, successors []int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.TaskExecution{}).
		Where("task_id = ?", taskID).
		Update("successor_tasks", domain.EncodeIDs(successors)).Error
}

func (r *taskExecutionRepo) ListByProjectID(dbc dbctx.Context, projectID int64) ([]domain.TaskExecution, error) {
	var rows []domain.TaskExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("project_id = ?", projectID).Order("task_id ASC").Find(&rows).Error
	return rows, err
}

func (r *taskExecutionRepo) ListByStageID(dbc dbctx.Context, stageID int64) ([]domain.TaskExecution, error) {
	var rows []domain.TaskExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("stage_id = ?", stageID).Order("task_id ASC").Find(&rows).Error
	return rows, err
}

func (r *taskExecutionRepo) ListByJobNumber(dbc dbctx.Context, jobNumber string) ([]domain.TaskExecution, error) {
	var rows []domain.TaskExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("job_number = ?", jobNumber).Order("create_time DESC").Find(&rows).Error
	return rows, err
}
