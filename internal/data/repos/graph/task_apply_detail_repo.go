package graph

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// TaskApplyDetailRepo persists the submitter-attached payload of an
// Application (spec §4.6.1).
type TaskApplyDetailRepo interface {
	Insert(dbc dbctx.Context, detail *domain.TaskApplyDetail) error
	GetByApplyID(dbc dbctx.Context, applyID string) (*domain.TaskApplyDetail, error)
	// ListByTaskExecutionID returns every Application ever opened for a
	// task, newest submission first — the task detail view's history list
	// (spec §4.7).
	ListByTaskExecutionID(dbc dbctx.Context, taskExecutionID int64) ([]domain.TaskApplyDetail, error)
}

type taskApplyDetailRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskApplyDetailRepo(db *gorm.DB, baseLog *logger.Logger) TaskApplyDetailRepo {
	return &taskApplyDetailRepo{db: db, log: baseLog.With("repo", "TaskApplyDetailRepo")}
}

func (r *taskApplyDetailRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *taskApplyDetailRepo) Insert(dbc dbctx.Context, detail *domain.TaskApplyDetail) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(detail).Error
}

func (r *taskApplyDetailRepo) GetByApplyID(dbc dbctx.Context, applyID string) (*domain.TaskApplyDetail, error) {
	var row domain.TaskApplyDetail
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("apply_id = ?", applyID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ApplyID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *taskApplyDetailRepo) ListByTaskExecutionID(dbc dbctx.Context, taskExecutionID int64) ([]domain.TaskApplyDetail, error) {
	var rows []domain.TaskApplyDetail
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("task_execution_id = ?", taskExecutionID).
		Order("submit_time DESC").
		Find(&rows).Error
	return rows, err
}
