package graph

import (
	"time"

	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// StageExecutionRepo persists materialized stage instances (spec §4.5).
type StageExecutionRepo interface {
	GetByStageID(dbc dbctx.Context, stageID int64) (*domain.StageExecution, error)
	Exists(dbc dbctx.Context, stageID int64) (bool, error)
	Insert(dbc dbctx.Context, se *domain.StageExecution) error
	UpdateStatus(dbc dbctx.Context, stageID int64, status domain.StageStatus, completeTime *time.Time) error
	SyncSuccessors(dbc dbctx.Context, stageID int64, successors []int64) error
	ListByProjectID(dbc dbctx.Context, projectID int64) ([]domain.StageExecution, error)
}

type stageExecutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageExecutionRepo(db *gorm.DB, baseLog *logger.Logger) StageExecutionRepo {
	return &stageExecutionRepo{db: db, log: baseLog.With("repo", "StageExecutionRepo")}
}

func (r *stageExecutionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *stageExecutionRepo) GetByStageID(dbc dbctx.Context, stageID int64) (*domain.StageExecution, error) {
	var row domain.StageExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("stage_id = ?", stageID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.StageID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *stageExecutionRepo) Exists(dbc dbctx.Context, stageID int64) (bool, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.StageExecution{}).
		Where("stage_id = ?", stageID).Count(&count).Error
	return count > 0, err
}

func (r *stageExecutionRepo) Insert(dbc dbctx.Context, se *domain.StageExecution) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(se).Error
}

func (r *stageExecutionRepo) UpdateStatus(dbc dbctx.Context, stageID int64, status domain.StageStatus, completeTime *time.Time) error {
	updates := map[string]any{"stage_status": status}
	if completeTime != nil {
		updates["actual_complete_time"] = completeTime
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.StageExecution{}).
		Where("stage_id = ?", stageID).
		Updates(updates).Error
}

// SyncSuccessors live-syncs the successor snapshot when the owning Stage's
// successor edges are augmented post-materialization (spec §4.3 step 5). The
// predecessor snapshot is never re-synced (see DESIGN.md's resolved open
// question).
func (r *stageExecutionRepo) SyncSuccessors(dbc dbctx.Context, stageID int64, successors []int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.StageExecution{}).
		Where("stage_id = ?", stageID).
		Update("successor_stages", domain.EncodeIDs(successors)).Error
}

func (r *stageExecutionRepo) ListByProjectID(dbc dbctx.Context, projectID int64) ([]domain.StageExecution, error) {
	var rows []domain.StageExecution
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("project_id = ?", projectID).Order("stage_id ASC").Find(&rows).Error
	return rows, err
}
