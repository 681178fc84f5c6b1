package graph

import (
	"sort"

	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// StageRepo is the Graph Store's access point for Stage plan rows
// (spec §4.1). No other component issues SQL against proj_stage directly.
type StageRepo interface {
	// LoadProjectPlanLocked returns every stage (live and soft-deleted) for
	// the project, row-locked within the caller's transaction.
	LoadProjectPlanLocked(dbc dbctx.Context, projectID int64) ([]domain.Stage, error)
	// LoadProjectPlan returns only live (enable=true) stages, unlocked.
	LoadProjectPlan(dbc dbctx.Context, projectID int64) ([]domain.Stage, error)
	// ListAllEnabled returns every live stage across every project, for the
	// project-list summary view (spec §6's GET /task/project/list).
	ListAllEnabled(dbc dbctx.Context) ([]domain.Stage, error)
	GetByID(dbc dbctx.Context, stageID int64) (*domain.Stage, error)
	Insert(dbc dbctx.Context, s *domain.Stage) error
	UpdateScalarFields(dbc dbctx.Context, s *domain.Stage) error
	UpdateEdges(dbc dbctx.Context, stageID int64, predecessors, successors []int64) (bool, error)
	SoftDelete(dbc dbctx.Context, stageID int64) error
}

type stageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRepo(db *gorm.DB, baseLog *logger.Logger) StageRepo {
	return &stageRepo{db: db, log: baseLog.With("repo", "StageRepo")}
}

func (r *stageRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *stageRepo) LoadProjectPlanLocked(dbc dbctx.Context, projectID int64) ([]domain.Stage, error) {
	var rows []domain.Stage
	err := forUpdate(r.tx(dbc).WithContext(dbc.Ctx)).
		Unscoped().
		Where("project_id = ?", projectID).
		Order("stage_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *stageRepo) LoadProjectPlan(dbc dbctx.Context, projectID int64) ([]domain.Stage, error) {
	var rows []domain.Stage
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ? AND enable = ?", projectID, true).
		Order("stage_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *stageRepo) ListAllEnabled(dbc dbctx.Context) ([]domain.Stage, error) {
	var rows []domain.Stage
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("enable = ?", true).
		Order("project_id ASC, stage_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *stageRepo) GetByID(dbc dbctx.Context, stageID int64) (*domain.Stage, error) {
	var row domain.Stage
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("stage_id = ?", stageID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *stageRepo) Insert(dbc dbctx.Context, s *domain.Stage) error {
	s.Enable = true
	return r.tx(dbc).WithContext(dbc.Ctx).Create(s).Error
}

func (r *stageRepo) UpdateScalarFields(dbc dbctx.Context, s *domain.Stage) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Stage{}).
		Where("stage_id = ?", s.ID).
		Updates(map[string]any{
			"name":          s.Name,
			"start_date":    s.StartDate,
			"end_date":      s.EndDate,
			"duration_days": s.DurationDays,
			"layout_blob":   s.LayoutBlob,
		}).Error
}

// UpdateEdges rewrites predecessor/successor lists only if they differ
// (sorted-compare) from what is stored, returning whether a write happened.
func (r *stageRepo) UpdateEdges(dbc dbctx.Context, stageID int64, predecessors, successors []int64) (bool, error) {
	current, err := r.GetByID(dbc, stageID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}
	if sortedEqual(domain.DecodeIDs(current.PredecessorStages), predecessors) &&
		sortedEqual(domain.DecodeIDs(current.SuccessorStages), successors) {
		return false, nil
	}
	err = r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Stage{}).
		Where("stage_id = ?", stageID).
		Updates(map[string]any{
			"predecessor_stages": domain.EncodeIDs(predecessors),
			"successor_stages":   domain.EncodeIDs(successors),
		}).Error
	return err == nil, err
}

func (r *stageRepo) SoftDelete(dbc dbctx.Context, stageID int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Stage{}).
		Where("stage_id = ?", stageID).
		Update("enable", false).Error
}

func sortedEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]int64{}, a...)
	bc := append([]int64{}, b...)
	sort.Slice(ac, func(i, j int) bool { return ac[i] < ac[j] })
	sort.Slice(bc, func(i, j int) bool { return bc[i] < bc[j] })
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}
