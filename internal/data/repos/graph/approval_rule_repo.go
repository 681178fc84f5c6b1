package graph

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// ApprovalRuleRepo persists the per-Application ordered node list, the
// approved-prefix, and the current cursor (spec §4.6.1-4.6.3).
type ApprovalRuleRepo interface {
	GetByApplyID(dbc dbctx.Context, applyID string) (*domain.ApprovalRule, error)
	Insert(dbc dbctx.Context, rule *domain.ApprovalRule) error
	AdvanceCursor(dbc dbctx.Context, applyID string, approvedNodes []int64, nextCursor *int64) error
	// ListByCurrentCursor finds every open Application currently routed
	// through the given organization position — the Query/Projection
	// Service's "my tasks" union branch (b) (spec §4.7).
	ListByCurrentCursor(dbc dbctx.Context, orgPositionID int64) ([]domain.ApprovalRule, error)
}

type approvalRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalRuleRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalRuleRepo {
	return &approvalRuleRepo{db: db, log: baseLog.With("repo", "ApprovalRuleRepo")}
}

func (r *approvalRuleRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *approvalRuleRepo) GetByApplyID(dbc dbctx.Context, applyID string) (*domain.ApprovalRule, error) {
	var row domain.ApprovalRule
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("apply_id = ?", applyID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ApplyID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *approvalRuleRepo) Insert(dbc dbctx.Context, rule *domain.ApprovalRule) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(rule).Error
}

func (r *approvalRuleRepo) ListByCurrentCursor(dbc dbctx.Context, orgPositionID int64) ([]domain.ApprovalRule, error) {
	var rows []domain.ApprovalRule
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("current_cursor = ?", orgPositionID).Find(&rows).Error
	return rows, err
}

// AdvanceCursor writes the new approved-prefix and cursor position in one
// update, matching the way the original engine advances both atomically
// under the Application's row lock.
func (r *approvalRuleRepo) AdvanceCursor(dbc dbctx.Context, applyID string, approvedNodes []int64, nextCursor *int64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.ApprovalRule{}).
		Where("apply_id = ?", applyID).
		Updates(map[string]any{
			"approved_nodes": domain.EncodeIDs(approvedNodes),
			"current_cursor": nextCursor,
		}).Error
}
