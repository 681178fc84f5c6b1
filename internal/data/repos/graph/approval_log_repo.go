package graph

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// ApprovalLogRepo is the append-only audit trail for node transitions
// (spec §4.6.4).
type ApprovalLogRepo interface {
	Append(dbc dbctx.Context, entry *domain.ApprovalLog) error
	ListByApplyID(dbc dbctx.Context, applyID string) ([]domain.ApprovalLog, error)
}

type approvalLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalLogRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalLogRepo {
	return &approvalLogRepo{db: db, log: baseLog.With("repo", "ApprovalLogRepo")}
}

func (r *approvalLogRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *approvalLogRepo) Append(dbc dbctx.Context, entry *domain.ApprovalLog) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(entry).Error
}

func (r *approvalLogRepo) ListByApplyID(dbc dbctx.Context, applyID string) ([]domain.ApprovalLog, error) {
	var rows []domain.ApprovalLog
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("apply_id = ?", applyID).Order("start_time ASC").Find(&rows).Error
	return rows, err
}
