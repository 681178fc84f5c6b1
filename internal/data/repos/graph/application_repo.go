package graph

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// ApplicationRepo persists Application aggregate roots (spec §4.6).
type ApplicationRepo interface {
	GetByID(dbc dbctx.Context, applyID string) (*domain.Application, error)
	GetByIDLocked(dbc dbctx.Context, applyID string) (*domain.Application, error)
	Insert(dbc dbctx.Context, app *domain.Application) error
	UpdateStatus(dbc dbctx.Context, applyID string, status domain.ApplyStatus) error
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "ApplicationRepo")}
}

func (r *applicationRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *applicationRepo) GetByID(dbc dbctx.Context, applyID string) (*domain.Application, error) {
	var row domain.Application
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("apply_id = ?", applyID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ApplyID == "" {
		return nil, nil
	}
	return &row, nil
}

// GetByIDLocked row-locks the Application for the duration of the caller's
// transaction, serializing concurrent approve/reject calls on it.
func (r *applicationRepo) GetByIDLocked(dbc dbctx.Context, applyID string) (*domain.Application, error) {
	var row domain.Application
	err := forUpdate(r.tx(dbc).WithContext(dbc.Ctx)).
		Where("apply_id = ?", applyID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ApplyID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *applicationRepo) Insert(dbc dbctx.Context, app *domain.Application) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(app).Error
}

func (r *applicationRepo) UpdateStatus(dbc dbctx.Context, applyID string, status domain.ApplyStatus) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Application{}).
		Where("apply_id = ?", applyID).
		Update("apply_status", status).Error
}
