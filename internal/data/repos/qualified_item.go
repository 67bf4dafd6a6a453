package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type QualifiedItemRepo interface {
	Create(dbc dbctx.Context, items []*domain.QualifiedItem) ([]*domain.QualifiedItem, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.QualifiedItem, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit, offset int) ([]*domain.QualifiedItem, error)
}

type qualifiedItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQualifiedItemRepo(db *gorm.DB, baseLog *logger.Logger) QualifiedItemRepo {
	return &qualifiedItemRepo{
		db:  db,
		log: baseLog.With("repo", "QualifiedItemRepo"),
	}
}

func (r *qualifiedItemRepo) Create(dbc dbctx.Context, items []*domain.QualifiedItem) ([]*domain.QualifiedItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*domain.QualifiedItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, mapDBError("create qualified items", err)
	}
	return items, nil
}

func (r *qualifiedItemRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.QualifiedItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.QualifiedItem
	if runID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list qualified items by run", err)
	}
	return out, nil
}

func (r *qualifiedItemRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit, offset int) ([]*domain.QualifiedItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.QualifiedItem
	if projectID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list qualified items", err)
	}
	return out, nil
}
