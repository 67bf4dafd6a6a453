package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type GatherItemRepo interface {
	Create(dbc dbctx.Context, items []*domain.GatherItem) ([]*domain.GatherItem, error)
	ListByProjectDepartment(dbc dbctx.Context, projectID uuid.UUID, department string) ([]*domain.GatherItem, error)
	CountByProject(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type gatherItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGatherItemRepo(db *gorm.DB, baseLog *logger.Logger) GatherItemRepo {
	return &gatherItemRepo{
		db:  db,
		log: baseLog.With("repo", "GatherItemRepo"),
	}
}

func (r *gatherItemRepo) Create(dbc dbctx.Context, items []*domain.GatherItem) ([]*domain.GatherItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*domain.GatherItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, mapDBError("create gather items", err)
	}
	return items, nil
}

func (r *gatherItemRepo) ListByProjectDepartment(dbc dbctx.Context, projectID uuid.UUID, department string) ([]*domain.GatherItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.GatherItem
	if projectID == uuid.Nil || department == "" {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND department = ?", projectID, department).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list gather items", err)
	}
	return out, nil
}

func (r *gatherItemRepo) CountByProject(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.GatherItem{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	if err != nil {
		return 0, mapDBError("count gather items", err)
	}
	return count, nil
}
