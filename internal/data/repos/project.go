package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, project *domain.Project) (*domain.Project, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error)
	GetBySlug(dbc dbctx.Context, slug string) (*domain.Project, error)
	List(dbc dbctx.Context, limit, offset int) ([]*domain.Project, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{
		db:  db,
		log: baseLog.With("repo", "ProjectRepo"),
	}
}

func (r *projectRepo) Create(dbc dbctx.Context, project *domain.Project) (*domain.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if project == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(project).Error; err != nil {
		return nil, mapDBError("create project", err)
	}
	return project, nil
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var project domain.Project
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&project).Error
	if err != nil {
		return nil, mapDBError("get project", err)
	}
	if project.ID == uuid.Nil {
		return nil, nil
	}
	return &project, nil
}

func (r *projectRepo) GetBySlug(dbc dbctx.Context, slug string) (*domain.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if slug == "" {
		return nil, nil
	}
	var project domain.Project
	err := transaction.WithContext(dbc.Ctx).
		Where("slug = ?", slug).
		Limit(1).
		Find(&project).Error
	if err != nil {
		return nil, mapDBError("get project by slug", err)
	}
	if project.ID == uuid.Nil {
		return nil, nil
	}
	return &project, nil
}

func (r *projectRepo) List(dbc dbctx.Context, limit, offset int) ([]*domain.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Project
	err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list projects", err)
	}
	return out, nil
}

func (r *projectRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return mapDBError("update project", err)
	}
	return nil
}
