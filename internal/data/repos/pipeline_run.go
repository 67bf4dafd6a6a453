package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type PipelineRunRepo interface {
	Create(dbc dbctx.Context, run *domain.PipelineRun) (*domain.PipelineRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error)
	GetLatestByProject(dbc dbctx.Context, projectID uuid.UUID) (*domain.PipelineRun, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineRunRepo"),
	}
}

func (r *pipelineRunRepo) Create(dbc dbctx.Context, run *domain.PipelineRun) (*domain.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, mapDBError("create pipeline run", err)
	}
	return run, nil
}

func (r *pipelineRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var run domain.PipelineRun
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, mapDBError("get pipeline run", err)
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *pipelineRunRepo) GetLatestByProject(dbc dbctx.Context, projectID uuid.UUID) (*domain.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil {
		return nil, nil
	}
	var run domain.PipelineRun
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, mapDBError("get latest pipeline run", err)
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *pipelineRunRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.PipelineRun
	if projectID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 20
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list pipeline runs", err)
	}
	return out, nil
}

func (r *pipelineRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&domain.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return mapDBError("update pipeline run", err)
	}
	return nil
}

func (r *pipelineRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&domain.PipelineRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, mapDBError("update pipeline run", res.Error)
	}
	return res.RowsAffected > 0, nil
}
