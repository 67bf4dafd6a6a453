package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type PipelineEventRepo interface {
	Create(dbc dbctx.Context, events []*domain.PipelineEvent) ([]*domain.PipelineEvent, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineEvent, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.PipelineEvent, error)
}

type pipelineEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineEventRepo(db *gorm.DB, baseLog *logger.Logger) PipelineEventRepo {
	return &pipelineEventRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineEventRepo"),
	}
}

func (r *pipelineEventRepo) Create(dbc dbctx.Context, events []*domain.PipelineEvent) ([]*domain.PipelineEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*domain.PipelineEvent{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&events).Error; err != nil {
		return nil, mapDBError("create pipeline events", err)
	}
	return events, nil
}

func (r *pipelineEventRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.PipelineEvent
	if projectID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list pipeline events", err)
	}
	return out, nil
}

func (r *pipelineEventRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.PipelineEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.PipelineEvent
	if runID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list pipeline events by run", err)
	}
	return out, nil
}
