package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type DepartmentProfileRepo interface {
	Upsert(dbc dbctx.Context, department string, weight int) (*domain.DepartmentProfile, error)
	GetByDepartment(dbc dbctx.Context, department string) (*domain.DepartmentProfile, error)
	GetAll(dbc dbctx.Context) ([]*domain.DepartmentProfile, error)
}

type departmentProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentProfileRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentProfileRepo {
	return &departmentProfileRepo{
		db:  db,
		log: baseLog.With("repo", "DepartmentProfileRepo"),
	}
}

func (r *departmentProfileRepo) Upsert(dbc dbctx.Context, department string, weight int) (*domain.DepartmentProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if department == "" {
		return nil, nil
	}
	profile := &domain.DepartmentProfile{
		Department: department,
		Weight:     weight,
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "department"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"weight": weight, "updated_at": time.Now()}),
		}).
		Create(profile).Error
	if err != nil {
		return nil, mapDBError("upsert department profile", err)
	}
	return profile, nil
}

func (r *departmentProfileRepo) GetByDepartment(dbc dbctx.Context, department string) (*domain.DepartmentProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if department == "" {
		return nil, nil
	}
	var profile domain.DepartmentProfile
	err := transaction.WithContext(dbc.Ctx).
		Where("department = ?", department).
		Limit(1).
		Find(&profile).Error
	if err != nil {
		return nil, mapDBError("get department profile", err)
	}
	if profile.Department == "" {
		return nil, nil
	}
	return &profile, nil
}

func (r *departmentProfileRepo) GetAll(dbc dbctx.Context) ([]*domain.DepartmentProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DepartmentProfile
	err := transaction.WithContext(dbc.Ctx).
		Order("department ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError("list department profiles", err)
	}
	return out, nil
}
