package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QualifyStatus string

const (
	QualifyStatusNone      QualifyStatus = "none"
	QualifyStatusRunning   QualifyStatus = "running"
	QualifyStatusQualified QualifyStatus = "qualified"
	QualifyStatusFailed    QualifyStatus = "failed"
)

// Project is the target resource of a qualification run: one movie
// project whose gathered department content gets promoted to qualified.
type Project struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Slug             string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	QualifyStatus    string         `gorm:"column:qualify_status;not null;default:'none';index" json:"qualify_status"`
	QualifiedAt      *time.Time     `gorm:"column:qualified_at" json:"qualified_at,omitempty"`
	LastQualifyError string         `gorm:"column:last_qualify_error" json:"last_qualify_error,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }
