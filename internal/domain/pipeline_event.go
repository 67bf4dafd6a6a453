package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PipelineEventKind string

const (
	PipelineEventError     PipelineEventKind = "error"
	PipelineEventPromotion PipelineEventKind = "promotion"
)

// PipelineEvent is an append-only ledger of durable run records: one row
// per aborted run (kind=error) and one per promotion (kind=promotion).
// It survives process restarts and is the audit surface for operators.
type PipelineEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	RunID      *uuid.UUID     `gorm:"type:uuid;column:run_id;index" json:"run_id,omitempty"`
	Kind       string         `gorm:"column:kind;not null;index" json:"kind"`
	Phase      string         `gorm:"column:phase;index" json:"phase,omitempty"`
	Department string         `gorm:"column:department;index" json:"department,omitempty"`
	Message    string         `gorm:"column:message;not null" json:"message"`
	Detail     datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (PipelineEvent) TableName() string { return "pipeline_event" }
