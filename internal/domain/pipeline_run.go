package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunStatusLocked    RunStatus = "locked"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun is one qualification attempt for a project. Phase tracks
// the plan phase currently executing; Detail carries the per-phase
// summary written as the run progresses.
type PipelineRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Phase      string         `gorm:"column:phase;index" json:"phase,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Detail     datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;default:now()" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }
