package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GatherItem is one raw intake row produced by a department's gather
// stage. Content is opaque department output; qualification reads these
// rows as workflow input.
type GatherItem struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Department string         `gorm:"column:department;not null;index" json:"department"`
	Kind       string         `gorm:"column:kind;not null;index" json:"kind"`
	Summary    string         `gorm:"column:summary" json:"summary,omitempty"`
	Content    datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (GatherItem) TableName() string { return "gather_item" }
