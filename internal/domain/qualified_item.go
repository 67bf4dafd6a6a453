package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QualifiedItem is a gather row promoted by a department workflow during
// a qualification run. CrossRefs holds ids of other qualified items this
// one references; the knowledge-base sync turns them into edges.
type QualifiedItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	RunID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	Department   string         `gorm:"column:department;not null;index" json:"department"`
	Phase        string         `gorm:"column:phase;not null;index" json:"phase"`
	SourceItemID *uuid.UUID     `gorm:"type:uuid;column:source_item_id;index" json:"source_item_id,omitempty"`
	Content      datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	CrossRefs    datatypes.JSON `gorm:"column:cross_refs;type:jsonb" json:"cross_refs,omitempty"`
	Score        float64        `gorm:"column:score;not null;default:0" json:"score"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (QualifiedItem) TableName() string { return "qualified_item" }
