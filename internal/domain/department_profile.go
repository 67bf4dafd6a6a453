package domain

import (
	"time"

	"github.com/google/uuid"
)

// DepartmentProfile stores the operator-tunable scheduling weight for one
// production department. Departments without a row run at the default
// weight.
type DepartmentProfile struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Department string    `gorm:"column:department;not null;uniqueIndex" json:"department"`
	Weight     int       `gorm:"column:weight;not null;default:5" json:"weight"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DepartmentProfile) TableName() string { return "department_profile" }
