package experiments

import (
	"time"

	"github.com/google/uuid"
)

// UserAssignment pins one user to one variant of one experiment.
// (experiment_id, user_id) is unique; VariantID is a plain reference.
type UserAssignment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExperimentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_assignments_experiment_user,priority:1;column:experiment_id" json:"experiment_id"`
	UserID       string    `gorm:"size:255;not null;uniqueIndex:idx_user_assignments_experiment_user,priority:2;column:user_id" json:"user_id"`
	VariantID    uint      `gorm:"not null;index;column:variant_id" json:"variant_id"`
	AssignedAt   time.Time `gorm:"not null;column:assigned_at" json:"assigned_at"`
	CreatedAt    time.Time `gorm:"not null" json:"-"`
	UpdatedAt    time.Time `gorm:"not null" json:"-"`
}

func (UserAssignment) TableName() string { return "user_assignments" }
