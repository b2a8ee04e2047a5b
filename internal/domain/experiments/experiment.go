package experiments

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive = "active"
)

type Experiment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;column:name" json:"name"`
	Description *string   `gorm:"size:255;column:description" json:"description"`
	ClientID    int64     `gorm:"not null;index;column:client_id" json:"client_id"`
	Status      string    `gorm:"size:50;not null;column:status" json:"status"`

	Variants    []*Variant        `gorm:"foreignKey:ExperimentID;references:ID;constraint:OnDelete:CASCADE" json:"variants"`
	Assignments []*UserAssignment `gorm:"foreignKey:ExperimentID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Experiment) TableName() string { return "experiments" }

type Variant struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExperimentID      uuid.UUID `gorm:"type:uuid;not null;index;column:experiment_id" json:"-"`
	Name              string    `gorm:"size:255;not null;column:name" json:"name"`
	TrafficAllocation float64   `gorm:"not null;column:traffic_allocation" json:"traffic_allocation"`
	CreatedAt         time.Time `gorm:"not null" json:"-"`
	UpdatedAt         time.Time `gorm:"not null" json:"-"`
}

func (Variant) TableName() string { return "variants" }
