package experiments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event is a client-wide behavioral record. It carries no experiment
// reference; results correlate it through UserID and Timestamp.
type Event struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string         `gorm:"size:255;not null;index:idx_events_client_user,priority:2;column:user_id" json:"user_id"`
	ClientID   int64          `gorm:"not null;index:idx_events_client_user,priority:1;column:client_id" json:"client_id"`
	EventType  string         `gorm:"size:100;not null;index;column:event_type" json:"event_type"`
	Timestamp  time.Time      `gorm:"not null;index;column:occurred_at" json:"timestamp"`
	Properties datatypes.JSON `gorm:"column:properties" json:"properties"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "events" }
