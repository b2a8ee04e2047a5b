package experiments

import "github.com/google/uuid"

type VariantResult struct {
	VariantID         uint           `json:"variant_id"`
	Name              string         `json:"name"`
	TrafficAllocation float64        `json:"traffic_allocation"`
	UserCount         int            `json:"user_count"`
	EventCount        int            `json:"event_count"`
	EventsByType      map[string]int `json:"events_by_type"`
	ConversionRate    float64        `json:"conversion_rate"`
}

type ResultsSummary struct {
	TotalEvents          int     `json:"total_events"`
	AverageEventsPerUser float64 `json:"average_events_per_user"`
}

type ExperimentResults struct {
	ExperimentID   uuid.UUID       `json:"experiment_id"`
	ExperimentName string          `json:"experiment_name"`
	TotalUsers     int             `json:"total_users"`
	Variants       []VariantResult `json:"variants"`
	Summary        ResultsSummary  `json:"summary"`
}
