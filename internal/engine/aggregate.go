package engine

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/experiments-backend/internal/domain"
)

// EventFilter narrows which events count toward results. Zero values match everything.
type EventFilter struct {
	EventType string
	Since     *time.Time
	Until     *time.Time
}

func (f EventFilter) Match(ev *types.Event) bool {
	if ev == nil {
		return false
	}
	if f.EventType != "" && ev.EventType != f.EventType {
		return false
	}
	if f.Since != nil && ev.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && ev.Timestamp.After(*f.Until) {
		return false
	}
	return true
}

// Aggregate computes per-variant results for exp from its assignments and the
// candidate events of the assigned users. An event qualifies for a variant when
// its user is assigned to that variant and its timestamp is strictly after the
// assignment. Each physical event (by ID) counts at most once per variant.
func Aggregate(exp *types.Experiment, assignments []*types.UserAssignment, events []*types.Event, filter EventFilter) *types.ExperimentResults {
	res := &types.ExperimentResults{Variants: []types.VariantResult{}}
	if exp == nil {
		return res
	}
	res.ExperimentID = exp.ID
	res.ExperimentName = exp.Name

	// earliest assignment per (variant, user); duplicate rows collapse here
	assignedAt := map[uint]map[string]time.Time{}
	allUsers := map[string]struct{}{}
	for _, a := range assignments {
		if a == nil || a.ExperimentID != exp.ID {
			continue
		}
		allUsers[a.UserID] = struct{}{}
		users := assignedAt[a.VariantID]
		if users == nil {
			users = map[string]time.Time{}
			assignedAt[a.VariantID] = users
		}
		if prev, ok := users[a.UserID]; !ok || a.AssignedAt.Before(prev) {
			users[a.UserID] = a.AssignedAt
		}
	}
	res.TotalUsers = len(allUsers)

	eventsByUser := map[string][]*types.Event{}
	seen := map[uuid.UUID]struct{}{}
	for _, ev := range events {
		if !filter.Match(ev) {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		eventsByUser[ev.UserID] = append(eventsByUser[ev.UserID], ev)
	}

	for _, v := range SortedVariants(exp.Variants) {
		vr := types.VariantResult{
			VariantID:         v.ID,
			Name:              v.Name,
			TrafficAllocation: v.TrafficAllocation,
			EventsByType:      map[string]int{},
		}
		users := assignedAt[v.ID]
		vr.UserCount = len(users)

		counted := map[uuid.UUID]struct{}{}
		converted := 0
		for userID, at := range users {
			userConverted := false
			for _, ev := range eventsByUser[userID] {
				if !ev.Timestamp.After(at) {
					continue
				}
				if _, dup := counted[ev.ID]; dup {
					continue
				}
				counted[ev.ID] = struct{}{}
				vr.EventCount++
				vr.EventsByType[ev.EventType]++
				userConverted = true
			}
			if userConverted {
				converted++
			}
		}
		vr.ConversionRate = ratio(converted, vr.UserCount)

		res.Summary.TotalEvents += vr.EventCount
		res.Variants = append(res.Variants, vr)
	}
	res.Summary.AverageEventsPerUser = ratio(res.Summary.TotalEvents, res.TotalUsers)
	return res
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
