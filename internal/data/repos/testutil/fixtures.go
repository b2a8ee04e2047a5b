package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/experiments-backend/internal/domain"
)

// ClientID returns a random client id so tests sharing a Postgres database do not collide.
func ClientID() int64 {
	return rand.Int63n(1<<40) + 1
}

func SeedExperiment(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID int64, allocations ...float64) *types.Experiment {
	tb.Helper()
	exp := &types.Experiment{
		ID:       uuid.New(),
		Name:     "experiment",
		ClientID: clientID,
		Status:   types.ExperimentStatusActive,
	}
	if err := tx.WithContext(ctx).Create(exp).Error; err != nil {
		tb.Fatalf("seed experiment: %v", err)
	}
	for i, a := range allocations {
		v := &types.Variant{
			ExperimentID:      exp.ID,
			Name:              fmt.Sprintf("variant-%d", i),
			TrafficAllocation: a,
		}
		if err := tx.WithContext(ctx).Create(v).Error; err != nil {
			tb.Fatalf("seed variant: %v", err)
		}
		exp.Variants = append(exp.Variants, v)
	}
	return exp
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, exp *types.Experiment, variant *types.Variant, userID string, at time.Time) *types.UserAssignment {
	tb.Helper()
	a := &types.UserAssignment{
		ID:           uuid.New(),
		ExperimentID: exp.ID,
		VariantID:    variant.ID,
		UserID:       userID,
		AssignedAt:   at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID int64, userID, eventType string, at time.Time) *types.Event {
	tb.Helper()
	ev := &types.Event{
		ID:         uuid.New(),
		UserID:     userID,
		ClientID:   clientID,
		EventType:  eventType,
		Timestamp:  at.UTC(),
		Properties: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	return ev
}
