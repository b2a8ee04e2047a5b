package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/ctxutil"
)

func clientIDFrom(ctx context.Context) (int64, error) {
	cd := ctxutil.GetClientData(ctx)
	if cd == nil || cd.ClientID <= 0 {
		return 0, apierr.Auth("client not authenticated")
	}
	return cd.ClientID, nil
}

// parseExperimentID treats a malformed id as a missing experiment.
func parseExperimentID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.NotFound("Experiment not found")
	}
	return id, nil
}
