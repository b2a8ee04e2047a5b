package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/data/repos"
	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

const maxEventTypeLen = 100

type EventInput struct {
	UserID     string         `json:"user_id"`
	Type       string         `json:"type"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

type EventService interface {
	Record(ctx context.Context, in EventInput) (*types.Event, error)
}

type eventService struct {
	db      *gorm.DB
	log     *logger.Logger
	events  repos.EventRepo
	metrics *observability.Metrics
}

func NewEventService(db *gorm.DB, baseLog *logger.Logger, events repos.EventRepo, metrics *observability.Metrics) EventService {
	return &eventService{
		db:      db,
		log:     baseLog.With("service", "EventService"),
		events:  events,
		metrics: metrics,
	}
}

// Record stores one event for the calling client. Events are not tied to an
// experiment; results correlate them through the user id.
func (s *eventService) Record(ctx context.Context, in EventInput) (*types.Event, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, apierr.Validation("user_id is required")
	}
	if in.Type == "" {
		return nil, apierr.Validation("type is required")
	}
	if len(in.Type) > maxEventTypeLen {
		return nil, apierr.Validation("type must be at most %d characters", maxEventTypeLen)
	}
	ts, err := ParseTimestamp(in.Timestamp)
	if err != nil {
		return nil, apierr.Validation("%s", err.Error())
	}

	props := in.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, apierr.Validation("properties: %s", err.Error())
	}

	ev := &types.Event{
		ID:         uuid.New(),
		UserID:     in.UserID,
		ClientID:   clientID,
		EventType:  in.Type,
		Timestamp:  ts,
		Properties: datatypes.JSON(raw),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.events.Create(dbctx.Context{Ctx: ctx}, ev); err != nil {
		s.log.Error("Failed to record event", "client_id", clientID, "event_type", in.Type, "error", err)
		return nil, fmt.Errorf("record event: %w", err)
	}
	s.metrics.IncEventRecorded(ev.EventType)
	return ev, nil
}
