package experiments

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

// userIDChunk bounds the IN list size per query.
const userIDChunk = 500

type EventQuery struct {
	ClientID  int64
	UserIDs   []string
	EventType string
	Since     *time.Time
	Until     *time.Time
}

type EventRepo interface {
	Create(dbc dbctx.Context, event *types.Event) (*types.Event, error)
	ListForUsers(dbc dbctx.Context, q EventQuery) ([]*types.Event, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Create(dbc dbctx.Context, event *types.Event) (*types.Event, error) {
	if event == nil {
		return nil, errors.New("event required")
	}
	if err := dbc.Conn(r.db).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// ListForUsers returns the client's events for the given users, optionally
// narrowed by type and an inclusive timestamp window.
func (r *eventRepo) ListForUsers(dbc dbctx.Context, q EventQuery) ([]*types.Event, error) {
	var results []*types.Event
	for start := 0; start < len(q.UserIDs); start += userIDChunk {
		end := start + userIDChunk
		if end > len(q.UserIDs) {
			end = len(q.UserIDs)
		}
		query := dbc.Conn(r.db).
			Where("client_id = ? AND user_id IN ?", q.ClientID, q.UserIDs[start:end])
		if q.EventType != "" {
			query = query.Where("event_type = ?", q.EventType)
		}
		if q.Since != nil {
			query = query.Where("occurred_at >= ?", q.Since.UTC())
		}
		if q.Until != nil {
			query = query.Where("occurred_at <= ?", q.Until.UTC())
		}
		var chunk []*types.Event
		if err := query.Order("occurred_at ASC").Find(&chunk).Error; err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}
