package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/http/response"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/services"
)

type EventHandler struct {
	events services.EventService
}

func NewEventHandler(events services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// POST /events
func (h *EventHandler) Record(c *gin.Context) {
	var req services.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Validation("invalid request body: %s", err.Error()))
		return
	}
	ev, err := h.events.Record(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, ev)
}
