package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/http/response"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/services"
)

type ExperimentHandler struct {
	experiments services.ExperimentService
	assignments services.AssignmentService
	results     services.ResultsService
}

func NewExperimentHandler(experiments services.ExperimentService, assignments services.AssignmentService, results services.ResultsService) *ExperimentHandler {
	return &ExperimentHandler{experiments: experiments, assignments: assignments, results: results}
}

// POST /experiments
func (h *ExperimentHandler) Create(c *gin.Context) {
	var req services.CreateExperimentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Validation("invalid request body: %s", err.Error()))
		return
	}
	exp, err := h.experiments.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, exp)
}

// GET /experiments
func (h *ExperimentHandler) List(c *gin.Context) {
	rows, err := h.experiments.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"experiments": rows})
}

// GET /experiments/:id
func (h *ExperimentHandler) Get(c *gin.Context) {
	exp, err := h.experiments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, exp)
}

// DELETE /experiments/:id
func (h *ExperimentHandler) Delete(c *gin.Context) {
	if err := h.experiments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /experiments/:id/assignment/:user_id
func (h *ExperimentHandler) Assignment(c *gin.Context) {
	a, err := h.assignments.Assign(c.Request.Context(), c.Param("id"), c.Param("user_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, a)
}

// GET /experiments/:id/results?event_type=&start_date=&end_date=
func (h *ExperimentHandler) Results(c *gin.Context) {
	res, err := h.results.Results(c.Request.Context(), c.Param("id"), services.ResultsFilter{
		EventType: c.Query("event_type"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
