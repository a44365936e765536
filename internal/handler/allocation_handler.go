package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

type allocationRunner interface {
	Run(ctx context.Context, instanceID string) (*dto.AllocationResult, error)
	BuildSolveRequest(ctx context.Context, instanceID string) (*dto.SolveRequest, error)
	ImportSolution(ctx context.Context, instanceID string, entries []dto.SolutionEntry) (*dto.AllocationResult, error)
}

// AllocationHandler exposes the solve lifecycle: run, export payload, import
// solution.
type AllocationHandler struct {
	service allocationRunner
}

// NewAllocationHandler constructs handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Solve godoc
// @Summary Run the solver for an instance
// @Tags Allocation
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/solve [post]
func (h *AllocationHandler) Solve(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportRequest godoc
// @Summary Download the solver payload for offline solving
// @Tags Allocation
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} dto.SolveRequest
// @Router /schedule-instances/{id}/solver-request [get]
func (h *AllocationHandler) ExportRequest(c *gin.Context) {
	payload, err := h.service.BuildSolveRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=solver-request-%s.json", c.Param("id")))
	c.JSON(http.StatusOK, payload)
}

// ImportSolution godoc
// @Summary Commit an externally produced solution
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body []dto.SolutionEntry true "Solution entries"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/solution [post]
func (h *AllocationHandler) ImportSolution(c *gin.Context) {
	var entries []dto.SolutionEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solution payload"))
		return
	}
	result, err := h.service.ImportSolution(c.Request.Context(), c.Param("id"), entries)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
