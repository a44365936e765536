package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

// InstanceHandler manages schedule instance endpoints.
type InstanceHandler struct {
	service *service.InstanceService
}

// NewInstanceHandler constructs handler.
func NewInstanceHandler(svc *service.InstanceService) *InstanceHandler {
	return &InstanceHandler{service: svc}
}

// List godoc
// @Summary List schedule instances
// @Tags ScheduleInstances
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	var filter models.InstanceFilter
	filter.Status = models.InstanceStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	instances, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, instances, pagination)
}

// Get godoc
// @Summary Get schedule instance
// @Tags ScheduleInstances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id} [get]
func (h *InstanceHandler) Get(c *gin.Context) {
	instance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instance, nil)
}

// Create godoc
// @Summary Create schedule instance
// @Tags ScheduleInstances
// @Accept json
// @Produce json
// @Param payload body service.CreateInstanceRequest true "Instance payload"
// @Success 201 {object} response.Envelope
// @Router /schedule-instances [post]
func (h *InstanceHandler) Create(c *gin.Context) {
	var req service.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	instance, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instance)
}

// Update godoc
// @Summary Update schedule instance
// @Tags ScheduleInstances
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body service.UpdateInstanceRequest true "Instance payload"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id} [put]
func (h *InstanceHandler) Update(c *gin.Context) {
	var req service.UpdateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	instance, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instance, nil)
}

// Delete godoc
// @Summary Delete schedule instance
// @Tags ScheduleInstances
// @Param id path string true "Instance ID"
// @Success 204
// @Router /schedule-instances/{id} [delete]
func (h *InstanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type setStatusRequest struct {
	Status models.InstanceStatus `json:"status" binding:"required"`
}

// SetStatus godoc
// @Summary Change instance lifecycle status
// @Tags ScheduleInstances
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body setStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/status [put]
func (h *InstanceHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	instance, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instance, nil)
}

// Pool godoc
// @Summary List pooled resources
// @Tags ScheduleInstances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/pool [get]
func (h *InstanceHandler) Pool(c *gin.Context) {
	pool, err := h.service.Pool(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pool, nil)
}

// AssignResource godoc
// @Summary Pool a resource into an instance
// @Tags ScheduleInstances
// @Param id path string true "Instance ID"
// @Param resource path string true "Resource kind (course|section|personnel|room)"
// @Param resourceId path string true "Resource ID"
// @Success 204
// @Router /schedule-instances/{id}/pool/{resource}/{resourceId} [put]
func (h *InstanceHandler) AssignResource(c *gin.Context) {
	if err := h.service.AssignResource(c.Request.Context(), c.Param("id"), c.Param("resource"), c.Param("resourceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnassignResource godoc
// @Summary Remove a resource from an instance pool
// @Tags ScheduleInstances
// @Param id path string true "Instance ID"
// @Param resource path string true "Resource kind (course|section|personnel|room)"
// @Param resourceId path string true "Resource ID"
// @Success 204
// @Router /schedule-instances/{id}/pool/{resource}/{resourceId} [delete]
func (h *InstanceHandler) UnassignResource(c *gin.Context) {
	if err := h.service.UnassignResource(c.Request.Context(), c.Param("id"), c.Param("resource"), c.Param("resourceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
