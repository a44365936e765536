package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

// AvailabilityHandler manages availability template endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary List availability templates
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability-templates [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	templates, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get godoc
// @Summary Get availability template with its blocks
// @Tags Availability
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /availability-templates/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	template, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Create godoc
// @Summary Create availability template
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.CreateAvailabilityTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /availability-templates [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req service.CreateAvailabilityTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// ReplaceBlocks godoc
// @Summary Replace a template's availability blocks
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.ReplaceBlocksRequest true "New block set"
// @Success 200 {object} response.Envelope
// @Router /availability-templates/{id}/blocks [put]
func (h *AvailabilityHandler) ReplaceBlocks(c *gin.Context) {
	var req service.ReplaceBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.ReplaceBlocks(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Delete godoc
// @Summary Delete availability template
// @Tags Availability
// @Param id path string true "Template ID"
// @Success 204 "No Content"
// @Router /availability-templates/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
