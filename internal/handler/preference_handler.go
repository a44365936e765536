package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

// PreferenceHandler manages personnel preference endpoints.
type PreferenceHandler struct {
	service *service.PreferenceService
}

// NewPreferenceHandler constructs handler.
func NewPreferenceHandler(svc *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: svc}
}

// Upsert godoc
// @Summary Record a personnel preference for an instance
// @Tags Preferences
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Param payload body dto.PreferenceUpsertRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/preferences [put]
func (h *PreferenceHandler) Upsert(c *gin.Context) {
	var req dto.PreferenceUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	preference, err := h.service.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preference, nil)
}

// ListByInstance godoc
// @Summary List recorded preferences for an instance
// @Tags Preferences
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-instances/{id}/preferences [get]
func (h *PreferenceHandler) ListByInstance(c *gin.Context) {
	preferences, err := h.service.ListByInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preferences, nil)
}

// Delete godoc
// @Summary Delete a recorded preference
// @Tags Preferences
// @Param id path string true "Preference ID"
// @Success 204 "No Content"
// @Router /preferences/{id} [delete]
func (h *PreferenceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
