package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

type timetableReader interface {
	ListEvents(ctx context.Context, query dto.TimetableQuery) ([]models.ScheduledEvent, error)
	FreeResources(ctx context.Context, query dto.FreeResourcesQuery) (*dto.FreeResourcesResponse, error)
	ApplyAssignment(ctx context.Context, eventID string, patch dto.AssignmentPatch) (*models.ScheduledEvent, error)
	ExportCSV(ctx context.Context, instanceID string) ([]byte, error)
	ExportPDF(ctx context.Context, instanceID string) ([]byte, error)
}

// TimetableHandler serves committed timetables and manual edits.
type TimetableHandler struct {
	service timetableReader
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// ListEvents godoc
// @Summary List scheduled events
// @Tags Timetable
// @Produce json
// @Param instanceId query string false "Filter by schedule instance"
// @Param day query string false "Filter by day"
// @Param sectionId query string false "Filter by attendee section"
// @Param groupId query string false "Filter by attendee group"
// @Param roomId query string false "Filter by room"
// @Param personnelId query string false "Filter by personnel"
// @Success 200 {object} response.Envelope
// @Router /timetable/events [get]
func (h *TimetableHandler) ListEvents(c *gin.Context) {
	query := dto.TimetableQuery{
		ScheduleInstanceID: c.Query("instanceId"),
		DayOfWeek:          strings.ToUpper(c.Query("day")),
		SectionID:          c.Query("sectionId"),
		GroupID:            c.Query("groupId"),
		RoomID:             c.Query("roomId"),
		PersonnelID:        c.Query("personnelId"),
	}
	events, err := h.service.ListEvents(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// FreeResources godoc
// @Summary List rooms and personnel free in a time window
// @Tags Timetable
// @Produce json
// @Param day query string true "Day of week"
// @Param start query string true "Window start HH:MM"
// @Param end query string true "Window end HH:MM (exclusive)"
// @Success 200 {object} response.Envelope
// @Router /timetable/free-resources [get]
func (h *TimetableHandler) FreeResources(c *gin.Context) {
	query := dto.FreeResourcesQuery{
		DayOfWeek: strings.ToUpper(c.Query("day")),
		StartTime: c.Query("start"),
		EndTime:   c.Query("end"),
	}
	resources, err := h.service.FreeResources(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources, nil)
}

// PatchAssignment godoc
// @Summary Manually adjust an event's room or personnel
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.AssignmentPatch true "Fields to patch; null clears, absent keeps"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/assignment [patch]
func (h *TimetableHandler) PatchAssignment(c *gin.Context) {
	var patch dto.AssignmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}
	event, err := h.service.ApplyAssignment(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// ExportCSV godoc
// @Summary Export an instance timetable as CSV
// @Tags Timetable
// @Produce text/csv
// @Param id path string true "Instance ID"
// @Success 200 {string} string "CSV content"
// @Router /schedule-instances/{id}/timetable.csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	payload, err := h.service.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.csv", c.Param("id")))
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export an instance timetable as a printable PDF
// @Tags Timetable
// @Produce application/pdf
// @Param id path string true "Instance ID"
// @Success 200 {string} string "PDF content"
// @Router /schedule-instances/{id}/timetable.pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	payload, err := h.service.ExportPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", payload)
}
