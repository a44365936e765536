package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/service"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/response"
)

// PersonnelHandler manages staff master endpoints.
type PersonnelHandler struct {
	service *service.PersonnelService
}

// NewPersonnelHandler constructs handler.
func NewPersonnelHandler(svc *service.PersonnelService) *PersonnelHandler {
	return &PersonnelHandler{service: svc}
}

// List godoc
// @Summary List personnel
// @Tags Personnel
// @Produce json
// @Param role query string false "Filter by role"
// @Param search query string false "Search name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /personnel [get]
func (h *PersonnelHandler) List(c *gin.Context) {
	var filter models.PersonnelFilter
	filter.Role = c.Query("role")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	people, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, people, pagination)
}

// Get godoc
// @Summary Get a staff member
// @Tags Personnel
// @Produce json
// @Param id path string true "Personnel ID"
// @Success 200 {object} response.Envelope
// @Router /personnel/{id} [get]
func (h *PersonnelHandler) Get(c *gin.Context) {
	person, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Create godoc
// @Summary Create a staff member
// @Tags Personnel
// @Accept json
// @Produce json
// @Param payload body service.CreatePersonnelRequest true "Personnel payload"
// @Success 201 {object} response.Envelope
// @Router /personnel [post]
func (h *PersonnelHandler) Create(c *gin.Context) {
	var req service.CreatePersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// Update godoc
// @Summary Update a staff member
// @Tags Personnel
// @Accept json
// @Produce json
// @Param id path string true "Personnel ID"
// @Param payload body service.UpdatePersonnelRequest true "Personnel payload"
// @Success 200 {object} response.Envelope
// @Router /personnel/{id} [put]
func (h *PersonnelHandler) Update(c *gin.Context) {
	var req service.UpdatePersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Delete godoc
// @Summary Delete a staff member
// @Tags Personnel
// @Param id path string true "Personnel ID"
// @Success 204 "No Content"
// @Router /personnel/{id} [delete]
func (h *PersonnelHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
