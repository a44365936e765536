package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type timetableMock struct {
	listQuery   dto.TimetableQuery
	freeQuery   dto.FreeResourcesQuery
	patchedID   string
	patched     dto.AssignmentPatch
	applyErr    error
	csvInstance string
}

func (m *timetableMock) ListEvents(ctx context.Context, query dto.TimetableQuery) ([]models.ScheduledEvent, error) {
	m.listQuery = query
	return []models.ScheduledEvent{{ID: "evt-1", DayOfWeek: "MONDAY"}}, nil
}

func (m *timetableMock) FreeResources(ctx context.Context, query dto.FreeResourcesQuery) (*dto.FreeResourcesResponse, error) {
	m.freeQuery = query
	return &dto.FreeResourcesResponse{Rooms: []models.Room{{ID: "room-2"}}, Personnel: []models.Personnel{}}, nil
}

func (m *timetableMock) ApplyAssignment(ctx context.Context, eventID string, patch dto.AssignmentPatch) (*models.ScheduledEvent, error) {
	m.patchedID = eventID
	m.patched = patch
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	return &models.ScheduledEvent{ID: eventID}, nil
}

func (m *timetableMock) ExportCSV(ctx context.Context, instanceID string) ([]byte, error) {
	m.csvInstance = instanceID
	return []byte("day,start_time,end_time\n"), nil
}

func (m *timetableMock) ExportPDF(ctx context.Context, instanceID string) ([]byte, error) {
	return []byte("%PDF-1.3"), nil
}

func TestTimetableListEventsPassesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableMock{}
	h := &TimetableHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/timetable/events?instanceId=inst-1&day=monday&roomId=room-1", nil)

	h.ListEvents(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "inst-1", mockSvc.listQuery.ScheduleInstanceID)
	require.Equal(t, "MONDAY", mockSvc.listQuery.DayOfWeek)
	require.Equal(t, "room-1", mockSvc.listQuery.RoomID)
}

func TestTimetableFreeResources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableMock{}
	h := &TimetableHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/timetable/free-resources?day=tuesday&start=09:00&end=10:30", nil)

	h.FreeResources(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, dto.FreeResourcesQuery{DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "10:30"}, mockSvc.freeQuery)

	var envelope struct {
		Data dto.FreeResourcesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Rooms, 1)
	require.Equal(t, "room-2", envelope.Data.Rooms[0].ID)
}

func TestTimetablePatchAssignmentNullClearsRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableMock{}
	h := &TimetableHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/events/evt-1/assignment", bytes.NewReader([]byte(`{"roomId": null}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}

	h.PatchAssignment(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "evt-1", mockSvc.patchedID)
	require.True(t, mockSvc.patched.RoomID.Present)
	require.Nil(t, mockSvc.patched.RoomID.Value)
	require.False(t, mockSvc.patched.PersonnelIDs.Present)
}

func TestTimetablePatchAssignmentLocked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableMock{applyErr: appErrors.ErrLocked}
	h := &TimetableHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/events/evt-1/assignment", bytes.NewReader([]byte(`{"roomId": "room-2"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}

	h.PatchAssignment(c)

	require.Equal(t, http.StatusLocked, w.Code)
}

func TestTimetableExportCSVSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableMock{}
	h := &TimetableHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/schedule-instances/inst-1/timetable.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "inst-1", mockSvc.csvInstance)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename=timetable-inst-1.csv", w.Header().Get("Content-Disposition"))
}

func TestTimetableExportPDFContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{service: &timetableMock{}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/schedule-instances/inst-1/timetable.pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.ExportPDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}
