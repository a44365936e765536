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

type allocationMock struct {
	runID      string
	importedID string
	imported   []dto.SolutionEntry
	runErr     error
}

func (m *allocationMock) Run(ctx context.Context, instanceID string) (*dto.AllocationResult, error) {
	m.runID = instanceID
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &dto.AllocationResult{
		ScheduleInstanceID: instanceID,
		Status:             models.InstanceStatusCompleted,
		TaskCount:          3,
		EventCount:         3,
	}, nil
}

func (m *allocationMock) BuildSolveRequest(ctx context.Context, instanceID string) (*dto.SolveRequest, error) {
	return &dto.SolveRequest{TimeSlots: []int{16, 17}, Days: []string{"MONDAY"}}, nil
}

func (m *allocationMock) ImportSolution(ctx context.Context, instanceID string, entries []dto.SolutionEntry) (*dto.AllocationResult, error) {
	m.importedID = instanceID
	m.imported = entries
	return &dto.AllocationResult{ScheduleInstanceID: instanceID, Status: models.InstanceStatusCompleted, EventCount: len(entries)}, nil
}

func TestAllocationSolveSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationMock{}
	h := &AllocationHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/schedule-instances/inst-1/solve", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.Solve(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "inst-1", mockSvc.runID)

	var envelope struct {
		Data dto.AllocationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.InstanceStatusCompleted, envelope.Data.Status)
	require.Equal(t, 3, envelope.Data.EventCount)
}

func TestAllocationSolveLocked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationMock{runErr: appErrors.ErrLocked}
	h := &AllocationHandler{service: mockSvc}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/schedule-instances/inst-1/solve", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.Solve(c)

	require.Equal(t, http.StatusLocked, w.Code)
}

func TestAllocationExportRequestSetsAttachmentHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &AllocationHandler{service: &allocationMock{}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/schedule-instances/inst-1/solver-request", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.ExportRequest(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "attachment; filename=solver-request-inst-1.json", w.Header().Get("Content-Disposition"))

	var payload dto.SolveRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, []int{16, 17}, payload.TimeSlots)
}

func TestAllocationImportSolution(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationMock{}
	h := &AllocationHandler{service: mockSvc}

	body := []byte(`[{"templateId":"tpl-1","attendee_id":"sec-1","attendee_level":"SECTION","room_id":"room-1","personnel_ids":["per-1"],"start_slot":16,"end_slot":18}]`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/schedule-instances/inst-1/solution", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.ImportSolution(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "inst-1", mockSvc.importedID)
	require.Len(t, mockSvc.imported, 1)
	require.Equal(t, "tpl-1", mockSvc.imported[0].TemplateID)
}

func TestAllocationImportSolutionMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &AllocationHandler{service: &allocationMock{}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/schedule-instances/inst-1/solution", bytes.NewReader([]byte(`{"not":`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.ImportSolution(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
