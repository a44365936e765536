package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/pkg/config"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

func newTestClient(serverURL string) *Client {
	return New(config.SolverConfig{BaseURL: serverURL, Timeout: 5 * time.Second}, nil)
}

func TestSolveSuccess(t *testing.T) {
	var captured dto.SolveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/solve", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		entries := []dto.SolutionEntry{
			{
				TemplateID:    "tpl-1",
				RoomID:        "room-1",
				PersonnelIDs:  []string{"p-1"},
				AttendeeLevel: models.AttendeeLevelSection,
				AttendeeID:    "sec-1",
				StartSlot:     18,
				EndSlot:       20,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(entries))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	solution, err := client.Solve(context.Background(), dto.SolveRequest{
		TimeSlots: []int{18, 19},
		Days:      []string{"MONDAY"},
	})
	require.NoError(t, err)
	require.Len(t, solution, 1)
	assert.Equal(t, "tpl-1", solution[0].TemplateID)
	assert.Equal(t, []int{18, 19}, captured.TimeSlots)
}

func TestSolveSurfacesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"no feasible assignment"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSolver.Code, appErr.Code)
	assert.Equal(t, "no feasible assignment", appErr.Message)
}

func TestSolveNonJSONFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, "unexpected error", appErrors.FromError(err).Message)
}

func TestSolveMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSolver.Code, appErrors.FromError(err).Code)
}

func TestSolveTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(config.SolverConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSolver.Code, appErrors.FromError(err).Code)
}
