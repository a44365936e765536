package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type timetableEventRepoStub struct {
	events  []models.ScheduledEvent
	updated *models.ScheduledEvent
}

func (m *timetableEventRepoStub) List(ctx context.Context, filter models.EventFilter) ([]models.ScheduledEvent, error) {
	return m.events, nil
}

func (m *timetableEventRepoStub) ListByDay(ctx context.Context, dayOfWeek string) ([]models.ScheduledEvent, error) {
	out := make([]models.ScheduledEvent, 0, len(m.events))
	for _, event := range m.events {
		if event.DayOfWeek == dayOfWeek {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *timetableEventRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error) {
	for i := range m.events {
		if m.events[i].ID == id {
			cp := m.events[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *timetableEventRepoStub) UpdateAssignment(ctx context.Context, event *models.ScheduledEvent) error {
	m.updated = event
	return nil
}

type timetableInstanceReaderStub struct {
	status models.InstanceStatus
}

func (m *timetableInstanceReaderStub) FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error) {
	return &models.ScheduleInstance{ID: id, Status: m.status}, nil
}

type timetableRoomReaderStub struct{ rooms []models.Room }

func (m *timetableRoomReaderStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return m.rooms, nil
}

func (m *timetableRoomReaderStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	for _, room := range m.rooms {
		if room.ID == id {
			cp := room
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type timetablePersonnelReaderStub struct{ people []models.Personnel }

func (m *timetablePersonnelReaderStub) ListAll(ctx context.Context) ([]models.Personnel, error) {
	return m.people, nil
}

func (m *timetablePersonnelReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Personnel, error) {
	out := make([]models.Personnel, 0, len(ids))
	for _, id := range ids {
		for _, person := range m.people {
			if person.ID == id {
				out = append(out, person)
			}
		}
	}
	return out, nil
}

func newTimetableFixture(events []models.ScheduledEvent, status models.InstanceStatus) (*TimetableService, *timetableEventRepoStub) {
	repo := &timetableEventRepoStub{events: events}
	service := NewTimetableService(
		repo,
		&timetableInstanceReaderStub{status: status},
		&timetableRoomReaderStub{rooms: []models.Room{{ID: "room-1"}, {ID: "room-2"}}},
		&timetablePersonnelReaderStub{people: []models.Personnel{{ID: "per-1"}, {ID: "per-2"}}},
		nil, nil, validator.New(), zap.NewNop(),
	)
	return service, repo
}

func mondayEvent() models.ScheduledEvent {
	roomID := "room-1"
	sectionID := "sec-1"
	return models.ScheduledEvent{
		ID:                 "evt-1",
		ScheduleInstanceID: "inst-1",
		ActivityTemplateID: "tpl-1",
		DayOfWeek:          "MONDAY",
		StartTime:          "09:00",
		EndTime:            "11:00",
		RoomID:             &roomID,
		PersonnelIDs:       []string{"per-1"},
		AttendeeSectionID:  &sectionID,
	}
}

func TestFreeResourcesExcludesOverlapping(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	resp, err := service.FreeResources(context.Background(), dto.FreeResourcesQuery{
		DayOfWeek: "MONDAY", StartTime: "10:30", EndTime: "11:30",
	})
	require.NoError(t, err)

	roomIDs := make([]string, 0)
	for _, room := range resp.Rooms {
		roomIDs = append(roomIDs, room.ID)
	}
	assert.Equal(t, []string{"room-2"}, roomIDs)

	personnelIDs := make([]string, 0)
	for _, person := range resp.Personnel {
		personnelIDs = append(personnelIDs, person.ID)
	}
	assert.Equal(t, []string{"per-2"}, personnelIDs)
}

func TestFreeResourcesTouchingWindowsDoNotConflict(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	resp, err := service.FreeResources(context.Background(), dto.FreeResourcesQuery{
		DayOfWeek: "MONDAY", StartTime: "11:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Rooms, 2)
	assert.Len(t, resp.Personnel, 2)
}

func TestFreeResourcesLowercaseDayStillSeesBusyResources(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	// ListByDay compares the stored canonical "MONDAY", so the lowercase
	// query must be canonicalized before it reaches the repository.
	resp, err := service.FreeResources(context.Background(), dto.FreeResourcesQuery{
		DayOfWeek: "monday", StartTime: "10:30", EndTime: "11:30",
	})
	require.NoError(t, err)

	roomIDs := make([]string, 0)
	for _, room := range resp.Rooms {
		roomIDs = append(roomIDs, room.ID)
	}
	assert.Equal(t, []string{"room-2"}, roomIDs)
}

func TestFreeResourcesOtherDaysIgnored(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	resp, err := service.FreeResources(context.Background(), dto.FreeResourcesQuery{
		DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Rooms, 2)
	assert.Len(t, resp.Personnel, 2)
}

func TestFreeResourcesRejectsInvalidWindow(t *testing.T) {
	service, _ := newTimetableFixture(nil, models.InstanceStatusCompleted)

	cases := []dto.FreeResourcesQuery{
		{DayOfWeek: "FUNDAY", StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: "MONDAY", StartTime: "09:10", EndTime: "10:00"},
		{DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "10:00"},
		{DayOfWeek: "MONDAY", StartTime: "11:00", EndTime: "10:00"},
	}
	for _, query := range cases {
		_, err := service.FreeResources(context.Background(), query)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestApplyAssignmentClearsRoomOnExplicitNull(t *testing.T) {
	service, repo := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"roomId": null}`), &patch))

	event, err := service.ApplyAssignment(context.Background(), "evt-1", patch)
	require.NoError(t, err)
	assert.Nil(t, event.RoomID)
	// Personnel field was absent and must survive untouched.
	assert.Equal(t, []string{"per-1"}, []string(event.PersonnelIDs))
	require.NotNil(t, repo.updated)
}

func TestApplyAssignmentReplacesPersonnel(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"personnelIds": ["per-2"]}`), &patch))

	event, err := service.ApplyAssignment(context.Background(), "evt-1", patch)
	require.NoError(t, err)
	assert.Equal(t, []string{"per-2"}, []string(event.PersonnelIDs))
	require.NotNil(t, event.RoomID)
	assert.Equal(t, "room-1", *event.RoomID)
}

func TestApplyAssignmentRejectsUnknownRoom(t *testing.T) {
	service, repo := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"roomId": "room-ghost"}`), &patch))

	_, err := service.ApplyAssignment(context.Background(), "evt-1", patch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestApplyAssignmentRejectsUnknownPersonnel(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"personnelIds": ["per-ghost"]}`), &patch))

	_, err := service.ApplyAssignment(context.Background(), "evt-1", patch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyAssignmentUnknownEventIsNotFound(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusCompleted)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"roomId": "room-2"}`), &patch))

	_, err := service.ApplyAssignment(context.Background(), "evt-ghost", patch)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestApplyAssignmentBlockedDuringSolve(t *testing.T) {
	service, _ := newTimetableFixture([]models.ScheduledEvent{mondayEvent()}, models.InstanceStatusLocked)

	var patch dto.AssignmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"roomId": "room-2"}`), &patch))

	_, err := service.ApplyAssignment(context.Background(), "evt-1", patch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
}
