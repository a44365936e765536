package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type allocInstanceRepoStub struct {
	instance  *models.ScheduleInstance
	pools     map[string][]string
	statusLog []models.InstanceStatus
	statusErr error
}

func (m *allocInstanceRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error) {
	if m.instance == nil || m.instance.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.instance
	return &cp, nil
}

func (m *allocInstanceRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.InstanceStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusLog = append(m.statusLog, status)
	m.instance.Status = status
	return nil
}

func (m *allocInstanceRepoStub) ListResourceIDs(ctx context.Context, instanceID, resource string) ([]string, error) {
	return m.pools[resource], nil
}

type allocCourseReaderStub struct {
	courses   []models.Course
	templates map[string][]models.ActivityTemplate
}

func (m *allocCourseReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	return m.courses, nil
}

func (m *allocCourseReaderStub) ListTemplates(ctx context.Context, courseID string) ([]models.ActivityTemplate, error) {
	return m.templates[courseID], nil
}

type allocSectionReaderStub struct {
	sections []models.Section
	groups   map[string][]models.Group
}

func (m *allocSectionReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Section, error) {
	return m.sections, nil
}

func (m *allocSectionReaderStub) ListGroups(ctx context.Context, sectionID string) ([]models.Group, error) {
	return m.groups[sectionID], nil
}

type allocPersonnelReaderStub struct{ people []models.Personnel }

func (m *allocPersonnelReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Personnel, error) {
	return m.people, nil
}

type allocRoomReaderStub struct{ rooms []models.Room }

func (m *allocRoomReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	return m.rooms, nil
}

type allocPreferenceReaderStub struct{ prefs []models.PersonnelPreference }

func (m *allocPreferenceReaderStub) ListByInstance(ctx context.Context, instanceID string) ([]models.PersonnelPreference, error) {
	return m.prefs, nil
}

type allocEventRepoStub struct {
	deleted   []string
	inserted  []models.ScheduledEvent
	insertErr error
}

func (m *allocEventRepoStub) DeleteByInstance(ctx context.Context, exec sqlx.ExtContext, instanceID string) error {
	m.deleted = append(m.deleted, instanceID)
	return nil
}

func (m *allocEventRepoStub) BulkInsert(ctx context.Context, exec sqlx.ExtContext, events []models.ScheduledEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = events
	return nil
}

type resolverStub struct {
	resolved *ResolvedAvailability
	err      error
}

func (m *resolverStub) ResolveTemplate(ctx context.Context, templateID string) (*ResolvedAvailability, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.resolved, nil
}

type solverStub struct {
	payload *dto.SolveRequest
	entries []dto.SolutionEntry
	err     error
}

func (m *solverStub) Solve(ctx context.Context, payload dto.SolveRequest) ([]dto.SolutionEntry, error) {
	m.payload = &payload
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

type allocationFixture struct {
	instances *allocInstanceRepoStub
	events    *allocEventRepoStub
	solver    *solverStub
	service   *AllocationService
	mock      sqlmock.Sqlmock
}

func newAllocationFixture(t *testing.T, instance *models.ScheduleInstance, solver *solverStub) *allocationFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	instances := &allocInstanceRepoStub{
		instance: instance,
		pools: map[string][]string{
			"course":    {"crs-1"},
			"section":   {"sec-1"},
			"personnel": {"per-1"},
			"room":      {"room-1"},
		},
	}
	courses := &allocCourseReaderStub{
		courses: []models.Course{{ID: "crs-1", Code: "MATH", Title: "Mathematics"}},
		templates: map[string][]models.ActivityTemplate{
			"crs-1": {{
				ID:              "tpl-1",
				CourseID:        "crs-1",
				Title:           "Lecture",
				DurationMinutes: 60,
				RoomType:        "classroom",
				AttendeeLevel:   models.AttendeeLevelSection,
			}},
		},
	}
	sections := &allocSectionReaderStub{sections: []models.Section{{ID: "sec-1"}}}
	personnel := &allocPersonnelReaderStub{people: []models.Personnel{{ID: "per-1", Roles: []string{"LECTURER"}}}}
	rooms := &allocRoomReaderStub{rooms: []models.Room{{ID: "room-1", Type: "classroom"}}}
	prefs := &allocPreferenceReaderStub{prefs: []models.PersonnelPreference{
		{PersonnelID: "per-1", ScheduleInstanceID: instance.ID, ActivityTemplateID: "tpl-1", Rank: 1},
	}}
	events := &allocEventRepoStub{}
	resolver := &resolverStub{resolved: &ResolvedAvailability{
		Slots: []int{16, 17, 18, 19},
		Days:  []string{"MONDAY"},
	}}

	service := NewAllocationService(
		instances, courses, sections, personnel, rooms, prefs, events,
		resolver, solver, sqlxDB, nil, nil, zap.NewNop(),
	)
	return &allocationFixture{instances: instances, events: events, solver: solver, service: service, mock: mock}
}

func draftInstance() *models.ScheduleInstance {
	templateID := "avail-1"
	return &models.ScheduleInstance{
		ID:                     "inst-1",
		Name:                   "Autumn term",
		Status:                 models.InstanceStatusDraft,
		AvailabilityTemplateID: &templateID,
		RoomStickinessWeight:   5,
		SpacingPreference:      models.SpacingPreferenceSpread,
		TimePreferences:        types.JSONText(`[{"time":"09:00","rank":1}]`),
	}
}

func TestRunCommitsSolution(t *testing.T) {
	solver := &solverStub{entries: []dto.SolutionEntry{{
		TemplateID:    "tpl-1",
		RoomID:        "room-1",
		PersonnelIDs:  []string{"per-1"},
		AttendeeLevel: models.AttendeeLevelSection,
		AttendeeID:    "sec-1",
		StartSlot:     18,
		EndSlot:       20,
	}}}
	fixture := newAllocationFixture(t, draftInstance(), solver)
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Run(context.Background(), "inst-1")
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusCompleted, result.Status)
	assert.Equal(t, 1, result.TaskCount)
	assert.Equal(t, 1, result.EventCount)
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusLocked, models.InstanceStatusCompleted}, fixture.instances.statusLog)

	require.Len(t, fixture.events.inserted, 1)
	event := fixture.events.inserted[0]
	assert.Equal(t, "MONDAY", event.DayOfWeek)
	assert.Equal(t, "09:00", event.StartTime)
	assert.Equal(t, "10:00", event.EndTime)
	require.NotNil(t, event.RoomID)
	assert.Equal(t, "room-1", *event.RoomID)
	require.NotNil(t, event.AttendeeSectionID)
	assert.Equal(t, "sec-1", *event.AttendeeSectionID)
	assert.Nil(t, event.AttendeeGroupID)

	assert.Equal(t, []string{"inst-1"}, fixture.events.deleted)
	require.NoError(t, fixture.mock.ExpectationsWereMet())

	require.NotNil(t, solver.payload)
	assert.Equal(t, []int{16, 17, 18, 19}, solver.payload.TimeSlots)
	assert.Equal(t, []string{"MONDAY"}, solver.payload.Days)
	assert.Equal(t, 5, solver.payload.RoomStickinessWeight)
	assert.Equal(t, models.SpacingPreferenceSpread, solver.payload.SpacingPreference)
	require.Len(t, solver.payload.TimePreferences, 1)
	assert.Equal(t, "09:00", solver.payload.TimePreferences[0].Time)
	require.Len(t, solver.payload.Activities, 1)
	assert.Equal(t, "tpl-1_sec-1", solver.payload.Activities[0].ID)
	require.Len(t, solver.payload.Preferences, 1)
	assert.Equal(t, "tpl-1", solver.payload.Preferences[0].ActivityID)
}

func TestRunSolverFailureRevertsToDraft(t *testing.T) {
	solver := &solverStub{err: appErrors.Clone(appErrors.ErrSolver, "no feasible assignment")}
	fixture := newAllocationFixture(t, draftInstance(), solver)

	_, err := fixture.service.Run(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSolver.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusLocked, models.InstanceStatusDraft}, fixture.instances.statusLog)
	assert.Empty(t, fixture.events.deleted)
}

func TestRunRejectsLockedInstance(t *testing.T) {
	instance := draftInstance()
	instance.Status = models.InstanceStatusLocked
	fixture := newAllocationFixture(t, instance, &solverStub{})

	_, err := fixture.service.Run(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.instances.statusLog)
}

func TestRunMissingTemplateLeavesStatusUntouched(t *testing.T) {
	instance := draftInstance()
	instance.AvailabilityTemplateID = nil
	fixture := newAllocationFixture(t, instance, &solverStub{})

	_, err := fixture.service.Run(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.instances.statusLog)
}

func TestRunRejectsSolutionWithUnknownTask(t *testing.T) {
	solver := &solverStub{entries: []dto.SolutionEntry{{
		TemplateID:    "tpl-1",
		AttendeeLevel: models.AttendeeLevelSection,
		AttendeeID:    "sec-ghost",
		StartSlot:     18,
		EndSlot:       20,
	}}}
	fixture := newAllocationFixture(t, draftInstance(), solver)

	_, err := fixture.service.Run(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSolver.Code, appErrors.FromError(err).Code)
	// Commit never started, so the instance stays locked for inspection.
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusLocked}, fixture.instances.statusLog)
}

func TestRunCommitFailureRollsBackAndStaysLocked(t *testing.T) {
	solver := &solverStub{entries: []dto.SolutionEntry{{
		TemplateID:    "tpl-1",
		AttendeeLevel: models.AttendeeLevelSection,
		AttendeeID:    "sec-1",
		StartSlot:     18,
		EndSlot:       20,
	}}}
	fixture := newAllocationFixture(t, draftInstance(), solver)
	fixture.events.insertErr = errors.New("insert failed")
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.service.Run(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusLocked}, fixture.instances.statusLog)
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestImportSolutionLocksAndCommits(t *testing.T) {
	fixture := newAllocationFixture(t, draftInstance(), &solverStub{})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	entries := []dto.SolutionEntry{{
		TemplateID:    "tpl-1",
		RoomID:        "room-1",
		AttendeeLevel: models.AttendeeLevelSection,
		AttendeeID:    "sec-1",
		StartSlot:     16,
		EndSlot:       18,
	}}
	result, err := fixture.service.ImportSolution(context.Background(), "inst-1", entries)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, result.Status)
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusLocked, models.InstanceStatusCompleted}, fixture.instances.statusLog)
	require.Len(t, fixture.events.inserted, 1)
	assert.Equal(t, "08:00", fixture.events.inserted[0].StartTime)
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestBuildSolveRequestDoesNotTouchStatus(t *testing.T) {
	fixture := newAllocationFixture(t, draftInstance(), &solverStub{})

	payload, err := fixture.service.BuildSolveRequest(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Len(t, payload.Activities, 1)
	assert.Len(t, payload.Personnel, 1)
	assert.Len(t, payload.Rooms, 1)
	assert.Empty(t, fixture.instances.statusLog)
}
