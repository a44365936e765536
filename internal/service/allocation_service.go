package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/timegrid"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type allocationInstanceRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.InstanceStatus) error
	ListResourceIDs(ctx context.Context, instanceID, resource string) ([]string, error)
}

type allocationCourseReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	ListTemplates(ctx context.Context, courseID string) ([]models.ActivityTemplate, error)
}

type allocationSectionReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Section, error)
	ListGroups(ctx context.Context, sectionID string) ([]models.Group, error)
}

type allocationPersonnelReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Personnel, error)
}

type allocationRoomReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Room, error)
}

type allocationPreferenceReader interface {
	ListByInstance(ctx context.Context, instanceID string) ([]models.PersonnelPreference, error)
}

type allocationEventRepository interface {
	DeleteByInstance(ctx context.Context, exec sqlx.ExtContext, instanceID string) error
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, events []models.ScheduledEvent) error
}

type availabilityResolver interface {
	ResolveTemplate(ctx context.Context, templateID string) (*ResolvedAvailability, error)
}

type solverClient interface {
	Solve(ctx context.Context, payload dto.SolveRequest) ([]dto.SolutionEntry, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AllocationService drives the solve lifecycle of a schedule instance: it
// assembles the solver payload from the pools, locks the instance, calls the
// external solver and commits the returned solution atomically.
type AllocationService struct {
	instances    allocationInstanceRepository
	courses      allocationCourseReader
	sections     allocationSectionReader
	personnel    allocationPersonnelReader
	rooms        allocationRoomReader
	preferences  allocationPreferenceReader
	events       allocationEventRepository
	availability availabilityResolver
	solver       solverClient
	tx           txProvider
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewAllocationService wires allocation dependencies.
func NewAllocationService(
	instances allocationInstanceRepository,
	courses allocationCourseReader,
	sections allocationSectionReader,
	personnel allocationPersonnelReader,
	rooms allocationRoomReader,
	preferences allocationPreferenceReader,
	events allocationEventRepository,
	availability availabilityResolver,
	solver solverClient,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		instances:    instances,
		courses:      courses,
		sections:     sections,
		personnel:    personnel,
		rooms:        rooms,
		preferences:  preferences,
		events:       events,
		availability: availability,
		solver:       solver,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// BuildSolveRequest assembles the solver payload for an instance without
// touching its status. Exposed so the payload can be downloaded and fed to an
// externally run solver.
func (s *AllocationService) BuildSolveRequest(ctx context.Context, instanceID string) (*dto.SolveRequest, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	payload, _, err := s.buildPayload(ctx, instance)
	return payload, err
}

// Run executes the full solve lifecycle. The instance is locked for the
// duration of the solver call; solver failure reverts it to DRAFT, while a
// successful commit marks it COMPLETED.
func (s *AllocationService) Run(ctx context.Context, instanceID string) (*dto.AllocationResult, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "a solve is already in progress for this instance")
	}

	payload, tasks, err := s.buildPayload(ctx, instance)
	if err != nil {
		return nil, err
	}

	if err := s.lock(ctx, instance); err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := s.solver.Solve(ctx, *payload)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveSolve("failure", time.Since(start))
		}
		s.revert(ctx, instance)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSolve("success", time.Since(start))
	}

	return s.commit(ctx, instance, tasks, entries)
}

// ImportSolution commits an externally produced solution. The payload must
// have been built by BuildSolveRequest for the same pools, so the expansion
// is rebuilt here to validate every entry against it.
func (s *AllocationService) ImportSolution(ctx context.Context, instanceID string, entries []dto.SolutionEntry) (*dto.AllocationResult, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}

	_, tasks, err := s.buildPayload(ctx, instance)
	if err != nil {
		return nil, err
	}

	if instance.Status != models.InstanceStatusLocked {
		if err := s.lock(ctx, instance); err != nil {
			return nil, err
		}
	}

	return s.commit(ctx, instance, tasks, entries)
}

// buildPayload gathers the pooled resources, resolves availability and
// expands tasks. All solve preconditions are enforced here, before any status
// change, so a failed precondition never strands the instance.
func (s *AllocationService) buildPayload(ctx context.Context, instance *models.ScheduleInstance) (*dto.SolveRequest, []dto.SolverTask, error) {
	if instance.AvailabilityTemplateID == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule instance has no availability template")
	}
	resolved, err := s.availability.ResolveTemplate(ctx, *instance.AvailabilityTemplateID)
	if err != nil {
		return nil, nil, err
	}

	courses, err := s.pooledCourses(ctx, instance.ID)
	if err != nil {
		return nil, nil, err
	}
	sections, err := s.pooledSections(ctx, instance.ID)
	if err != nil {
		return nil, nil, err
	}

	tasks, err := ExpandTasks(courses, sections)
	if err != nil {
		return nil, nil, err
	}
	if len(tasks) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule instance expands to no tasks")
	}

	personnel, err := s.pooledPersonnel(ctx, instance.ID)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.pooledRooms(ctx, instance.ID)
	if err != nil {
		return nil, nil, err
	}

	prefs, err := s.preferences.ListByInstance(ctx, instance.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preferences")
	}
	solverPrefs := make([]dto.SolverPreference, 0, len(prefs))
	for _, pref := range prefs {
		solverPrefs = append(solverPrefs, dto.SolverPreference{
			PersonnelID: pref.PersonnelID,
			ActivityID:  pref.ActivityTemplateID,
			Rank:        pref.Rank,
		})
	}

	timePrefs, err := parseTimePreferences(instance)
	if err != nil {
		return nil, nil, err
	}

	payload := &dto.SolveRequest{
		Activities:           tasks,
		Personnel:            personnel,
		Rooms:                rooms,
		Preferences:          solverPrefs,
		TimeSlots:            resolved.Slots,
		Days:                 resolved.Days,
		RoomStickinessWeight: instance.RoomStickinessWeight,
		SpacingPreference:    instance.SpacingPreference,
		TimePreferences:      timePrefs,
	}
	return payload, tasks, nil
}

// commit replaces the instance's events with the solution and marks it
// COMPLETED in a single transaction. The instance must be LOCKED; a failed
// commit rolls back and leaves it LOCKED for inspection or retry.
func (s *AllocationService) commit(ctx context.Context, instance *models.ScheduleInstance, tasks []dto.SolverTask, entries []dto.SolutionEntry) (result *dto.AllocationResult, err error) {
	events, err := s.solutionEvents(instance, tasks, entries)
	if err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.events.DeleteByInstance(ctx, tx, instance.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous events")
		return nil, err
	}
	if err = s.events.BulkInsert(ctx, tx, events); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist scheduled events")
		return nil, err
	}
	if err = instance.Transition(models.InstanceStatusCompleted); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "illegal status transition")
		return nil, err
	}
	if err = s.instances.UpdateStatus(ctx, tx, instance.ID, models.InstanceStatusCompleted); err != nil {
		instance.Status = models.InstanceStatusLocked
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instance status")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		instance.Status = models.InstanceStatusLocked
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit solution")
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, TimetablePattern(instance.ID))
	}
	if s.metrics != nil {
		s.metrics.AddEventsCommitted(len(events))
	}
	s.logger.Info("solution committed",
		zap.String("scheduleInstanceId", instance.ID),
		zap.Int("tasks", len(tasks)),
		zap.Int("events", len(events)))

	return &dto.AllocationResult{
		ScheduleInstanceID: instance.ID,
		Status:             models.InstanceStatusCompleted,
		TaskCount:          len(tasks),
		EventCount:         len(events),
	}, nil
}

// solutionEvents maps solver entries onto event rows. Every entry must match
// a task from the current expansion; anything else means the solution was
// built against stale pools.
func (s *AllocationService) solutionEvents(instance *models.ScheduleInstance, tasks []dto.SolverTask, entries []dto.SolutionEntry) ([]models.ScheduledEvent, error) {
	known := make(map[string]dto.SolverTask, len(tasks))
	for _, task := range tasks {
		known[task.ID] = task
	}

	events := make([]models.ScheduledEvent, 0, len(entries))
	for _, entry := range entries {
		taskID := entry.TemplateID + "_" + entry.AttendeeID
		task, ok := known[taskID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrSolver, fmt.Sprintf("solution references unknown task %s", taskID))
		}
		if task.AttendeeLevel != entry.AttendeeLevel {
			return nil, appErrors.Clone(appErrors.ErrSolver, fmt.Sprintf("solution attendee level mismatch for task %s", taskID))
		}

		event, err := entryEvent(instance.ID, entry)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}

// entryEvent converts one placement from global slots back to day/time form.
// Placements never span days; an end slot on the midnight boundary is still
// part of the starting day.
func entryEvent(instanceID string, entry dto.SolutionEntry) (*models.ScheduledEvent, error) {
	if entry.EndSlot <= entry.StartSlot {
		return nil, appErrors.Clone(appErrors.ErrSolver, fmt.Sprintf("solution entry for %s has an empty slot range", entry.TemplateID))
	}
	dayIdx, startSlot := timegrid.SplitGlobalSlot(entry.StartSlot)
	day, err := timegrid.DayName(dayIdx)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrSolver, fmt.Sprintf("solution entry for %s is outside the week", entry.TemplateID))
	}
	endSlot := entry.EndSlot - dayIdx*timegrid.SlotsPerDay
	if endSlot > timegrid.SlotsPerDay {
		return nil, appErrors.Clone(appErrors.ErrSolver, fmt.Sprintf("solution entry for %s crosses a day boundary", entry.TemplateID))
	}

	scope, err := models.ParseAttendeeScope(entry.AttendeeLevel, entry.AttendeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolver.Code, appErrors.ErrSolver.Status, "invalid attendee in solution entry")
	}

	event := &models.ScheduledEvent{
		ScheduleInstanceID: instanceID,
		ActivityTemplateID: entry.TemplateID,
		DayOfWeek:          day,
		StartTime:          timegrid.SlotToTime(startSlot),
		EndTime:            timegrid.SlotToTime(endSlot),
		PersonnelIDs:       pq.StringArray(entry.PersonnelIDs),
	}
	if event.PersonnelIDs == nil {
		event.PersonnelIDs = pq.StringArray{}
	}
	if entry.RoomID != "" {
		roomID := entry.RoomID
		event.RoomID = &roomID
	}
	if err := event.SetAttendee(scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolver.Code, appErrors.ErrSolver.Status, "invalid attendee in solution entry")
	}
	return event, nil
}

func (s *AllocationService) lock(ctx context.Context, instance *models.ScheduleInstance) error {
	if err := instance.Transition(models.InstanceStatusLocked); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "cannot lock schedule instance")
	}
	if err := s.instances.UpdateStatus(ctx, nil, instance.ID, models.InstanceStatusLocked); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock schedule instance")
	}
	return nil
}

// revert returns a locked instance to DRAFT after a failed solve. Failure to
// revert is logged, not returned, so it never masks the solver error.
func (s *AllocationService) revert(ctx context.Context, instance *models.ScheduleInstance) {
	instance.Status = models.InstanceStatusDraft
	if err := s.instances.UpdateStatus(ctx, nil, instance.ID, models.InstanceStatusDraft); err != nil {
		s.logger.Error("failed to revert instance to draft",
			zap.String("scheduleInstanceId", instance.ID), zap.Error(err))
	}
}

func (s *AllocationService) pooledCourses(ctx context.Context, instanceID string) ([]models.Course, error) {
	ids, err := s.instances.ListResourceIDs(ctx, instanceID, "course")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course pool")
	}
	courses, err := s.courses.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pooled courses")
	}
	for i := range courses {
		templates, err := s.courses.ListTemplates(ctx, courses[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity templates")
		}
		courses[i].ActivityTemplates = templates
	}
	return courses, nil
}

func (s *AllocationService) pooledSections(ctx context.Context, instanceID string) ([]models.Section, error) {
	ids, err := s.instances.ListResourceIDs(ctx, instanceID, "section")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section pool")
	}
	sections, err := s.sections.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pooled sections")
	}
	for i := range sections {
		groups, err := s.sections.ListGroups(ctx, sections[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section groups")
		}
		sections[i].Groups = groups
	}
	return sections, nil
}

func (s *AllocationService) pooledPersonnel(ctx context.Context, instanceID string) ([]dto.SolverPersonnel, error) {
	ids, err := s.instances.ListResourceIDs(ctx, instanceID, "personnel")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load personnel pool")
	}
	people, err := s.personnel.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pooled personnel")
	}
	out := make([]dto.SolverPersonnel, 0, len(people))
	for _, person := range people {
		out = append(out, dto.SolverPersonnel{ID: person.ID, Roles: []string(person.Roles)})
	}
	return out, nil
}

func (s *AllocationService) pooledRooms(ctx context.Context, instanceID string) ([]dto.SolverRoom, error) {
	ids, err := s.instances.ListResourceIDs(ctx, instanceID, "room")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room pool")
	}
	rooms, err := s.rooms.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pooled rooms")
	}
	out := make([]dto.SolverRoom, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, dto.SolverRoom{ID: room.ID, Type: room.Type})
	}
	return out, nil
}

func parseTimePreferences(instance *models.ScheduleInstance) ([]dto.SolverTimePreference, error) {
	if len(instance.TimePreferences) == 0 {
		return []dto.SolverTimePreference{}, nil
	}
	var prefs []models.TimePreference
	if err := json.Unmarshal(instance.TimePreferences, &prefs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed time preferences")
	}
	out := make([]dto.SolverTimePreference, 0, len(prefs))
	for _, pref := range prefs {
		out = append(out, dto.SolverTimePreference{Time: pref.Time, Rank: pref.Rank})
	}
	return out, nil
}
