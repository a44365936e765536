package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/timegrid"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
	"github.com/campusplan/timetable-api/pkg/export"
)

type timetableEventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.ScheduledEvent, error)
	ListByDay(ctx context.Context, dayOfWeek string) ([]models.ScheduledEvent, error)
	FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error)
	UpdateAssignment(ctx context.Context, event *models.ScheduledEvent) error
}

type timetableInstanceReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error)
}

type timetableRoomReader interface {
	ListAll(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type timetablePersonnelReader interface {
	ListAll(ctx context.Context) ([]models.Personnel, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Personnel, error)
}

type templateTitleReader interface {
	FindTemplateByID(ctx context.Context, id string) (*models.ActivityTemplate, error)
}

// TimetableService serves committed timetables: queries, global free-resource
// lookups, per-event manual reassignment and printable exports.
type TimetableService struct {
	events    timetableEventRepository
	instances timetableInstanceReader
	rooms     timetableRoomReader
	personnel timetablePersonnelReader
	templates templateTitleReader
	cache     *CacheService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	events timetableEventRepository,
	instances timetableInstanceReader,
	rooms timetableRoomReader,
	personnel timetablePersonnelReader,
	templates templateTitleReader,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		events:    events,
		instances: instances,
		rooms:     rooms,
		personnel: personnel,
		templates: templates,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ListEvents returns events matching the query. Whole-instance views are
// cached; any narrower filter goes straight to the database.
func (s *TimetableService) ListEvents(ctx context.Context, query dto.TimetableQuery) ([]models.ScheduledEvent, error) {
	filter := models.EventFilter{
		ScheduleInstanceID: query.ScheduleInstanceID,
		SectionID:          query.SectionID,
		GroupID:            query.GroupID,
		RoomID:             query.RoomID,
		PersonnelID:        query.PersonnelID,
	}
	if query.DayOfWeek != "" {
		day, err := timegrid.CanonicalDay(query.DayOfWeek)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
		}
		filter.DayOfWeek = day
	}

	cacheable := query.ScheduleInstanceID != "" && filter == (models.EventFilter{ScheduleInstanceID: query.ScheduleInstanceID})
	if cacheable {
		var cached []models.ScheduledEvent
		if hit, _ := s.cache.Get(ctx, TimetableKey(query.ScheduleInstanceID), &cached); hit {
			return cached, nil
		}
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled events")
	}

	if cacheable {
		_ = s.cache.Set(ctx, TimetableKey(query.ScheduleInstanceID), events, 0)
	}
	return events, nil
}

// FreeResources reports every room and personnel member with no committed
// event overlapping the half-open [start, end) window. Occupancy is global:
// events from every schedule instance count.
func (s *TimetableService) FreeResources(ctx context.Context, query dto.FreeResourcesQuery) (*dto.FreeResourcesResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid free resources query")
	}
	day, err := timegrid.CanonicalDay(query.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
	}
	start, err := timegrid.TimeToSlot(query.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := timegrid.EndTimeToSlot(query.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}

	events, err := s.events.ListByDay(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day events")
	}

	busyRooms := make(map[string]struct{})
	busyPersonnel := make(map[string]struct{})
	for _, event := range events {
		eventStart, err := timegrid.TimeToSlot(event.StartTime)
		if err != nil {
			s.logger.Warn("skipping event with malformed start time", zap.String("eventId", event.ID), zap.Error(err))
			continue
		}
		eventEnd, err := timegrid.EndTimeToSlot(event.EndTime)
		if err != nil {
			s.logger.Warn("skipping event with malformed end time", zap.String("eventId", event.ID), zap.Error(err))
			continue
		}
		if !overlaps(start, end, eventStart, eventEnd) {
			continue
		}
		if event.RoomID != nil {
			busyRooms[*event.RoomID] = struct{}{}
		}
		for _, personnelID := range event.PersonnelIDs {
			busyPersonnel[personnelID] = struct{}{}
		}
	}

	allRooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	allPersonnel, err := s.personnel.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list personnel")
	}

	resp := &dto.FreeResourcesResponse{
		Rooms:     make([]models.Room, 0, len(allRooms)),
		Personnel: make([]models.Personnel, 0, len(allPersonnel)),
	}
	for _, room := range allRooms {
		if _, busy := busyRooms[room.ID]; !busy {
			resp.Rooms = append(resp.Rooms, room)
		}
	}
	for _, person := range allPersonnel {
		if _, busy := busyPersonnel[person.ID]; !busy {
			resp.Personnel = append(resp.Personnel, person)
		}
	}
	return resp, nil
}

// ApplyAssignment patches a single event's room and/or personnel. Absent
// fields are untouched; explicit null clears. The owning instance must not be
// mid-solve.
func (s *TimetableService) ApplyAssignment(ctx context.Context, eventID string, patch dto.AssignmentPatch) (*models.ScheduledEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, lookupError(err, "scheduled event")
	}
	instance, err := s.instances.FindByID(ctx, event.ScheduleInstanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "cannot edit events while a solve is in progress")
	}

	if patch.RoomID.Present {
		if patch.RoomID.Value != nil {
			if _, err := s.rooms.FindByID(ctx, *patch.RoomID.Value); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s does not exist", *patch.RoomID.Value))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify room")
			}
		}
		event.RoomID = patch.RoomID.Value
	}

	if patch.PersonnelIDs.Present {
		ids := patch.PersonnelIDs.Value
		if len(ids) > 0 {
			found, err := s.personnel.ListByIDs(ctx, ids)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify personnel")
			}
			if len(found) != len(dedupe(ids)) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "one or more personnel ids do not exist")
			}
		}
		if ids == nil {
			ids = []string{}
		}
		event.PersonnelIDs = pq.StringArray(ids)
	}

	if err := s.events.UpdateAssignment(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	_ = s.cache.Invalidate(ctx, TimetablePattern(event.ScheduleInstanceID))
	return event, nil
}

// ExportCSV renders an instance's events as a flat CSV table.
func (s *TimetableService) ExportCSV(ctx context.Context, instanceID string) ([]byte, error) {
	events, err := s.instanceEvents(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	headers := []string{"day", "start", "end", "activity", "attendee", "room", "personnel"}
	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		title, err := s.templateTitle(ctx, event.ActivityTemplateID)
		if err != nil {
			return nil, err
		}
		row := map[string]string{
			"day":       event.DayOfWeek,
			"start":     event.StartTime,
			"end":       event.EndTime,
			"activity":  title,
			"attendee":  event.Attendee().UnitID(),
			"personnel": strings.Join(event.PersonnelIDs, ";"),
		}
		if event.RoomID != nil {
			row["room"] = *event.RoomID
		}
		rows = append(rows, row)
	}
	return s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
}

// ExportPDF renders an instance's events as a printable weekly grid.
func (s *TimetableService) ExportPDF(ctx context.Context, instanceID string) ([]byte, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	events, err := s.instanceEvents(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	grid := export.WeekGrid{
		Title: instance.Name,
		Days:  timegrid.Weekdays,
		Cells: make(map[string]string),
	}
	timeSet := make(map[string]struct{})
	for _, event := range events {
		title, err := s.templateTitle(ctx, event.ActivityTemplateID)
		if err != nil {
			return nil, err
		}
		timeSet[event.StartTime] = struct{}{}
		label := title
		if event.RoomID != nil {
			label += " @ " + *event.RoomID
		}
		key := export.CellKey(event.StartTime, event.DayOfWeek)
		if existing, ok := grid.Cells[key]; ok {
			label = existing + "\n" + label
		}
		grid.Cells[key] = label
	}
	for slot := 0; slot < timegrid.SlotsPerDay; slot++ {
		label := timegrid.SlotToTime(slot)
		if _, used := timeSet[label]; used {
			grid.Times = append(grid.Times, label)
		}
	}
	return s.pdf.RenderWeek(grid)
}

func (s *TimetableService) instanceEvents(ctx context.Context, instanceID string) ([]models.ScheduledEvent, error) {
	events, err := s.events.List(ctx, models.EventFilter{ScheduleInstanceID: instanceID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled events")
	}
	return events, nil
}

func (s *TimetableService) templateTitle(ctx context.Context, templateID string) (string, error) {
	if s.templates == nil {
		return templateID, nil
	}
	template, err := s.templates.FindTemplateByID(ctx, templateID)
	if err != nil {
		return templateID, nil
	}
	return template.Title, nil
}

// overlaps reports whether half-open slot ranges [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching boundaries do not conflict.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
