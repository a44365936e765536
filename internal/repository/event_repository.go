package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusplan/timetable-api/internal/models"
)

// EventRepository provides persistence for scheduled events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `id, schedule_instance_id, activity_template_id, day_of_week, start_time, end_time, room_id, personnel_ids, attendee_section_id, attendee_group_id, created_at, updated_at`

// List returns events matching the filter ordered by day/time.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.ScheduledEvent, error) {
	base := "FROM scheduled_events WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ScheduleInstanceID != "" {
		conditions = append(conditions, fmt.Sprintf("schedule_instance_id = $%d", len(args)+1))
		args = append(args, filter.ScheduleInstanceID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("attendee_section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("attendee_group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.PersonnelID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(personnel_ids)", len(args)+1))
		args = append(args, filter.PersonnelID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, start_time ASC", eventColumns, base)
	var events []models.ScheduledEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list scheduled events: %w", err)
	}
	return events, nil
}

// ListByDay returns every event on a day across all schedule instances.
// Occupancy is global: a double booking across two instances is still real.
func (r *EventRepository) ListByDay(ctx context.Context, dayOfWeek string) ([]models.ScheduledEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduled_events WHERE day_of_week = $1 ORDER BY start_time ASC", eventColumns)
	var events []models.ScheduledEvent
	if err := r.db.SelectContext(ctx, &events, query, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list scheduled events by day: %w", err)
	}
	return events, nil
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduled_events WHERE id = $1", eventColumns)
	var event models.ScheduledEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteByInstance removes every event of an instance, optionally inside a
// caller transaction (the committer's delete-then-insert swap).
func (r *EventRepository) DeleteByInstance(ctx context.Context, exec sqlx.ExtContext, instanceID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM scheduled_events WHERE schedule_instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("delete scheduled events for instance: %w", err)
	}
	return nil
}

// BulkInsert stores events, optionally inside a caller transaction.
func (r *EventRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, events []models.ScheduledEvent) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO scheduled_events (id, schedule_instance_id, activity_template_id, day_of_week, start_time, end_time, room_id, personnel_ids, attendee_section_id, attendee_group_id, created_at, updated_at)
VALUES (:id, :schedule_instance_id, :activity_template_id, :day_of_week, :start_time, :end_time, :room_id, :personnel_ids, :attendee_section_id, :attendee_group_id, :created_at, :updated_at)`

	for i := range events {
		event := &events[i]
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}
		event.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, event); err != nil {
			return fmt.Errorf("bulk insert scheduled event: %w", err)
		}
	}
	return nil
}

// UpdateAssignment patches an event's room and personnel columns.
func (r *EventRepository) UpdateAssignment(ctx context.Context, event *models.ScheduledEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scheduled_events SET room_id = :room_id, personnel_ids = :personnel_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update scheduled event assignment: %w", err)
	}
	return nil
}

// CountByInstance reports how many events an instance currently owns.
func (r *EventRepository) CountByInstance(ctx context.Context, instanceID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM scheduled_events WHERE schedule_instance_id = $1`, instanceID); err != nil {
		return 0, fmt.Errorf("count scheduled events: %w", err)
	}
	return count, nil
}
