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

// ScheduleInstanceRepository provides persistence for schedule instances and
// their pooled resource memberships.
type ScheduleInstanceRepository struct {
	db *sqlx.DB
}

// NewScheduleInstanceRepository creates a new schedule instance repository.
func NewScheduleInstanceRepository(db *sqlx.DB) *ScheduleInstanceRepository {
	return &ScheduleInstanceRepository{db: db}
}

func (r *ScheduleInstanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const instanceColumns = `id, name, start_date, end_date, status, availability_template_id, room_stickiness_weight, spacing_preference, time_preferences, created_at, updated_at`

// List returns schedule instances with optional filtering and pagination.
func (r *ScheduleInstanceRepository) List(ctx context.Context, filter models.InstanceFilter) ([]models.ScheduleInstance, int, error) {
	base := "FROM schedule_instances WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "start_date": true, "status": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", instanceColumns, base, sortBy, order, size, offset)
	var instances []models.ScheduleInstance
	if err := r.db.SelectContext(ctx, &instances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule instances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule instances: %w", err)
	}

	return instances, total, nil
}

// FindByID loads a schedule instance by id.
func (r *ScheduleInstanceRepository) FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_instances WHERE id = $1", instanceColumns)
	var instance models.ScheduleInstance
	if err := r.db.GetContext(ctx, &instance, query, id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// Create stores a new schedule instance.
func (r *ScheduleInstanceRepository) Create(ctx context.Context, instance *models.ScheduleInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = now
	}
	instance.UpdatedAt = now

	const query = `INSERT INTO schedule_instances (id, name, start_date, end_date, status, availability_template_id, room_stickiness_weight, spacing_preference, time_preferences, created_at, updated_at)
VALUES (:id, :name, :start_date, :end_date, :status, :availability_template_id, :room_stickiness_weight, :spacing_preference, :time_preferences, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instance); err != nil {
		return fmt.Errorf("create schedule instance: %w", err)
	}
	return nil
}

// Update modifies mutable fields of a schedule instance.
func (r *ScheduleInstanceRepository) Update(ctx context.Context, instance *models.ScheduleInstance) error {
	instance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_instances SET name = :name, start_date = :start_date, end_date = :end_date, availability_template_id = :availability_template_id, room_stickiness_weight = :room_stickiness_weight, spacing_preference = :spacing_preference, time_preferences = :time_preferences, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, instance); err != nil {
		return fmt.Errorf("update schedule instance: %w", err)
	}
	return nil
}

// UpdateStatus persists a lifecycle transition, optionally inside a caller
// transaction. Legality is the service's responsibility.
func (r *ScheduleInstanceRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.InstanceStatus) error {
	target := r.exec(exec)
	const query = `UPDATE schedule_instances SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := target.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule instance status: %w", err)
	}
	return nil
}

// Delete removes a schedule instance by id.
func (r *ScheduleInstanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_instances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule instance: %w", err)
	}
	return nil
}

// resource pool membership tables, one per shared master.
var poolTables = map[string]string{
	"course":    "schedule_instance_courses",
	"section":   "schedule_instance_sections",
	"personnel": "schedule_instance_personnel",
	"room":      "schedule_instance_rooms",
}

func poolTable(resource string) (string, error) {
	table, ok := poolTables[resource]
	if !ok {
		return "", fmt.Errorf("unknown pooled resource type %q", resource)
	}
	return table, nil
}

// AssignResource pools a master entity into the instance's scheduling universe.
func (r *ScheduleInstanceRepository) AssignResource(ctx context.Context, instanceID, resource, resourceID string) error {
	table, err := poolTable(resource)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (schedule_instance_id, resource_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, table)
	if _, err := r.db.ExecContext(ctx, query, instanceID, resourceID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign %s to schedule instance: %w", resource, err)
	}
	return nil
}

// UnassignResource removes a master entity from the pool.
func (r *ScheduleInstanceRepository) UnassignResource(ctx context.Context, instanceID, resource, resourceID string) error {
	table, err := poolTable(resource)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE schedule_instance_id = $1 AND resource_id = $2`, table)
	if _, err := r.db.ExecContext(ctx, query, instanceID, resourceID); err != nil {
		return fmt.Errorf("unassign %s from schedule instance: %w", resource, err)
	}
	return nil
}

// ListResourceIDs returns pooled resource ids of one type, ordered for
// deterministic downstream expansion.
func (r *ScheduleInstanceRepository) ListResourceIDs(ctx context.Context, instanceID, resource string) ([]string, error) {
	table, err := poolTable(resource)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT resource_id FROM %s WHERE schedule_instance_id = $1 ORDER BY resource_id ASC`, table)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, instanceID); err != nil {
		return nil, fmt.Errorf("list pooled %s ids: %w", resource, err)
	}
	return ids, nil
}
