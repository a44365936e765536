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

// CourseRepository provides persistence for courses and activity templates.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses with optional filtering and pagination.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Code != "" {
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)+1))
		args = append(args, filter.Code)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"code": true, "title": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT id, code, title, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID loads a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByIDs returns the given courses ordered by id for deterministic
// task expansion.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, code, title, created_at, updated_at FROM courses WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build course id query: %w", err)
	}
	query = r.db.Rebind(query)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	return courses, nil
}

// Create stores a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, title, created_at, updated_at) VALUES (:id, :code, :title, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course record.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, title = :title, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course by id.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// ListTemplates returns a course's activity templates ordered by id.
func (r *CourseRepository) ListTemplates(ctx context.Context, courseID string) ([]models.ActivityTemplate, error) {
	const query = `SELECT id, course_id, title, duration_minutes, room_type, attendee_level, requirements, created_at FROM activity_templates WHERE course_id = $1 ORDER BY id ASC`
	var templates []models.ActivityTemplate
	if err := r.db.SelectContext(ctx, &templates, query, courseID); err != nil {
		return nil, fmt.Errorf("list activity templates: %w", err)
	}
	return templates, nil
}

// FindTemplateByID loads one activity template.
func (r *CourseRepository) FindTemplateByID(ctx context.Context, id string) (*models.ActivityTemplate, error) {
	const query = `SELECT id, course_id, title, duration_minutes, room_type, attendee_level, requirements, created_at FROM activity_templates WHERE id = $1`
	var template models.ActivityTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// CreateTemplate attaches an activity template to a course.
func (r *CourseRepository) CreateTemplate(ctx context.Context, template *models.ActivityTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_templates (id, course_id, title, duration_minutes, room_type, attendee_level, requirements, created_at) VALUES (:id, :course_id, :title, :duration_minutes, :room_type, :attendee_level, :requirements, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create activity template: %w", err)
	}
	return nil
}

// DeleteTemplate removes an activity template.
func (r *CourseRepository) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM activity_templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete activity template: %w", err)
	}
	return nil
}
