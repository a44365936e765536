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

// PersonnelRepository provides persistence for staff members.
type PersonnelRepository struct {
	db *sqlx.DB
}

// NewPersonnelRepository creates a new personnel repository.
func NewPersonnelRepository(db *sqlx.DB) *PersonnelRepository {
	return &PersonnelRepository{db: db}
}

// List returns personnel with optional filtering and pagination.
func (r *PersonnelRepository) List(ctx context.Context, filter models.PersonnelFilter) ([]models.Personnel, int, error) {
	base := "FROM personnel WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(roles)", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT id, name, email, roles, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, offset)
	var personnel []models.Personnel
	if err := r.db.SelectContext(ctx, &personnel, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list personnel: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count personnel: %w", err)
	}

	return personnel, total, nil
}

// ListAll returns the full personnel master list ordered by id.
func (r *PersonnelRepository) ListAll(ctx context.Context) ([]models.Personnel, error) {
	const query = `SELECT id, name, email, roles, created_at, updated_at FROM personnel ORDER BY id ASC`
	var personnel []models.Personnel
	if err := r.db.SelectContext(ctx, &personnel, query); err != nil {
		return nil, fmt.Errorf("list all personnel: %w", err)
	}
	return personnel, nil
}

// ListByIDs returns the given personnel ordered by id.
func (r *PersonnelRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Personnel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email, roles, created_at, updated_at FROM personnel WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build personnel id query: %w", err)
	}
	query = r.db.Rebind(query)
	var personnel []models.Personnel
	if err := r.db.SelectContext(ctx, &personnel, query, args...); err != nil {
		return nil, fmt.Errorf("list personnel by ids: %w", err)
	}
	return personnel, nil
}

// FindByID loads a personnel record by id.
func (r *PersonnelRepository) FindByID(ctx context.Context, id string) (*models.Personnel, error) {
	const query = `SELECT id, name, email, roles, created_at, updated_at FROM personnel WHERE id = $1`
	var person models.Personnel
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// Create stores a new personnel record.
func (r *PersonnelRepository) Create(ctx context.Context, person *models.Personnel) error {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	const query = `INSERT INTO personnel (id, name, email, roles, created_at, updated_at) VALUES (:id, :name, :email, :roles, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		return fmt.Errorf("create personnel: %w", err)
	}
	return nil
}

// Update modifies a personnel record.
func (r *PersonnelRepository) Update(ctx context.Context, person *models.Personnel) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE personnel SET name = :name, email = :email, roles = :roles, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		return fmt.Errorf("update personnel: %w", err)
	}
	return nil
}

// Delete removes a personnel record by id.
func (r *PersonnelRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM personnel WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete personnel: %w", err)
	}
	return nil
}
