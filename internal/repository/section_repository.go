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

// SectionRepository provides persistence for sections and their groups.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections with optional filtering and pagination.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	base := "FROM sections WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT id, batch_id, name, created_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, offset)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	return sections, total, nil
}

// FindByID loads a section by id.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, batch_id, name, created_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListByIDs returns the given sections ordered by id for deterministic
// task expansion.
func (r *SectionRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, batch_id, name, created_at FROM sections WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build section id query: %w", err)
	}
	query = r.db.Rebind(query)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections by ids: %w", err)
	}
	return sections, nil
}

// Create stores a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sections (id, batch_id, name, created_at) VALUES (:id, :batch_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Delete removes a section by id.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// ListGroups returns a section's groups ordered by id.
func (r *SectionRepository) ListGroups(ctx context.Context, sectionID string) ([]models.Group, error) {
	const query = `SELECT id, section_id, name, created_at FROM groups WHERE section_id = $1 ORDER BY id ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, sectionID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// CreateGroup attaches a group to a section.
func (r *SectionRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO groups (id, section_id, name, created_at) VALUES (:id, :section_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group by id.
func (r *SectionRepository) DeleteGroup(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
