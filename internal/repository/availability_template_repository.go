package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusplan/timetable-api/internal/models"
)

// AvailabilityTemplateRepository manages weekly availability templates.
type AvailabilityTemplateRepository struct {
	db *sqlx.DB
}

// NewAvailabilityTemplateRepository builds the repository.
func NewAvailabilityTemplateRepository(db *sqlx.DB) *AvailabilityTemplateRepository {
	return &AvailabilityTemplateRepository{db: db}
}

// List returns all templates without blocks.
func (r *AvailabilityTemplateRepository) List(ctx context.Context) ([]models.AvailabilityTemplate, error) {
	const query = `SELECT id, name, created_at, updated_at FROM availability_templates ORDER BY name ASC`
	var templates []models.AvailabilityTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list availability templates: %w", err)
	}
	return templates, nil
}

// FindByID loads one template including its blocks.
func (r *AvailabilityTemplateRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityTemplate, error) {
	const query = `SELECT id, name, created_at, updated_at FROM availability_templates WHERE id = $1`
	var template models.AvailabilityTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	blocks, err := r.ListBlocks(ctx, id)
	if err != nil {
		return nil, err
	}
	template.Blocks = blocks
	return &template, nil
}

// ListBlocks returns a template's blocks in stable day/time order.
func (r *AvailabilityTemplateRepository) ListBlocks(ctx context.Context, templateID string) ([]models.AvailabilityBlock, error) {
	const query = `SELECT id, template_id, day_of_week, start_time, end_time FROM availability_blocks WHERE template_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var blocks []models.AvailabilityBlock
	if err := r.db.SelectContext(ctx, &blocks, query, templateID); err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}
	return blocks, nil
}

// Create stores a template with its blocks in one transaction.
func (r *AvailabilityTemplateRepository) Create(ctx context.Context, template *models.AvailabilityTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create availability template: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO availability_templates (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create availability template: %w", err)
	}
	if err = r.insertBlocks(ctx, tx, template.ID, template.Blocks); err != nil {
		return err
	}
	for i := range template.Blocks {
		template.Blocks[i].TemplateID = template.ID
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create availability template: %w", err)
	}
	return nil
}

// ReplaceBlocks swaps a template's blocks atomically (explicit edit).
func (r *AvailabilityTemplateRepository) ReplaceBlocks(ctx context.Context, templateID string, blocks []models.AvailabilityBlock) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace availability blocks: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_blocks WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("clear availability blocks: %w", err)
	}
	if err = r.insertBlocks(ctx, tx, templateID, blocks); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE availability_templates SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), templateID); err != nil {
		return fmt.Errorf("touch availability template: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace availability blocks: %w", err)
	}
	return nil
}

func (r *AvailabilityTemplateRepository) insertBlocks(ctx context.Context, exec sqlx.ExtContext, templateID string, blocks []models.AvailabilityBlock) error {
	const query = `INSERT INTO availability_blocks (id, template_id, day_of_week, start_time, end_time) VALUES (:id, :template_id, :day_of_week, :start_time, :end_time)`
	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		block.TemplateID = templateID
		if _, err := sqlx.NamedExecContext(ctx, exec, query, block); err != nil {
			return fmt.Errorf("insert availability block: %w", err)
		}
	}
	return nil
}

// Delete removes a template and its blocks.
func (r *AvailabilityTemplateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability template: %w", err)
	}
	return nil
}

// CountReferences reports how many schedule instances point at the template.
func (r *AvailabilityTemplateRepository) CountReferences(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schedule_instances WHERE availability_template_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count template references: %w", err)
	}
	return count, nil
}
