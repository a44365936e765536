package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusplan/timetable-api/internal/models"
)

// PreferenceRepository manages ranked personnel preferences per instance.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository builds the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Upsert stores a preference, replacing the rank on conflict. Uniqueness
// holds per (personnel, instance, template).
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *models.PersonnelPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	const query = `
INSERT INTO personnel_preferences (id, personnel_id, schedule_instance_id, activity_template_id, rank, created_at, updated_at)
VALUES (:id, :personnel_id, :schedule_instance_id, :activity_template_id, :rank, :created_at, :updated_at)
ON CONFLICT (personnel_id, schedule_instance_id, activity_template_id) DO UPDATE
SET rank = EXCLUDED.rank,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert personnel preference: %w", err)
	}
	return nil
}

// ListByInstance returns all preferences for an instance in stable order.
func (r *PreferenceRepository) ListByInstance(ctx context.Context, instanceID string) ([]models.PersonnelPreference, error) {
	const query = `SELECT id, personnel_id, schedule_instance_id, activity_template_id, rank, created_at, updated_at
FROM personnel_preferences WHERE schedule_instance_id = $1 ORDER BY personnel_id ASC, rank ASC`
	var prefs []models.PersonnelPreference
	if err := r.db.SelectContext(ctx, &prefs, query, instanceID); err != nil {
		return nil, fmt.Errorf("list personnel preferences: %w", err)
	}
	return prefs, nil
}

// Delete removes one preference row.
func (r *PreferenceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM personnel_preferences WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete personnel preference: %w", err)
	}
	return nil
}
