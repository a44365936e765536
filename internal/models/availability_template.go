package models

import "time"

// AvailabilityTemplate is a named, reusable weekly availability grid shared
// across schedule instances.
type AvailabilityTemplate struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Blocks []AvailabilityBlock `db:"-" json:"blocks,omitempty"`
}

// AvailabilityBlock is one day/time interval inside a template. Times are
// "HH:MM" on 30-minute boundaries; end must be after start.
type AvailabilityBlock struct {
	ID         string `db:"id" json:"id"`
	TemplateID string `db:"template_id" json:"template_id"`
	DayOfWeek  string `db:"day_of_week" json:"day_of_week"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
}
