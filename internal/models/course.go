package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Course is a shared master referenced, never owned, by schedule instances.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	ActivityTemplates []ActivityTemplate `db:"-" json:"activity_templates,omitempty"`
}

// PersonnelRequirement states how many staff of a role an activity needs.
type PersonnelRequirement struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// ActivityTemplate defines a recurring teaching activity on a course. The
// attendee level decides fan-out when the template is expanded into tasks.
type ActivityTemplate struct {
	ID              string         `db:"id" json:"id"`
	CourseID        string         `db:"course_id" json:"course_id"`
	Title           string         `db:"title" json:"title"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	RoomType        string         `db:"room_type" json:"room_type"`
	AttendeeLevel   AttendeeLevel  `db:"attendee_level" json:"attendee_level"`
	Requirements    types.JSONText `db:"requirements" json:"requirements"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	Code      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
