package models

import "time"

// Program is the top of the academic structure hierarchy.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Batch is one intake year of a program.
type Batch struct {
	ID        string    `db:"id" json:"id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Section attends SECTION-level activities as one unit.
type Section struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Groups []Group `db:"-" json:"groups,omitempty"`
}

// Group is a subdivision of a section; GROUP-level activities run once per group.
type Group struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SectionFilter describes query params for listing sections.
type SectionFilter struct {
	BatchID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
