package models

import (
	"time"

	"github.com/lib/pq"
)

// Personnel is a staff member eligible for activity assignments.
type Personnel struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Roles     pq.StringArray `db:"roles" json:"roles"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// PersonnelFilter describes query params for listing personnel.
type PersonnelFilter struct {
	Role      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
