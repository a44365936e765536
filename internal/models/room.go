package models

import "time"

// Room is a bookable space with a type the solver matches against activities.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	Type      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
