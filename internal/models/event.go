package models

import (
	"time"

	"github.com/lib/pq"
)

// ScheduledEvent is a concrete placement of an activity template for one
// attendee unit. Exactly one of AttendeeSectionID / AttendeeGroupID is set.
// Events are created in bulk by the solution committer or patched one at a
// time by manual reassignment.
type ScheduledEvent struct {
	ID                 string         `db:"id" json:"id"`
	ScheduleInstanceID string         `db:"schedule_instance_id" json:"schedule_instance_id"`
	ActivityTemplateID string         `db:"activity_template_id" json:"activity_template_id"`
	DayOfWeek          string         `db:"day_of_week" json:"day_of_week"`
	StartTime          string         `db:"start_time" json:"start_time"`
	EndTime            string         `db:"end_time" json:"end_time"`
	RoomID             *string        `db:"room_id" json:"room_id,omitempty"`
	PersonnelIDs       pq.StringArray `db:"personnel_ids" json:"personnel_ids"`
	AttendeeSectionID  *string        `db:"attendee_section_id" json:"attendee_section_id,omitempty"`
	AttendeeGroupID    *string        `db:"attendee_group_id" json:"attendee_group_id,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Attendee returns the event's attendee reference as a tagged scope.
func (e *ScheduledEvent) Attendee() AttendeeScope {
	if e.AttendeeGroupID != nil {
		return GroupScope(*e.AttendeeGroupID)
	}
	if e.AttendeeSectionID != nil {
		return SectionScope(*e.AttendeeSectionID)
	}
	return AttendeeScope{}
}

// SetAttendee stores the scope in the mutually exclusive columns.
func (e *ScheduledEvent) SetAttendee(scope AttendeeScope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	e.AttendeeSectionID = nil
	e.AttendeeGroupID = nil
	switch scope.Level {
	case AttendeeLevelSection:
		id := scope.SectionID
		e.AttendeeSectionID = &id
	case AttendeeLevelGroup:
		id := scope.GroupID
		e.AttendeeGroupID = &id
	}
	return nil
}

// EventFilter describes query params for listing scheduled events.
type EventFilter struct {
	ScheduleInstanceID string
	DayOfWeek          string
	SectionID          string
	GroupID            string
	RoomID             string
	PersonnelID        string
}
