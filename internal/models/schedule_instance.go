package models

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// InstanceStatus captures lifecycle phases of a schedule instance.
type InstanceStatus string

const (
	InstanceStatusDraft           InstanceStatus = "DRAFT"
	InstanceStatusPreferencesOpen InstanceStatus = "PREFERENCES_OPEN"
	InstanceStatusLocked          InstanceStatus = "LOCKED"
	InstanceStatusCompleted       InstanceStatus = "COMPLETED"
)

// instanceTransitions enumerates every legal status move. A solve locks the
// instance, a successful commit completes it, and any failure path must land
// back on DRAFT rather than leaving the instance stuck.
var instanceTransitions = map[InstanceStatus][]InstanceStatus{
	InstanceStatusDraft:           {InstanceStatusPreferencesOpen, InstanceStatusLocked},
	InstanceStatusPreferencesOpen: {InstanceStatusDraft, InstanceStatusLocked},
	InstanceStatusLocked:          {InstanceStatusCompleted, InstanceStatusDraft},
	InstanceStatusCompleted:       {InstanceStatusLocked},
}

// Valid reports whether the status is a known lifecycle phase.
func (s InstanceStatus) Valid() bool {
	_, ok := instanceTransitions[s]
	return ok
}

// CanTransition reports whether moving to the target status is legal.
func (s InstanceStatus) CanTransition(to InstanceStatus) bool {
	for _, allowed := range instanceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SpacingPreference tunes how the solver spreads same-course tasks over the week.
type SpacingPreference string

const (
	SpacingPreferenceNone    SpacingPreference = "NONE"
	SpacingPreferenceSpread  SpacingPreference = "SPREAD"
	SpacingPreferenceCluster SpacingPreference = "CLUSTER"
)

// TimePreference ranks a time of day for the whole instance.
type TimePreference struct {
	Time string `json:"time"`
	Rank int    `json:"rank"`
}

// ScheduleInstance is one term's scheduling context: pooled resources, an
// availability template, solver tuning and the resulting events.
type ScheduleInstance struct {
	ID                     string            `db:"id" json:"id"`
	Name                   string            `db:"name" json:"name"`
	StartDate              time.Time         `db:"start_date" json:"start_date"`
	EndDate                time.Time         `db:"end_date" json:"end_date"`
	Status                 InstanceStatus    `db:"status" json:"status"`
	AvailabilityTemplateID *string           `db:"availability_template_id" json:"availability_template_id,omitempty"`
	RoomStickinessWeight   int               `db:"room_stickiness_weight" json:"room_stickiness_weight"`
	SpacingPreference      SpacingPreference `db:"spacing_preference" json:"spacing_preference"`
	TimePreferences        types.JSONText    `db:"time_preferences" json:"time_preferences,omitempty"`
	CreatedAt              time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time         `db:"updated_at" json:"updated_at"`
}

// Transition mutates the instance status after checking legality.
func (i *ScheduleInstance) Transition(to InstanceStatus) error {
	if !i.Status.CanTransition(to) {
		return fmt.Errorf("illegal instance transition %s -> %s", i.Status, to)
	}
	i.Status = to
	return nil
}

// InstanceFilter describes query params for listing schedule instances.
type InstanceFilter struct {
	Status    InstanceStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
