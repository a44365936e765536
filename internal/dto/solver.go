package dto

import "github.com/campusplan/timetable-api/internal/models"

// SolverTask is one schedulable unit sent to the external solver. The id is
// synthetic (templateId + "_" + attendeeUnitId), used only to correlate
// solver output back to a template/attendee pair; it is never persisted.
type SolverTask struct {
	ID            string                        `json:"id"`
	TemplateID    string                        `json:"templateId"`
	CourseID      string                        `json:"course_id"`
	Title         string                        `json:"title"`
	DurationSlots int                           `json:"duration"`
	RoomType      string                        `json:"room_type"`
	Personnel     []models.PersonnelRequirement `json:"personnel"`
	AttendeeLevel models.AttendeeLevel          `json:"attendee_level"`
	AttendeeID    string                        `json:"attendee_id"`
}

// SolverPersonnel describes an assignable staff member.
type SolverPersonnel struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// SolverRoom describes an assignable room.
type SolverRoom struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// SolverPreference ranks an activity template for a personnel member.
// activity_id references the un-expanded template, not a task id, because
// personnel rank activities rather than attendee-unit instances.
type SolverPreference struct {
	PersonnelID string `json:"personnel_id"`
	ActivityID  string `json:"activity_id"`
	Rank        int    `json:"rank"`
}

// SolverTimePreference ranks a time of day for the whole instance.
type SolverTimePreference struct {
	Time string `json:"time"`
	Rank int    `json:"rank"`
}

// SolveRequest is the solver's input payload. The same shape is exposed for
// download so an externally run solver can substitute for the live call.
type SolveRequest struct {
	Activities           []SolverTask             `json:"activities"`
	Personnel            []SolverPersonnel        `json:"personnel"`
	Rooms                []SolverRoom             `json:"rooms"`
	Preferences          []SolverPreference       `json:"preferences"`
	TimeSlots            []int                    `json:"time_slots"`
	Days                 []string                 `json:"days"`
	RoomStickinessWeight int                      `json:"room_stickiness_weight"`
	SpacingPreference    models.SpacingPreference `json:"spacing_preference"`
	TimePreferences      []SolverTimePreference   `json:"time_preferences"`
}

// SolutionEntry is one placement in the solver's response.
type SolutionEntry struct {
	TemplateID    string               `json:"templateId"`
	RoomID        string               `json:"room_id"`
	PersonnelIDs  []string             `json:"personnel_ids"`
	AttendeeLevel models.AttendeeLevel `json:"attendee_level"`
	AttendeeID    string               `json:"attendee_id"`
	StartSlot     int                  `json:"start_slot"`
	EndSlot       int                  `json:"end_slot"`
}
