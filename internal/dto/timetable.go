package dto

import "github.com/campusplan/timetable-api/internal/models"

// FreeResourcesQuery asks which rooms and personnel are uncommitted in a
// half-open [start, end) window on a day. Occupancy is global across all
// schedule instances.
type FreeResourcesQuery struct {
	DayOfWeek string `form:"day" json:"day" validate:"required"`
	StartTime string `form:"start" json:"start" validate:"required"`
	EndTime   string `form:"end" json:"end" validate:"required"`
}

// FreeResourcesResponse lists resources not committed to any overlapping event.
type FreeResourcesResponse struct {
	Rooms     []models.Room      `json:"rooms"`
	Personnel []models.Personnel `json:"personnel"`
}

// AssignmentPatch updates a single event's room and/or personnel. Nullable
// fields distinguish "not provided" from "set to null"; null clears the
// assignment, absent leaves it untouched.
type AssignmentPatch struct {
	RoomID       NullableString     `json:"roomId"`
	PersonnelIDs NullableStringList `json:"personnelIds"`
}

// TimetableQuery filters events for timetable views.
type TimetableQuery struct {
	ScheduleInstanceID string `form:"instanceId" json:"instanceId"`
	DayOfWeek          string `form:"day" json:"day"`
	SectionID          string `form:"sectionId" json:"sectionId"`
	GroupID            string `form:"groupId" json:"groupId"`
	RoomID             string `form:"roomId" json:"roomId"`
	PersonnelID        string `form:"personnelId" json:"personnelId"`
}
