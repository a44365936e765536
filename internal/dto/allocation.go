package dto

import "github.com/campusplan/timetable-api/internal/models"

// AllocationResult summarises a committed solve.
type AllocationResult struct {
	ScheduleInstanceID string                `json:"schedule_instance_id"`
	Status             models.InstanceStatus `json:"status"`
	TaskCount          int                   `json:"task_count"`
	EventCount         int                   `json:"event_count"`
}

// PreferenceUpsertRequest records a ranked activity preference.
type PreferenceUpsertRequest struct {
	PersonnelID        string `json:"personnelId" validate:"required"`
	ActivityTemplateID string `json:"activityTemplateId" validate:"required"`
	Rank               int    `json:"rank" validate:"required,min=1"`
}
