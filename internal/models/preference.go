package models

import "time"

// PersonnelPreference ranks an activity template for a personnel member within
// a schedule instance. Rank is a positive integer; uniqueness holds per
// (personnel, instance, template).
type PersonnelPreference struct {
	ID                 string    `db:"id" json:"id"`
	PersonnelID        string    `db:"personnel_id" json:"personnel_id"`
	ScheduleInstanceID string    `db:"schedule_instance_id" json:"schedule_instance_id"`
	ActivityTemplateID string    `db:"activity_template_id" json:"activity_template_id"`
	Rank               int       `db:"rank" json:"rank"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
