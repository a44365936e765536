package service

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/timegrid"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

// ExpandTasks fans pooled courses out into solver tasks. Every activity
// template produces one task per attendee unit: per pooled section for
// SECTION-level templates, per group of every pooled section for GROUP-level
// ones. Output order is fixed by course id, then template id, then attendee
// unit id, so the same pools always yield the same task list.
func ExpandTasks(courses []models.Course, sections []models.Section) ([]dto.SolverTask, error) {
	sortedCourses := make([]models.Course, len(courses))
	copy(sortedCourses, courses)
	sort.Slice(sortedCourses, func(i, j int) bool { return sortedCourses[i].ID < sortedCourses[j].ID })

	sortedSections := make([]models.Section, len(sections))
	copy(sortedSections, sections)
	sort.Slice(sortedSections, func(i, j int) bool { return sortedSections[i].ID < sortedSections[j].ID })

	var tasks []dto.SolverTask
	for _, course := range sortedCourses {
		templates := make([]models.ActivityTemplate, len(course.ActivityTemplates))
		copy(templates, course.ActivityTemplates)
		sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

		for _, template := range templates {
			duration, err := durationSlots(template)
			if err != nil {
				return nil, err
			}
			requirements, err := parseRequirements(template)
			if err != nil {
				return nil, err
			}

			units, err := attendeeUnits(template, sortedSections)
			if err != nil {
				return nil, err
			}
			for _, unit := range units {
				tasks = append(tasks, dto.SolverTask{
					ID:            template.ID + "_" + unit,
					TemplateID:    template.ID,
					CourseID:      course.ID,
					Title:         template.Title,
					DurationSlots: duration,
					RoomType:      template.RoomType,
					Personnel:     requirements,
					AttendeeLevel: template.AttendeeLevel,
					AttendeeID:    unit,
				})
			}
		}
	}
	return tasks, nil
}

// attendeeUnits resolves the attendee unit ids a template fans out to.
// Sections without groups contribute nothing at GROUP level.
func attendeeUnits(template models.ActivityTemplate, sections []models.Section) ([]string, error) {
	switch template.AttendeeLevel {
	case models.AttendeeLevelSection:
		units := make([]string, 0, len(sections))
		for _, section := range sections {
			units = append(units, section.ID)
		}
		return units, nil
	case models.AttendeeLevelGroup:
		var units []string
		for _, section := range sections {
			groups := make([]models.Group, len(section.Groups))
			copy(groups, section.Groups)
			sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
			for _, group := range groups {
				units = append(units, group.ID)
			}
		}
		return units, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("activity template %s has unknown attendee level %q", template.ID, template.AttendeeLevel))
	}
}

// durationSlots converts template minutes into whole slots, rounding up so a
// 45 minute activity still occupies a full hour of grid.
func durationSlots(template models.ActivityTemplate) (int, error) {
	if template.DurationMinutes <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("activity template %s has non-positive duration", template.ID))
	}
	return (template.DurationMinutes + timegrid.SlotMinutes - 1) / timegrid.SlotMinutes, nil
}

func parseRequirements(template models.ActivityTemplate) ([]models.PersonnelRequirement, error) {
	if len(template.Requirements) == 0 {
		return []models.PersonnelRequirement{}, nil
	}
	var requirements []models.PersonnelRequirement
	if err := json.Unmarshal(template.Requirements, &requirements); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("malformed requirements on activity template %s", template.ID))
	}
	if requirements == nil {
		requirements = []models.PersonnelRequirement{}
	}
	return requirements, nil
}
