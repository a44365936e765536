package models

import "fmt"

// AttendeeLevel governs task fan-out for an activity template.
type AttendeeLevel string

const (
	AttendeeLevelSection AttendeeLevel = "SECTION"
	AttendeeLevelGroup   AttendeeLevel = "GROUP"
)

// Valid reports whether the level is a known fan-out mode.
func (l AttendeeLevel) Valid() bool {
	return l == AttendeeLevelSection || l == AttendeeLevelGroup
}

// AttendeeScope is a tagged reference to the unit an activity is held for:
// exactly one of section or group, decided by Level. Downstream code switches
// on the tag instead of comparing raw strings.
type AttendeeScope struct {
	Level     AttendeeLevel
	SectionID string
	GroupID   string
}

// SectionScope builds a section-level attendee reference.
func SectionScope(sectionID string) AttendeeScope {
	return AttendeeScope{Level: AttendeeLevelSection, SectionID: sectionID}
}

// GroupScope builds a group-level attendee reference.
func GroupScope(groupID string) AttendeeScope {
	return AttendeeScope{Level: AttendeeLevelGroup, GroupID: groupID}
}

// ParseAttendeeScope reconstructs a scope from its wire representation.
func ParseAttendeeScope(level AttendeeLevel, unitID string) (AttendeeScope, error) {
	if unitID == "" {
		return AttendeeScope{}, fmt.Errorf("attendee id is required")
	}
	switch level {
	case AttendeeLevelSection:
		return SectionScope(unitID), nil
	case AttendeeLevelGroup:
		return GroupScope(unitID), nil
	default:
		return AttendeeScope{}, fmt.Errorf("unknown attendee level %q", level)
	}
}

// UnitID returns the id of the referenced unit regardless of level.
func (a AttendeeScope) UnitID() string {
	if a.Level == AttendeeLevelGroup {
		return a.GroupID
	}
	return a.SectionID
}

// Validate enforces the mutual-exclusion invariant.
func (a AttendeeScope) Validate() error {
	switch a.Level {
	case AttendeeLevelSection:
		if a.SectionID == "" || a.GroupID != "" {
			return fmt.Errorf("section scope must set exactly sectionId")
		}
	case AttendeeLevelGroup:
		if a.GroupID == "" || a.SectionID != "" {
			return fmt.Errorf("group scope must set exactly groupId")
		}
	default:
		return fmt.Errorf("unknown attendee level %q", a.Level)
	}
	return nil
}
