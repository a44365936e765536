// Package timegrid defines the canonical 30-minute discretization of the week
// shared by the availability resolver, the solver bridge and the solution
// committer. A day holds 48 slots; a global slot index additionally encodes
// the day so the solver reasons about one flat integer timeline.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotsPerDay is the number of 30-minute slots in a day.
const SlotsPerDay = 48

// SlotMinutes is the length of one slot.
const SlotMinutes = 30

// Weekdays lists the canonical week ordering; a day's position in this slice
// is its day index.
var Weekdays = []string{
	"MONDAY",
	"TUESDAY",
	"WEDNESDAY",
	"THURSDAY",
	"FRIDAY",
	"SATURDAY",
	"SUNDAY",
}

var weekdayIndex = func() map[string]int {
	m := make(map[string]int, len(Weekdays))
	for i, day := range Weekdays {
		m[day] = i
	}
	return m
}()

// DayIndex returns a day's fixed position in the canonical week, or an error
// for an unknown name. Matching is case-insensitive.
func DayIndex(day string) (int, error) {
	idx, ok := weekdayIndex[strings.ToUpper(strings.TrimSpace(day))]
	if !ok {
		return 0, fmt.Errorf("unknown day of week %q", day)
	}
	return idx, nil
}

// CanonicalDay maps any accepted spelling of a weekday onto the canonical
// uppercase name. Stored and queried day names must go through this so that
// case-insensitive input never leaks into equality comparisons or SQL filters.
func CanonicalDay(day string) (string, error) {
	idx, err := DayIndex(day)
	if err != nil {
		return "", err
	}
	return Weekdays[idx], nil
}

// DayName returns the canonical name for a day index in [0,7).
func DayName(index int) (string, error) {
	if index < 0 || index >= len(Weekdays) {
		return "", fmt.Errorf("day index %d out of range", index)
	}
	return Weekdays[index], nil
}

// TimeToSlot maps an "HH:MM" time of day to its half-hour slot index in
// [0,48). Times off the 30-minute boundary are rejected, never rounded.
func TimeToSlot(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	if minutes%SlotMinutes != 0 {
		return 0, fmt.Errorf("time %q is not on a %d-minute boundary", value, SlotMinutes)
	}
	return hours*2 + minutes/SlotMinutes, nil
}

// EndTimeToSlot maps an exclusive interval end to a slot index in (0,48].
// "24:00" is a valid end bound even though it is not a valid start.
func EndTimeToSlot(value string) (int, error) {
	if strings.TrimSpace(value) == "24:00" {
		return SlotsPerDay, nil
	}
	return TimeToSlot(value)
}

// SlotToTime is the exact inverse of TimeToSlot for slot in [0,48). Callers
// normalize before calling; out-of-range input is a programming error.
func SlotToTime(slot int) string {
	hours := slot / 2
	minutes := (slot % 2) * SlotMinutes
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// GlobalSlot flattens a (day index, in-day slot) pair onto the weekly timeline.
func GlobalSlot(dayIndex, slot int) int {
	return dayIndex*SlotsPerDay + slot
}

// SplitGlobalSlot decodes a global slot back into (day index, in-day slot).
func SplitGlobalSlot(global int) (dayIndex, slot int) {
	return global / SlotsPerDay, global % SlotsPerDay
}
