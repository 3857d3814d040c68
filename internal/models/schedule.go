package models

import (
	"fmt"
	"time"
)

// SlotToBeConfirmed stands in for a slot when no schedule could be obtained
const SlotToBeConfirmed = "Por confirmar"

// Day is a calendar date without a time component
type Day struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// ParseDay parses YYYY-MM-DD
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}

// DayOf truncates t to its calendar day
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// String renders YYYY-MM-DD
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// ScheduleSlot is a bookable time label for one location and day
type ScheduleSlot struct {
	Label    string `json:"label"`
	Location string `json:"location"`
	Day      Day    `json:"day"`
}

// ToBeConfirmed reports whether the slot is the placeholder for an unconfigured schedule
func (s ScheduleSlot) ToBeConfirmed() bool {
	return s.Label == SlotToBeConfirmed
}
