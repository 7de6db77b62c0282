package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence is how often a schedule fires.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
)

// Recurrence periods in seconds. MONTHLY is a fixed 30-day approximation,
// not calendar-accurate.
const (
	PeriodDaily   = 86400
	PeriodWeekly  = 604800
	PeriodMonthly = 2592000
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

func (r Recurrence) PeriodSeconds() int {
	switch r {
	case RecurrenceWeekly:
		return PeriodWeekly
	case RecurrenceMonthly:
		return PeriodMonthly
	default:
		return PeriodDaily
	}
}

// Schedule describes when and for how long to irrigate. The zero value is
// the "no schedule configured" sentinel used by Manual mode.
type Schedule struct {
	Type            Recurrence `json:"type"`
	Time            string     `json:"time"` // "HH:MM"
	DurationSeconds int        `json:"duration,omitempty"`
}

// DefaultAutomaticSchedule is installed when switching to Automatic mode.
func DefaultAutomaticSchedule() Schedule {
	return Schedule{Type: RecurrenceDaily, Time: "08:00", DurationSeconds: 5}
}

func (s Schedule) IsZero() bool {
	return s.Type == "" && s.Time == ""
}

// Clock parses the "HH:MM" time-of-day.
func (s Schedule) Clock() (hour, minute int, err error) {
	parts := strings.SplitN(s.Time, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time %q", s.Time)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour in %q", s.Time)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute in %q", s.Time)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", s.Time)
	}
	return hour, minute, nil
}

// Validate reports whether the schedule is usable for waiting.
func (s Schedule) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("bad recurrence %q", s.Type)
	}
	_, _, err := s.Clock()
	return err
}

// UntilNext computes the wait to the next occurrence. Arithmetic is at
// minute granularity: target-seconds-of-day minus now-seconds-of-day, plus
// one recurrence period when the target already passed today.
func (s Schedule) UntilNext(now time.Time) (time.Duration, error) {
	hour, minute, err := s.Clock()
	if err != nil {
		return 0, err
	}
	target := hour*3600 + minute*60
	current := now.Hour()*3600 + now.Minute()*60
	diff := target - current
	if diff < 0 {
		diff += s.Type.PeriodSeconds()
	}
	return time.Duration(diff) * time.Second, nil
}

// Duration is DurationSeconds as a time.Duration.
func (s Schedule) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}
