package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/device-agent/internal/model"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.June, 10, hour, minute, 30, 0, time.UTC)
}

func TestUntilNextBeforeTarget(t *testing.T) {
	s := model.Schedule{Type: model.RecurrenceDaily, Time: "08:00"}

	d, err := s.UntilNext(at(7, 0))
	require.NoError(t, err)
	require.Equal(t, time.Hour, d)
}

func TestUntilNextAfterTargetWrapsByRecurrence(t *testing.T) {
	cases := []struct {
		rec  model.Recurrence
		want time.Duration
	}{
		{model.RecurrenceDaily, 82800 * time.Second},
		{model.RecurrenceWeekly, 601200 * time.Second},
		{model.RecurrenceMonthly, 2588400 * time.Second},
	}
	for _, c := range cases {
		s := model.Schedule{Type: c.rec, Time: "08:00"}
		d, err := s.UntilNext(at(9, 0))
		require.NoError(t, err)
		require.Equal(t, c.want, d, "recurrence %s", c.rec)
	}
}

func TestUntilNextExactMinuteIsZero(t *testing.T) {
	s := model.Schedule{Type: model.RecurrenceDaily, Time: "08:00"}
	d, err := s.UntilNext(at(8, 0))
	require.NoError(t, err)
	require.Zero(t, d)
}

func TestUntilNextIgnoresSeconds(t *testing.T) {
	// Arithmetic is minute-granular: now=07:59:30 still waits a full minute.
	s := model.Schedule{Type: model.RecurrenceDaily, Time: "08:00"}
	d, err := s.UntilNext(at(7, 59))
	require.NoError(t, err)
	require.Equal(t, time.Minute, d)
}

func TestValidate(t *testing.T) {
	require.NoError(t, model.Schedule{Type: model.RecurrenceWeekly, Time: "23:59"}.Validate())

	bad := []model.Schedule{
		{Type: "HOURLY", Time: "08:00"},
		{Type: model.RecurrenceDaily, Time: "8am"},
		{Type: model.RecurrenceDaily, Time: "24:00"},
		{Type: model.RecurrenceDaily, Time: "12:60"},
		{Type: model.RecurrenceDaily, Time: ""},
	}
	for _, s := range bad {
		require.Error(t, s.Validate(), "schedule %+v", s)
	}
}

func TestZeroScheduleSentinel(t *testing.T) {
	require.True(t, model.Schedule{}.IsZero())
	require.False(t, model.DefaultAutomaticSchedule().IsZero())
}

func TestDefaultAutomaticSchedule(t *testing.T) {
	s := model.DefaultAutomaticSchedule()
	require.Equal(t, model.RecurrenceDaily, s.Type)
	require.Equal(t, "08:00", s.Time)
	require.Equal(t, 5*time.Second, s.Duration())
}
