package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysPast(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, CampusTZ)

	assert.Equal(t, 0, DaysPast(due, due))
	assert.Equal(t, 0, DaysPast(due, due.Add(-time.Hour)))

	// Any fraction of a day counts as a whole day.
	assert.Equal(t, 1, DaysPast(due, due.Add(time.Second)))
	assert.Equal(t, 1, DaysPast(due, due.Add(24*time.Hour)))
	assert.Equal(t, 2, DaysPast(due, due.Add(24*time.Hour+time.Minute)))
	assert.Equal(t, 4, DaysPast(due, due.Add(3*24*time.Hour+time.Hour)))
}

func TestStartAndEndOfDay(t *testing.T) {
	// 20:00 UTC is already the next day on campus (UTC+5:30).
	utcEvening := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	start := StartOfDay(utcEvening)
	assert.Equal(t, 11, start.Day())
	assert.Equal(t, 0, start.Hour())

	end := EndOfDay(utcEvening)
	assert.Equal(t, 11, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.After(start))
}

func TestManualClock(t *testing.T) {
	base := Date(2026, 3, 10)
	clock := NewManualClock(base)

	assert.Equal(t, base, clock.Now())

	clock.Advance(36 * time.Hour)
	assert.Equal(t, base.Add(36*time.Hour), clock.Now())

	clock.Set(base)
	assert.Equal(t, base, clock.Now())
}
