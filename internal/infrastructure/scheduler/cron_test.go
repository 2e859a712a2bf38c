package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronSpec(t *testing.T) {
	spec, err := ParseCronSpec("30 8 * * *")
	require.NoError(t, err)

	assert.True(t, spec.Matches(time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 3, 2, 8, 31, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)))
}

func TestParseCronSpec_StepsRangesLists(t *testing.T) {
	spec, err := ParseCronSpec("*/15 9-17 * * 1,3,5")
	require.NoError(t, err)

	// Monday 09:45 matches; Sunday and off-step minutes do not.
	assert.True(t, spec.Matches(time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 3, 1, 9, 45, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 3, 2, 9, 50, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)))
}

func TestParseCronSpec_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"*/0 * * * *",
		"5-1 * * * *",
	} {
		_, err := ParseCronSpec(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestCronSpec_Next(t *testing.T) {
	spec, err := ParseCronSpec("0 8 * * *")
	require.NoError(t, err)

	// Before today's fire time.
	next := spec.Next(time.Date(2026, 3, 2, 6, 15, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), next)

	// Exactly at the fire time rolls to tomorrow.
	next = spec.Next(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), next)
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(15*time.Minute), s.Next(now))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestScheduler_RegisterRejectsDuplicates(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &noopJob{name: "sweep"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyRegistered)

	statuses := s.Jobs()
	require.Len(t, statuses, 1)
	assert.Equal(t, "sweep", statuses[0].Name)
	assert.Equal(t, "@every 1m0s", statuses[0].Schedule)
}

type noopJob struct{ name string }

func (j *noopJob) Name() string                { return j.name }
func (j *noopJob) Run(_ context.Context) error { return nil }
func (j *noopJob) Description() string         { return "does nothing" }
