// Package scheduler runs the periodic background jobs of College Hub: the
// overdue loan sweep on a fixed interval and the daily reminder digest on a
// cron expression.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOBS AND SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of background work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler
	// stops.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule decides when a job runs next.
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	interval time.Duration
}

// NewIntervalSchedule creates a fixed-interval schedule.
func NewIntervalSchedule(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{interval: interval}
}

// Next returns the next run time.
func (s IntervalSchedule) Next(after time.Time) time.Time {
	return after.Add(s.interval)
}

func (s IntervalSchedule) String() string {
	return "@every " + s.interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrJobAlreadyRegistered = errors.New("scheduler: job already registered")
	ErrJobNotFound          = errors.New("scheduler: job not found")
	ErrAlreadyRunning       = errors.New("scheduler: already running")
	ErrNotRunning           = errors.New("scheduler: not running")
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for schedule calculations.
	Timezone *time.Location

	// TickInterval is how often due jobs are checked.
	TickInterval time.Duration
}

// DefaultSchedulerConfig returns the defaults: UTC, one-second ticks.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:       slog.Default(),
		Timezone:     time.UTC,
		TickInterval: time.Second,
	}
}

type registration struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	lastRun  time.Time
	runs     int64
	failures int64
}

// Scheduler runs registered jobs on their schedules. Each due job runs in its
// own goroutine; Stop waits for in-flight runs to finish.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*registration
	logger   *slog.Logger
	location *time.Location
	tick     time.Duration

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Scheduler{
		jobs:     make(map[string]*registration),
		logger:   cfg.Logger,
		location: cfg.Timezone,
		tick:     cfg.TickInterval,
	}
}

// Register adds a job. The first run happens one schedule step after
// registration, not immediately.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil || schedule == nil {
		return errors.New("scheduler: job and schedule are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}

	now := time.Now().In(s.location)
	s.jobs[name] = &registration{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(now),
	}

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
	)
	return nil
}

// Unregister removes a job by name.
func (s *Scheduler) Unregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	delete(s.jobs, name)
	return nil
}

// Start launches the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.logger.Info("scheduler started", "jobs", len(s.jobs))

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the loop and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := time.Now().In(s.location)

	s.mu.Lock()
	var due []*registration
	for _, reg := range s.jobs {
		if !reg.nextRun.After(now) {
			// Advance the schedule before running so a slow job cannot
			// pile up overlapping runs of itself.
			reg.lastRun = now
			reg.nextRun = reg.schedule.Next(now)
			reg.runs++
			due = append(due, reg)
		}
	}
	s.mu.Unlock()

	for _, reg := range due {
		s.wg.Add(1)
		go func(reg *registration) {
			defer s.wg.Done()
			s.execute(ctx, reg)
		}(reg)
	}
}

func (s *Scheduler) execute(ctx context.Context, reg *registration) {
	name := reg.job.Name()
	started := time.Now()

	if err := reg.job.Run(ctx); err != nil {
		s.mu.Lock()
		reg.failures++
		s.mu.Unlock()

		s.logger.Error("job failed",
			"job", name,
			"duration", time.Since(started).String(),
			"error", err,
		)
		return
	}

	s.logger.Info("job completed",
		"job", name,
		"duration", time.Since(started).String(),
	)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	reg, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manual job run", "job", name)
	s.execute(ctx, reg)
	return nil
}

// JobStatus describes one registered job.
type JobStatus struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	Runs        int64
	Failures    int64
}

// Jobs returns the status of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, reg := range s.jobs {
		statuses = append(statuses, JobStatus{
			Name:        name,
			Description: reg.job.Description(),
			Schedule:    reg.schedule.String(),
			LastRun:     reg.lastRun,
			NextRun:     reg.nextRun,
			Runs:        reg.runs,
			Failures:    reg.failures,
		})
	}
	return statuses
}
