package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULER
// Five-field cron expressions (minute hour day month weekday) for jobs that
// must fire at a wall-clock time, like the morning reminder digest. Interval
// jobs belong on the Scheduler instead.
// ══════════════════════════════════════════════════════════════════════════════

// CronSpec is a parsed five-field cron expression.
type CronSpec struct {
	raw      string
	minutes  map[int]bool
	hours    map[int]bool
	days     map[int]bool
	months   map[int]bool
	weekdays map[int]bool
}

// ParseCronSpec parses "minute hour day month weekday". Each field accepts
// "*", a value, a list "a,b,c", a range "a-b", and a step "*/n" or "a-b/n".
func ParseCronSpec(expr string) (*CronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d in %q", len(fields), expr)
	}

	spec := &CronSpec{raw: expr}
	bounds := []struct {
		dst      *map[int]bool
		min, max int
		name     string
	}{
		{&spec.minutes, 0, 59, "minute"},
		{&spec.hours, 0, 23, "hour"},
		{&spec.days, 1, 31, "day"},
		{&spec.months, 1, 12, "month"},
		{&spec.weekdays, 0, 6, "weekday"},
	}

	for i, b := range bounds {
		set, err := parseCronField(fields[i], b.min, b.max)
		if err != nil {
			return nil, fmt.Errorf("cron: bad %s field: %w", b.name, err)
		}
		*b.dst = set
	}
	return spec, nil
}

func parseCronField(field string, min, max int) (map[int]bool, error) {
	set := make(map[int]bool)

	for _, part := range strings.Split(field, ",") {
		span, stepStr, hasStep := strings.Cut(part, "/")
		step := 1
		if hasStep {
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("bad step %q", stepStr)
			}
			step = n
		}

		lo, hi := min, max
		switch {
		case span == "*":
		case strings.Contains(span, "-"):
			loStr, hiStr, _ := strings.Cut(span, "-")
			var err error
			if lo, err = strconv.Atoi(loStr); err != nil {
				return nil, fmt.Errorf("bad range %q", span)
			}
			if hi, err = strconv.Atoi(hiStr); err != nil {
				return nil, fmt.Errorf("bad range %q", span)
			}
		default:
			v, err := strconv.Atoi(span)
			if err != nil {
				return nil, fmt.Errorf("bad value %q", span)
			}
			lo, hi = v, v
			if hasStep {
				hi = max
			}
		}

		if lo < min || hi > max || lo > hi {
			return nil, fmt.Errorf("value out of range [%d-%d] in %q", min, max, part)
		}
		for v := lo; v <= hi; v += step {
			set[v] = true
		}
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("empty field %q", field)
	}
	return set, nil
}

// String returns the original expression.
func (s *CronSpec) String() string { return s.raw }

// Matches reports whether the expression fires at the given minute.
func (s *CronSpec) Matches(t time.Time) bool {
	return s.minutes[t.Minute()] &&
		s.hours[t.Hour()] &&
		s.days[t.Day()] &&
		s.months[int(t.Month())] &&
		s.weekdays[int(t.Weekday())]
}

// Next returns the first matching minute after t. The scan is bounded to one
// year, which every valid spec fires within.
func (s *CronSpec) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(1, 0, 1)

	for t.Before(limit) {
		if s.Matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

type cronEntry struct {
	spec    *CronSpec
	job     Job
	nextRun time.Time
	runs    int64
}

// CronScheduler fires jobs at wall-clock times in a configured location.
type CronScheduler struct {
	mu       sync.Mutex
	entries  map[string]*cronEntry
	logger   *slog.Logger
	location *time.Location

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// CronOption configures a CronScheduler.
type CronOption func(*CronScheduler)

// WithLocation sets the timezone cron expressions are evaluated in.
func WithLocation(loc *time.Location) CronOption {
	return func(cs *CronScheduler) { cs.location = loc }
}

// WithCronLogger sets the logger.
func WithCronLogger(logger *slog.Logger) CronOption {
	return func(cs *CronScheduler) { cs.logger = logger }
}

// NewCronScheduler creates a CronScheduler. Defaults: local time, the default
// logger.
func NewCronScheduler(opts ...CronOption) *CronScheduler {
	cs := &CronScheduler{
		entries:  make(map[string]*cronEntry),
		logger:   slog.Default(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// AddJob registers a job under a cron expression.
func (cs *CronScheduler) AddJob(name, expr string, job Job) error {
	spec, err := ParseCronSpec(expr)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}

	entry := &cronEntry{
		spec:    spec,
		job:     job,
		nextRun: spec.Next(time.Now().In(cs.location)),
	}
	cs.entries[name] = entry

	cs.logger.Info("cron job added",
		"job", name,
		"expression", expr,
		"next_run", entry.nextRun.Format(time.RFC3339),
	)
	return nil
}

// Start launches the minute loop.
func (cs *CronScheduler) Start(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.running {
		return ErrAlreadyRunning
	}
	cs.running = true
	cs.stopCh = make(chan struct{})

	cs.logger.Info("cron scheduler started", "timezone", cs.location.String())

	cs.wg.Add(1)
	go cs.loop(ctx)
	return nil
}

// Stop halts the loop and waits for running jobs.
func (cs *CronScheduler) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	close(cs.stopCh)
	cs.mu.Unlock()

	cs.wg.Wait()
	cs.logger.Info("cron scheduler stopped")
}

func (cs *CronScheduler) loop(ctx context.Context) {
	defer cs.wg.Done()

	// Wake at the top of each minute so jobs fire on the minute they name.
	timer := time.NewTimer(cs.untilNextMinute())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.stopCh:
			return
		case <-timer.C:
			timer.Reset(cs.untilNextMinute())
			cs.fireDue(ctx)
		}
	}
}

func (cs *CronScheduler) untilNextMinute() time.Duration {
	now := time.Now().In(cs.location)
	return time.Until(now.Truncate(time.Minute).Add(time.Minute))
}

func (cs *CronScheduler) fireDue(ctx context.Context) {
	now := time.Now().In(cs.location)

	cs.mu.Lock()
	var due []*cronEntry
	var names []string
	for name, entry := range cs.entries {
		if !entry.nextRun.After(now) {
			entry.nextRun = entry.spec.Next(now)
			entry.runs++
			due = append(due, entry)
			names = append(names, name)
		}
	}
	cs.mu.Unlock()

	for i, entry := range due {
		name := names[i]
		cs.wg.Add(1)
		go func(entry *cronEntry) {
			defer cs.wg.Done()

			started := time.Now()
			if err := entry.job.Run(ctx); err != nil {
				cs.logger.Error("cron job failed",
					"job", name,
					"duration", time.Since(started).String(),
					"error", err,
				)
				return
			}
			cs.logger.Info("cron job completed",
				"job", name,
				"duration", time.Since(started).String(),
			)
		}(entry)
	}
}
