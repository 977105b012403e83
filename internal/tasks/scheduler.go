package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a named piece of periodic maintenance work. Run is invoked in
// the scheduler's goroutine; a slow task delays its own next run, not
// other tasks' schedules.
type Task struct {
	ID       string
	Schedule Schedule
	Run      func(ctx context.Context) error

	// Timeout bounds a single run. Zero means no per-run timeout.
	Timeout time.Duration
}

// Schedule defines when a task should run.
type Schedule interface {
	// Next returns the next execution time after the given time.
	Next(t time.Time) time.Time
}

// IntervalSchedule runs a task at fixed intervals.
type IntervalSchedule struct {
	Interval time.Duration
}

func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// DailySchedule runs a task at a specific time each day.
type DailySchedule struct {
	Hour   int
	Minute int
}

func (s *DailySchedule) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, s.Minute, 0, 0, t.Location())
	if next.Before(t) || next.Equal(t) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Every creates an interval schedule.
func Every(interval time.Duration) Schedule {
	return &IntervalSchedule{Interval: interval}
}

// Daily creates a daily schedule.
func Daily(hour, minute int) Schedule {
	return &DailySchedule{Hour: hour, Minute: minute}
}

// Scheduler runs registered tasks on their schedules. All tasks execute
// in a single goroutine, which keeps the maintenance work from competing
// with request traffic.
type Scheduler struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	nextRuns map[string]time.Time

	tick   time.Duration
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewScheduler creates a task scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:    make(map[string]*Task),
		nextRuns: make(map[string]time.Time),
		tick:     time.Second,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Register adds a task. Registering an ID twice replaces the earlier task.
func (s *Scheduler) Register(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task
	s.nextRuns[task.ID] = task.Schedule.Next(time.Now())

	s.logger.Info("task registered",
		"id", task.ID,
		"next_run", s.nextRuns[task.ID].Format(time.RFC3339),
	)
}

// NextRun returns the next run time for a task.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nextRun, ok := s.nextRuns[id]
	return nextRun, ok
}

// Start starts the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("task scheduler started", "tasks", len(s.tasks))
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("task scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.tickOnce(ctx, now)
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context, now time.Time) {
	s.mu.RLock()
	due := make([]*Task, 0)
	for id, nextRun := range s.nextRuns {
		if task, ok := s.tasks[id]; ok && now.After(nextRun) {
			due = append(due, task)
		}
	}
	s.mu.RUnlock()

	for _, task := range due {
		s.execute(ctx, task)
	}
}

func (s *Scheduler) execute(ctx context.Context, task *Task) {
	start := time.Now()

	if err := s.runOne(ctx, task); err != nil {
		s.logger.Error("task failed",
			"id", task.ID,
			"duration", time.Since(start).String(),
			"error", err,
		)
	} else {
		s.logger.Debug("task completed",
			"id", task.ID,
			"duration", time.Since(start).String(),
		)
	}

	s.mu.Lock()
	s.nextRuns[task.ID] = task.Schedule.Next(time.Now())
	s.mu.Unlock()
}

func (s *Scheduler) runOne(ctx context.Context, task *Task) (err error) {
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	// A panicking task must not take the scheduler loop down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\n%s", r, debug.Stack())
		}
	}()

	return task.Run(ctx)
}
