package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// taskFunc runs one task and returns the number of items it handled.
type taskFunc func(ctx context.Context) (int, error)

// Scheduler runs the background embedding and analysis tasks on cron schedules.
// A task never overlaps with itself; a tick that fires while the previous run
// is still busy is skipped.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	index    driving.IndexService
	analysis driving.AnalysisService
	staleAge time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler with configuration.
// Either service may be nil, in which case its task does nothing.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	index driving.IndexService,
	analysis driving.AnalysisService,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		index:    index,
		analysis: analysis,
		staleAge: DefaultStaleAge,
	}
}

// SetStaleAge sets how long an entry must stay unchanged before embed-stale
// picks it up.
func (s *Scheduler) SetStaleAge(d time.Duration) {
	s.staleAge = d
}

// Start registers the enabled tasks and blocks until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		logger.Info("Scheduler disabled")
		return nil
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))

	for _, id := range []string{domain.TaskIDEmbedStale, domain.TaskIDProcessQueue} {
		cfg := s.config.GetTaskConfig(id)
		if !cfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, id, cfg); err != nil {
			logger.Warn("scheduler: failed to initialise task %s: %v", id, err)
		}
		taskID := id
		if _, err := c.AddFunc(cfg.Schedule, func() {
			if _, err := s.RunTask(ctx, taskID); err != nil {
				logger.Warn("scheduler: task %s failed: %v", taskID, err)
			}
		}); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("schedule %s (%q): %w", taskID, cfg.Schedule, err)
		}
		logger.Info("Scheduled %s on %q", taskID, cfg.Schedule)
	}

	s.cron = c
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	c.Start()

	select {
	case <-ctx.Done():
		_ = s.Stop()
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop halts the schedule and waits for running tasks to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	return nil
}

// RunTask executes one task immediately and records its result.
func (s *Scheduler) RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	var run taskFunc
	switch taskID {
	case domain.TaskIDEmbedStale:
		run = s.runEmbedStale
	case domain.TaskIDProcessQueue:
		run = s.runProcessQueue
	default:
		return nil, fmt.Errorf("unknown task %q: %w", taskID, domain.ErrInvalidInput)
	}

	result := &domain.TaskResult{
		TaskID:    taskID,
		StartedAt: time.Now(),
	}

	items, err := run(ctx)
	result.ItemsProcessed = items
	result.EndedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
	}

	s.recordRun(ctx, taskID, result)
	return result, err
}

// recordRun updates task state and history. Failures are logged only.
func (s *Scheduler) recordRun(ctx context.Context, taskID string, result *domain.TaskResult) {
	if s.store == nil {
		return
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		logger.Warn("scheduler: failed to load task %s: %v", taskID, err)
	}
	if task == nil {
		task = s.newTask(taskID, s.config.GetTaskConfig(taskID))
	}

	task.LastRun = result.StartedAt
	if result.Success {
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	} else {
		task.LastError = result.Error
	}
	task.NextRun = s.nextRun(task.Schedule, result.EndedAt)

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", taskID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", taskID, err)
	}

	keep := s.config.HistoryLimit
	if keep <= 0 {
		keep = domain.DefaultSchedulerConfig().HistoryLimit
	}
	if err := s.store.PruneHistory(ctx, keep); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id string, cfg domain.TaskConfig) error {
	if s.store == nil {
		return nil
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = s.newTask(id, cfg)
	} else {
		if task.Schedule != cfg.Schedule {
			task.Schedule = cfg.Schedule
			task.NextRun = s.nextRun(cfg.Schedule, time.Now())
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) newTask(id string, cfg domain.TaskConfig) *domain.ScheduledTask {
	name := domain.TaskNames()[id]
	if name == "" {
		name = id
	}
	return &domain.ScheduledTask{
		ID:       id,
		Name:     name,
		Schedule: cfg.Schedule,
		Enabled:  cfg.Enabled,
		NextRun:  s.nextRun(cfg.Schedule, time.Now()),
	}
}

// nextRun returns the next activation after from, or the zero time for an
// unparseable schedule.
func (s *Scheduler) nextRun(spec string, from time.Time) time.Time {
	if spec == "" {
		return time.Time{}
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(from)
}

// runEmbedStale embeds entries that have not changed for the stale age.
func (s *Scheduler) runEmbedStale(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	report, err := s.index.EmbedStale(ctx, s.staleAge)
	if err != nil {
		return 0, err
	}
	if report.Failed > 0 {
		logger.Warn("embed-stale: %d entries failed", report.Failed)
	}
	return report.Success, nil
}

// runProcessQueue enqueues unanalysed entries and drains the analysis queue.
func (s *Scheduler) runProcessQueue(ctx context.Context) (int, error) {
	if s.analysis == nil {
		return 0, nil
	}
	if _, err := s.analysis.QueueAll(ctx); err != nil {
		return 0, fmt.Errorf("queueing entries: %w", err)
	}
	result, err := s.analysis.Process(ctx, nil)
	if err != nil {
		return 0, err
	}
	return result.Success, nil
}

// cronLogger routes cron's internal logging to the verbose logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error(err, "cron: %s %v", msg, keysAndValues)
}
