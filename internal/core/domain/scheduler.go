package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Schedule is the cron spec the task runs on (e.g. "@every 1m").
	Schedule string

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled (entries embedded or analysed).
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// HistoryLimit is the number of results kept per task.
	HistoryLimit int

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Schedule is a robfig/cron spec such as "@every 5m" or "*/10 * * * *".
	Schedule string
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		HistoryLimit: 50,
		TaskConfigs: map[string]TaskConfig{
			TaskIDEmbedStale: {
				Enabled:  true,
				Schedule: "@every 1m",
			},
			TaskIDProcessQueue: {
				Enabled:  true,
				Schedule: "@every 5m",
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDEmbedStale   = "embed-stale"
	TaskIDProcessQueue = "process-queue"
)

// TaskNames maps built-in task IDs to display names.
func TaskNames() map[string]string {
	return map[string]string{
		TaskIDEmbedStale:   "Embed Stale Entries",
		TaskIDProcessQueue: "Process Analysis Queue",
	}
}
