package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background embedding and analysis",
	Long: `Runs the scheduler in the foreground until interrupted.

The embed-stale task re-embeds entries edited since they were indexed and the
process-queue task drains the analysis queue. Schedules are read from the
[scheduler] section of the config file.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var workerRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Run one scheduled task now",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkerTask,
}

var workerTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List scheduled tasks",
	Args:  cobra.NoArgs,
	RunE:  runWorkerTasks,
}

func init() {
	workerCmd.AddCommand(workerRunCmd)
	workerCmd.AddCommand(workerTasksCmd)
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	cmd.Println("Worker started. Press Ctrl+C to stop.")
	err := scheduler.Start(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	cmd.Println("Worker stopped.")
	return nil
}

func runWorkerTask(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	result, err := scheduler.RunTask(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("task %s failed: %w", args[0], err)
	}
	cmd.Printf("Task %s processed %d items in %s\n",
		result.TaskID, result.ItemsProcessed, result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return nil
}

func runWorkerTasks(cmd *cobra.Command, _ []string) error {
	var cfg domain.SchedulerConfig
	if settingsService != nil {
		cfg = settingsService.GetSchedulerConfig()
	} else {
		cfg = domain.DefaultSchedulerConfig()
	}

	names := domain.TaskNames()
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if !cfg.Enabled {
		cmd.Println("Scheduler is disabled (scheduler.enabled = false).")
	}
	for _, id := range ids {
		tc := cfg.GetTaskConfig(id)
		state := "disabled"
		if tc.Enabled {
			state = tc.Schedule
		}
		cmd.Printf("  %-14s %-26s %s\n", id, names[id], state)
	}
	return nil
}
