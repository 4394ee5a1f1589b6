package driving

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// Scheduler manages background embedding and queue processing.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunTask executes one task immediately and records its result.
	RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error)
}
