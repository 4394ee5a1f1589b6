package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// StuckProcessingAfter is how long an item may sit in processing before a
// new run returns it to the pending pool.
const StuckProcessingAfter = 15 * time.Minute

// AnalysisService drives the insight extraction queue.
type AnalysisService struct {
	entries   driven.EntryStore
	insights  driven.InsightStore
	queue     driven.QueueStore
	extractor driven.InsightExtractor
	matcher   driven.ApproximateMatcher
	truncator driven.Truncator

	// running guards Process against overlapping runs.
	running atomic.Bool
}

// NewAnalysisService creates a new analysis service.
// The extractor may be nil; Process then fails with ErrConfiguration.
func NewAnalysisService(
	entries driven.EntryStore,
	insights driven.InsightStore,
	queue driven.QueueStore,
	extractor driven.InsightExtractor,
	matcher driven.ApproximateMatcher,
) *AnalysisService {
	return &AnalysisService{
		entries:   entries,
		insights:  insights,
		queue:     queue,
		extractor: extractor,
		matcher:   matcher,
	}
}

// SetTruncator sets the token-aware truncator for extraction input.
func (s *AnalysisService) SetTruncator(t driven.Truncator) {
	s.truncator = t
}

// QueueEntry queues an entry for analysis unless it already has insights
// or a queue row. Returns true if a row was created.
func (s *AnalysisService) QueueEntry(ctx context.Context, entryID string) (bool, error) {
	if entryID == "" {
		return false, domain.ErrInvalidInput
	}

	has, err := s.insights.HasInsights(ctx, entryID)
	if err != nil {
		return false, fmt.Errorf("checking insights: %w", err)
	}
	if has {
		logger.Debug("Entry %s already analysed, not queueing", entryID)
		return false, nil
	}

	created, err := s.queue.Enqueue(ctx, entryID)
	if err != nil {
		return false, fmt.Errorf("queueing entry: %w", err)
	}
	return created, nil
}

// QueueAll queues every entry that has neither insights nor a queue row.
func (s *AnalysisService) QueueAll(ctx context.Context) (int, error) {
	n, err := s.queue.EnqueueUnanalysed(ctx)
	if err != nil {
		return 0, fmt.Errorf("queueing entries: %w", err)
	}
	logger.Info("Queued %d entries for analysis", n)
	return n, nil
}

// Reanalyze queues an entry again regardless of existing insights.
// The insights are replaced when the item is processed.
func (s *AnalysisService) Reanalyze(ctx context.Context, entryID string) error {
	if entryID == "" {
		return domain.ErrInvalidInput
	}
	if _, err := s.entries.GetEntry(ctx, entryID); err != nil {
		return fmt.Errorf("loading entry: %w", err)
	}
	if err := s.queue.DeleteQueueItemByEntry(ctx, entryID); err != nil {
		return fmt.Errorf("clearing queue item: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, entryID); err != nil {
		return fmt.Errorf("queueing entry: %w", err)
	}
	return nil
}

// Process works through eligible pending items oldest first.
// Cancellation is checked before each item; an item already started runs
// to completion. A failing item is returned to pending with its retry count
// incremented and the run moves on.
func (s *AnalysisService) Process(
	ctx context.Context,
	onProgress func(domain.Progress),
) (*domain.ProcessResult, error) {
	result := &domain.ProcessResult{}
	if ctx.Err() != nil {
		result.Cancelled = true
		return result, nil
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrAnalysisInProgress
	}
	defer s.running.Store(false)

	if s.extractor == nil {
		return nil, fmt.Errorf("processing queue: %w: no extraction provider configured", domain.ErrConfiguration)
	}

	if n, err := s.queue.ReclaimStuck(ctx, time.Now().Add(-StuckProcessingAfter)); err != nil {
		return nil, fmt.Errorf("reclaiming stuck items: %w", err)
	} else if n > 0 {
		logger.Warn("Returned %d interrupted items to the queue", n)
	}

	items, err := s.queue.ListPending(ctx, domain.MaxRetryCount)
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}

	logger.Section("Analysis")
	logger.Info("Processing %d queued entries with %s", len(items), s.extractor.ModelName())

	// Items run detached from cancellation so a started item always
	// settles its queue row.
	itemCtx := context.WithoutCancel(ctx)

	for i, item := range items {
		if ctx.Err() != nil {
			logger.Info("Analysis cancelled after %d of %d items", i, len(items))
			result.Cancelled = true
			return result, nil
		}

		if err := s.processItem(itemCtx, item); err != nil {
			result.Failed++
			logger.Warn("Analysis of entry %s failed (attempt %d): %v", item.EntryID, item.RetryCount+1, err)
			if markErr := s.queue.MarkFailed(itemCtx, item.ID, err.Error()); markErr != nil {
				return result, fmt.Errorf("recording failure for %s: %w", item.EntryID, markErr)
			}
		} else {
			result.Success++
		}

		if onProgress != nil {
			onProgress(domain.Progress{
				Current: i + 1,
				Total:   len(items),
				EntryID: item.EntryID,
				Success: result.Success,
				Failed:  result.Failed,
			})
		}
	}

	return result, nil
}

// processItem runs one queue item through extraction.
func (s *AnalysisService) processItem(ctx context.Context, item domain.QueueItem) error {
	if err := s.queue.MarkProcessing(ctx, item.ID); err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}

	entry, err := s.entries.GetEntry(ctx, item.EntryID)
	if err != nil {
		return fmt.Errorf("loading entry %s: %w", item.EntryID, err)
	}

	if err := s.insights.DeleteInsights(ctx, entry.ID); err != nil {
		return fmt.Errorf("clearing insights: %w", err)
	}

	raw, err := s.extractor.Extract(ctx, truncateForExtraction(s.truncator, entry.Content), entry.Date)
	if err != nil {
		return asProviderError(s.extractor.ModelName(), "extract", err)
	}

	extraction, err := ParseExtraction(s.extractor.ModelName(), raw)
	if err != nil {
		return err
	}

	insights := BuildInsights(entry, extraction, s.matcher)
	if err := s.insights.SaveInsights(ctx, insights); err != nil {
		return fmt.Errorf("saving insights: %w", err)
	}

	if err := s.queue.MarkCompleted(ctx, item.ID); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}

	logger.Debug("Entry %s: %d emotions, %d people", entry.ID, len(extraction.Emotions), len(extraction.People))
	return nil
}

// Failed lists items that exhausted their retries.
func (s *AnalysisService) Failed(ctx context.Context) ([]domain.FailedItem, error) {
	return s.queue.ListFailed(ctx, domain.MaxRetryCount)
}

// Retry returns a failed item to the pending pool.
func (s *AnalysisService) Retry(ctx context.Context, id string) error {
	item, err := s.queue.GetQueueItem(ctx, id)
	if err != nil {
		return fmt.Errorf("retrying item %s: %w", id, err)
	}
	if item.Status == domain.QueueStatusCompleted {
		return fmt.Errorf("retrying item %s: item is completed: %w", id, domain.ErrInvalidInput)
	}
	if err := s.queue.ResetRetries(ctx, id); err != nil {
		return fmt.Errorf("retrying item %s: %w", id, err)
	}
	return nil
}

// Dismiss removes an item from the queue.
func (s *AnalysisService) Dismiss(ctx context.Context, id string) error {
	if err := s.queue.DeleteQueueItem(ctx, id); err != nil {
		return fmt.Errorf("dismissing item %s: %w", id, err)
	}
	return nil
}

// RetryAllFailed returns every failed item to the pending pool.
func (s *AnalysisService) RetryAllFailed(ctx context.Context) (int, error) {
	return s.queue.ResetAllFailed(ctx, domain.MaxRetryCount)
}

// DismissAllFailed removes every failed item.
func (s *AnalysisService) DismissAllFailed(ctx context.Context) (int, error) {
	return s.queue.DeleteAllFailed(ctx, domain.MaxRetryCount)
}

// ClearCompleted removes completed items.
func (s *AnalysisService) ClearCompleted(ctx context.Context) (int, error) {
	return s.queue.DeleteCompleted(ctx)
}

// QueueStatus returns the queue item of an entry.
func (s *AnalysisService) QueueStatus(ctx context.Context, entryID string) (*domain.QueueItem, error) {
	if entryID == "" {
		return nil, domain.ErrInvalidInput
	}
	item, err := s.queue.GetQueueItemByEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("getting queue item for %s: %w", entryID, err)
	}
	return item, nil
}

// ClearInsights deletes every insight and the completed queue items.
// Pending and failed items are kept.
func (s *AnalysisService) ClearInsights(ctx context.Context) (int, error) {
	n, err := s.insights.DeleteAllInsights(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting insights: %w", err)
	}
	if _, err := s.queue.DeleteCompleted(ctx); err != nil {
		return n, fmt.Errorf("clearing completed items: %w", err)
	}
	logger.Info("Deleted %d insights", n)
	return n, nil
}

// Stats combines insight totals with queue counts.
func (s *AnalysisService) Stats(ctx context.Context) (*domain.AnalyticsStats, error) {
	stats, err := s.insights.InsightStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading insight stats: %w", err)
	}

	pending, failed, err := s.queue.CountQueue(ctx, domain.MaxRetryCount)
	if err != nil {
		return nil, fmt.Errorf("counting queue: %w", err)
	}
	stats.EntriesPending = pending
	stats.EntriesFailed = failed
	return stats, nil
}
