package domain

import "time"

// MaxRetryCount is the number of failed attempts after which a queue item
// leaves the eligible pool and is listed as failed.
const MaxRetryCount = 3

// QueueStatus is the lifecycle state of an analysis queue item.
type QueueStatus string

// Queue item states. A failure returns the item to pending with an
// incremented retry count; there is no separate failed state.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
)

// IsValid returns true if the status is recognised.
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s QueueStatus) String() string {
	return string(s)
}

// QueueItem is one unit of retry-tracked "analyse this entry" work.
// At most one item exists per entry.
type QueueItem struct {
	ID         string
	EntryID    string
	Status     QueueStatus
	RetryCount int
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsFailed reports whether the item exhausted its retries.
func (q QueueItem) IsFailed() bool {
	return q.Status == QueueStatusPending && q.RetryCount >= MaxRetryCount
}

// FailedItem is a failed queue item joined with its entry date.
type FailedItem struct {
	QueueItem
	EntryDate string
}

// ProcessResult summarises one batch run over the analysis queue.
type ProcessResult struct {
	Success   int  `json:"success"`
	Failed    int  `json:"failed"`
	Cancelled bool `json:"cancelled"`
}

// Progress is reported after every processed queue item.
type Progress struct {
	Current int
	Total   int
	EntryID string
	Success int
	Failed  int
}

// AnalyticsStats summarises insight extraction state.
type AnalyticsStats struct {
	TotalInsights   int                 `json:"totalInsights"`
	InsightsByType  map[InsightType]int `json:"insightsByType"`
	EntriesAnalyzed int                 `json:"entriesAnalyzed"`
	EntriesPending  int                 `json:"entriesPending"`
	EntriesFailed   int                 `json:"entriesFailed"`
	LastAnalyzedAt  *time.Time          `json:"lastAnalyzedAt,omitempty"`
}
