package domain

// InsightFilter selects insights for GetFilteredInsights.
type InsightFilter struct {
	// Type restricts to one insight type. Empty means all.
	Type InsightType

	// Name is a case-insensitive substring match on the label.
	Name string

	// Sentiment is an exact match on metadata sentiment.
	Sentiment Sentiment

	// Limit caps the result. Zero means the default.
	Limit int
}

// InsightLookup is the storage-level filter used by the query layer.
type InsightLookup struct {
	Types      []InsightType
	Sentiments []Sentiment
	DateRange  *DateRange
	EntryIDs   []string
	Name       string
	ExactName  bool
	Limit      int
}

// GroupBy controls whether QueryInsights folds rows into entities.
type GroupBy string

// Grouping modes.
const (
	GroupByNone   GroupBy = ""
	GroupByEntity GroupBy = "entity"
)

// OrderField is the sort key for grouped insight results.
type OrderField string

// Sort keys.
const (
	OrderByCount     OrderField = "count"
	OrderByDate      OrderField = "date"
	OrderByIntensity OrderField = "intensity"
	OrderByName      OrderField = "name"
	OrderByRelevance OrderField = "relevance"
)

// OrderBy is a sort key with direction.
type OrderBy struct {
	Field     OrderField `json:"field" validate:"omitempty,oneof=count date intensity name relevance"`
	Direction string     `json:"direction" validate:"omitempty,oneof=asc desc"`
}

// Ascending reports whether the direction is asc.
func (o OrderBy) Ascending() bool {
	return o.Direction == "asc"
}

// InsightQueryFilters are the filters of an InsightQuery.
type InsightQueryFilters struct {
	Categories []string    `json:"categories,omitempty" validate:"omitempty,dive,oneof=people emotions person emotion"`
	Sentiments []Sentiment `json:"sentiments,omitempty"`
	DateRange  *DateRange  `json:"dateRange,omitempty"`
	Search     string      `json:"search,omitempty"`
	Name       string      `json:"name,omitempty"`
}

// InsightQuery is the structured query accepted by QueryInsights.
type InsightQuery struct {
	Filters         InsightQueryFilters `json:"filters"`
	GroupBy         GroupBy             `json:"groupBy,omitempty" validate:"omitempty,oneof=entity"`
	OrderBy         *OrderBy            `json:"orderBy,omitempty"`
	Limit           int                 `json:"limit,omitempty" validate:"gte=0"`
	IncludeEntryIDs *bool               `json:"includeEntryIds,omitempty"`
}

// EntityGroup folds all insights sharing a type and case-insensitive name.
// Scalar fields reflect the most recently dated insight.
type EntityGroup struct {
	Type           InsightType `json:"type"`
	Name           string      `json:"name"`
	Count          int         `json:"count"`
	EntryIDs       []string    `json:"entryIds,omitempty"`
	MostRecentDate string      `json:"mostRecentDate"`
	AvgIntensity   *float64    `json:"avgIntensity,omitempty"`
	Sentiment      Sentiment   `json:"sentiment,omitempty"`
	Relationship   string      `json:"relationship,omitempty"`
	Context        string      `json:"context,omitempty"`
	Trigger        string      `json:"trigger,omitempty"`
	SourceQuote    string      `json:"sourceQuote,omitempty"`
	TotalIntensity int         `json:"-"`
	IntensityCount int         `json:"-"`
}

// FlatInsight is an ungrouped insight row for tool output.
type FlatInsight struct {
	ID           string      `json:"id"`
	EntryID      string      `json:"entryId,omitempty"`
	Date         string      `json:"date"`
	Type         InsightType `json:"type"`
	Name         string      `json:"name"`
	Sentiment    Sentiment   `json:"sentiment"`
	Intensity    int         `json:"intensity,omitempty"`
	Trigger      string      `json:"trigger,omitempty"`
	Relationship string      `json:"relationship,omitempty"`
	Context      string      `json:"context,omitempty"`
	SourceQuote  string      `json:"sourceQuote,omitempty"`
}

// InsightQueryResult holds either grouped or flat rows.
type InsightQueryResult struct {
	Groups   []EntityGroup `json:"groups,omitempty"`
	Insights []FlatInsight `json:"insights,omitempty"`
	Total    int           `json:"total"`
}

// EntryQuery is the structured query accepted by QueryEntries.
type EntryQuery struct {
	DateRange      *DateRange `json:"dateRange,omitempty"`
	Search         string     `json:"search,omitempty"`
	HasInsights    *bool      `json:"hasInsights,omitempty"`
	OrderBy        *OrderBy   `json:"orderBy,omitempty"`
	Limit          int        `json:"limit,omitempty" validate:"gte=0"`
	ReturnFullText bool       `json:"returnFullText,omitempty"`
}

// EntrySummary is an entry as returned to tool consumers.
type EntrySummary struct {
	ID      string   `json:"id"`
	Date    string   `json:"date"`
	Preview string   `json:"preview,omitempty"`
	Content string   `json:"content,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// Occurrence is one dated appearance of an emotion or person.
type Occurrence struct {
	InsightID string    `json:"insightId"`
	EntryID   string    `json:"entryId"`
	Date      string    `json:"date"`
	Sentiment Sentiment `json:"sentiment"`
	Intensity int       `json:"intensity,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Context   string    `json:"context,omitempty"`
	Quote     string    `json:"quote,omitempty"`
}

// EmotionSummary aggregates one emotion across the corpus.
type EmotionSummary struct {
	Emotion      string   `json:"emotion"`
	Count        int      `json:"count"`
	AvgIntensity float64  `json:"avgIntensity"`
	Triggers     []string `json:"triggers"`
}

// PersonSummary aggregates one person across the corpus.
type PersonSummary struct {
	Name         string    `json:"name"`
	Mentions     int       `json:"mentions"`
	Relationship string    `json:"relationship,omitempty"`
	Sentiment    Sentiment `json:"sentiment"`
}

// AggregatedInsights is the dashboard summary of emotions and people.
type AggregatedInsights struct {
	Emotions []EmotionSummary `json:"emotions"`
	People   []PersonSummary  `json:"people"`
}

// TimeBucket is a coarse recency bucket for insight listings.
type TimeBucket string

// Recency buckets, most recent first.
const (
	BucketThisWeek  TimeBucket = "This Week"
	BucketThisMonth TimeBucket = "This Month"
	BucketOlder     TimeBucket = "Older"
)

// InsightTimeGroup holds the raw insights of one recency bucket.
type InsightTimeGroup struct {
	Bucket   TimeBucket    `json:"bucket"`
	Insights []FlatInsight `json:"insights"`
}
