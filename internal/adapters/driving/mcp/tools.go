package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// DateRangeInput is an inclusive YYYY-MM-DD window.
type DateRangeInput struct {
	Start string `json:"start" jsonschema:"first day, YYYY-MM-DD" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" jsonschema:"last day inclusive, YYYY-MM-DD" validate:"required,datetime=2006-01-02"`
}

// OrderByInput is a sort key with direction.
type OrderByInput struct {
	Field     string `json:"field" jsonschema:"sort key: count, date, intensity, name or relevance" validate:"required,oneof=count date intensity name relevance"`
	Direction string `json:"direction,omitempty" jsonschema:"asc or desc (default desc)" validate:"omitempty,oneof=asc desc"`
}

// InsightFiltersInput narrows query_insights.
type InsightFiltersInput struct {
	Category  []string        `json:"category,omitempty" jsonschema:"insight categories: people, emotions" validate:"omitempty,dive,oneof=people emotions person emotion"`
	Sentiment []string        `json:"sentiment,omitempty" jsonschema:"sentiments: positive, negative, neutral, tense, mixed" validate:"omitempty,dive,oneof=positive negative neutral tense mixed"`
	DateRange *DateRangeInput `json:"dateRange,omitempty" jsonschema:"restrict to entries dated in this window"`
	Search    string          `json:"search,omitempty" jsonschema:"free text; only insights from matching entries are returned" validate:"max=500"`
	Name      string          `json:"name,omitempty" jsonschema:"case-insensitive substring of the emotion or person name" validate:"max=200"`
}

// QueryInsightsInput is the input schema for the query_insights tool.
type QueryInsightsInput struct {
	Filters         InsightFiltersInput `json:"filters,omitempty" jsonschema:"optional filters"`
	GroupBy         string              `json:"groupBy,omitempty" jsonschema:"set to entity to fold insights by person or emotion" validate:"omitempty,oneof=entity"`
	OrderBy         *OrderByInput       `json:"orderBy,omitempty" jsonschema:"sort order for grouped results"`
	Limit           int                 `json:"limit,omitempty" jsonschema:"maximum results (default 10, max 50)" validate:"gte=0"`
	IncludeEntryIDs *bool               `json:"includeEntryIds,omitempty" jsonschema:"include up to 10 entry ids per group (default true)"`
}

// QueryInsightsOutput is the output schema for the query_insights tool.
type QueryInsightsOutput struct {
	Groups   []domain.EntityGroup `json:"groups,omitempty"`
	Insights []domain.FlatInsight `json:"insights,omitempty"`
	Total    int                  `json:"total"`
}

// EntryFiltersInput narrows query_entries.
type EntryFiltersInput struct {
	DateRange   *DateRangeInput `json:"dateRange,omitempty" jsonschema:"restrict to entries dated in this window"`
	Search      string          `json:"search,omitempty" jsonschema:"free text, ranked by hybrid keyword and semantic search" validate:"max=500"`
	HasInsights *bool           `json:"hasInsights,omitempty" jsonschema:"only entries that have (true) or lack (false) extracted insights"`
}

// QueryEntriesInput is the input schema for the query_entries tool.
type QueryEntriesInput struct {
	Filters        EntryFiltersInput `json:"filters,omitempty" jsonschema:"optional filters"`
	OrderBy        *OrderByInput     `json:"orderBy,omitempty" jsonschema:"date or relevance, asc or desc"`
	Limit          int               `json:"limit,omitempty" jsonschema:"maximum entries (default 10, max 50)" validate:"gte=0"`
	ReturnFullText bool              `json:"returnFullText,omitempty" jsonschema:"return whole entries instead of previews"`
}

// QueryEntriesOutput is the output schema for the query_entries tool.
type QueryEntriesOutput struct {
	Entries []domain.EntrySummary `json:"entries"`
	Count   int                   `json:"count"`
}

// GetEntriesByIDsInput is the input schema for the get_entries_by_ids tool.
type GetEntriesByIDsInput struct {
	EntryIDs []string `json:"entryIds" jsonschema:"ids returned by query_entries or query_insights" validate:"max=50,dive,required"`
}

// EntryOutput is a full journal entry.
type EntryOutput struct {
	EntryID string `json:"entryId"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// GetEntriesByIDsOutput is the output schema for the get_entries_by_ids tool.
type GetEntriesByIDsOutput struct {
	Entries []EntryOutput `json:"entries"`
	Count   int           `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "query_insights",
		Description: "Query emotions and people extracted from journal entries. " +
			"Use groupBy=entity to see how often each person or emotion appears.",
	}, s.handleQueryInsights)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_entries",
		Description: "List journal entries by date, or search them by meaning and keywords",
	}, s.handleQueryEntries)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_entries_by_ids",
		Description: "Fetch the full text of journal entries by id",
	}, s.handleGetEntriesByIDs)
}

// handleQueryInsights handles the query_insights tool invocation.
func (s *Server) handleQueryInsights(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInsightsInput,
) (*mcp.CallToolResult, QueryInsightsOutput, error) {
	if err := s.check(input); err != nil {
		return nil, QueryInsightsOutput{}, err
	}

	dateRange, err := toDateRange(input.Filters.DateRange)
	if err != nil {
		return nil, QueryInsightsOutput{}, err
	}

	sentiments := make([]domain.Sentiment, len(input.Filters.Sentiment))
	for i, sentiment := range input.Filters.Sentiment {
		sentiments[i] = domain.Sentiment(sentiment)
	}

	query := domain.InsightQuery{
		Filters: domain.InsightQueryFilters{
			Categories: input.Filters.Category,
			Sentiments: sentiments,
			DateRange:  dateRange,
			Search:     input.Filters.Search,
			Name:       input.Filters.Name,
		},
		GroupBy:         domain.GroupBy(input.GroupBy),
		OrderBy:         toOrderBy(input.OrderBy),
		Limit:           input.Limit,
		IncludeEntryIDs: input.IncludeEntryIDs,
	}

	result, err := s.ports.Insights.QueryInsights(ctx, query)
	if err != nil {
		return nil, QueryInsightsOutput{}, fmt.Errorf("querying insights: %w", err)
	}

	return nil, QueryInsightsOutput{
		Groups:   result.Groups,
		Insights: result.Insights,
		Total:    result.Total,
	}, nil
}

// handleQueryEntries handles the query_entries tool invocation.
func (s *Server) handleQueryEntries(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryEntriesInput,
) (*mcp.CallToolResult, QueryEntriesOutput, error) {
	if err := s.check(input); err != nil {
		return nil, QueryEntriesOutput{}, err
	}
	if input.OrderBy != nil && input.OrderBy.Field != "date" && input.OrderBy.Field != "relevance" {
		return nil, QueryEntriesOutput{}, fmt.Errorf("%w: entries can only be ordered by date or relevance",
			domain.ErrInvalidInput)
	}

	dateRange, err := toDateRange(input.Filters.DateRange)
	if err != nil {
		return nil, QueryEntriesOutput{}, err
	}

	entries, err := s.ports.Entries.QueryEntries(ctx, domain.EntryQuery{
		DateRange:      dateRange,
		Search:         input.Filters.Search,
		HasInsights:    input.Filters.HasInsights,
		OrderBy:        toOrderBy(input.OrderBy),
		Limit:          input.Limit,
		ReturnFullText: input.ReturnFullText,
	})
	if err != nil {
		return nil, QueryEntriesOutput{}, fmt.Errorf("querying entries: %w", err)
	}
	if entries == nil {
		entries = []domain.EntrySummary{}
	}

	return nil, QueryEntriesOutput{Entries: entries, Count: len(entries)}, nil
}

// handleGetEntriesByIDs handles the get_entries_by_ids tool invocation.
func (s *Server) handleGetEntriesByIDs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetEntriesByIDsInput,
) (*mcp.CallToolResult, GetEntriesByIDsOutput, error) {
	if err := s.check(input); err != nil {
		return nil, GetEntriesByIDsOutput{}, err
	}

	output := GetEntriesByIDsOutput{Entries: []EntryOutput{}}
	if len(input.EntryIDs) == 0 {
		return nil, output, nil
	}

	entries, err := s.ports.Entries.GetEntriesByIDs(ctx, input.EntryIDs)
	if err != nil {
		return nil, GetEntriesByIDsOutput{}, fmt.Errorf("getting entries: %w", err)
	}

	for i := range entries {
		output.Entries = append(output.Entries, EntryOutput{
			EntryID: entries[i].ID,
			Date:    entries[i].Date,
			Content: entries[i].Content,
		})
	}
	output.Count = len(output.Entries)

	return nil, output, nil
}

// check validates tool input against its struct tags.
func (s *Server) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func toDateRange(in *DateRangeInput) (*domain.DateRange, error) {
	if in == nil {
		return nil, nil
	}
	if in.Start > in.End {
		return nil, fmt.Errorf("%w: date range starts after it ends", domain.ErrInvalidInput)
	}
	return &domain.DateRange{Start: in.Start, End: in.End}, nil
}

func toOrderBy(in *OrderByInput) *domain.OrderBy {
	if in == nil {
		return nil
	}
	return &domain.OrderBy{
		Field:     domain.OrderField(in.Field),
		Direction: in.Direction,
	}
}
