package mcp

import (
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Insights answers query_insights.
	Insights driving.InsightService

	// Entries answers query_entries and get_entries_by_ids.
	Entries driving.EntryService

	// Analysis backs the stats resource. Optional.
	Analysis driving.AnalysisService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Insights == nil {
		return ErrMissingInsightService
	}
	if p.Entries == nil {
		return ErrMissingEntryService
	}
	return nil
}
