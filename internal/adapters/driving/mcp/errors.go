// Package mcp provides an MCP (Model Context Protocol) server adapter for diarymem.
// It lets AI assistants query journal entries and the insights extracted from them.
package mcp

import "errors"

var (
	// ErrMissingInsightService is returned when the insight service is not provided.
	ErrMissingInsightService = errors.New("mcp: insight service is required")

	// ErrMissingEntryService is returned when the entry service is not provided.
	ErrMissingEntryService = errors.New("mcp: entry service is required")
)
