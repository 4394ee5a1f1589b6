package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for diarymem resources.
	uriScheme = "diarymem://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for analysis progress.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Insight extraction progress and insight counts",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	// Template for entry content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "entries/{entryId}",
		Name:        "entry-content",
		Description: "Full text of a journal entry",
		MIMEType:    "text/plain",
	}, s.handleEntryResource)
}

// handleStatsResource returns analysis statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Analysis == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "{}",
			}},
		}, nil
	}

	stats, err := s.ports.Analysis.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleEntryResource returns the content of a specific entry.
func (s *Server) handleEntryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract entryId from URI: diarymem://entries/{entryId}
	entryID := extractEntryID(req.Params.URI)
	if entryID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entries, err := s.ports.Entries.GetEntriesByIDs(ctx, []string{entryID})
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     entries[0].Content,
		}},
	}, nil
}

// extractEntryID extracts the entry ID from a URI like diarymem://entries/{entryId}.
func extractEntryID(uri string) string {
	const prefix = uriScheme + "entries/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
