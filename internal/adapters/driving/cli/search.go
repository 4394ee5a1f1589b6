package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// searchSnippetLength bounds the snippet printed per result.
const searchSnippetLength = 240

var (
	searchLimit int
	searchJSON  bool
	searchFrom  string
	searchTo    string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search journal entries",
	Long: `Performs hybrid search across all journal entries.
Combines keyword (BM25) and semantic (vector) search with reciprocal rank fusion.
Without an embedding provider the search is keyword only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "only entries on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "only entries on or before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	dateRange, err := parseDateRange(searchFrom, searchTo)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		Limit:     searchLimit,
		DateRange: dateRange,
	}

	results, err := searchService.HybridSearch(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Date (source, score)
		cmd.Printf("  [%d] %s (%s, %.4f)\n", i+1, results[i].Date, results[i].Source, results[i].Score)
		cmd.Printf("      Entry: %s\n", results[i].EntryID)

		snippet := results[i].Snippet
		if snippet == "" {
			snippet = results[i].Content
		}
		snippet = strings.Join(strings.Fields(snippet), " ")
		if snippet != "" {
			cmd.Printf("      %s\n", truncate(snippet, searchSnippetLength))
		}
		cmd.Println()
	}

	return nil
}
