package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

var (
	embedStale     bool
	embedMinAge    time.Duration
	embedEntryID   string
	embedStatsJSON bool
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build the semantic search index",
	Long: `Chunks and embeds journal entries for semantic search.

By default every entry without embeddings is embedded. Use --stale to also
re-embed entries edited since their chunks were written, or --entry to
(re)embed a single entry.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

var embedStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding index statistics",
	Args:  cobra.NoArgs,
	RunE:  runEmbedStats,
}

var embedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every embedding",
	Long:  `Deletes all chunks and vectors. Run embed again to rebuild the index.`,
	Args:  cobra.NoArgs,
	RunE:  runEmbedClear,
}

func init() {
	embedCmd.Flags().BoolVar(&embedStale, "stale", false, "re-embed entries edited since they were embedded")
	embedCmd.Flags().DurationVar(&embedMinAge, "min-age", 0, "with --stale, skip entries edited more recently than this")
	embedCmd.Flags().StringVar(&embedEntryID, "entry", "", "embed a single entry by id")
	embedStatsCmd.Flags().BoolVar(&embedStatsJSON, "json", false, "output statistics as JSON")

	embedCmd.AddCommand(embedStatsCmd)
	embedCmd.AddCommand(embedClearCmd)
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	ctx := cmd.Context()

	if embedEntryID != "" {
		return embedSingle(cmd, embedEntryID)
	}

	var (
		report *domain.EmbedReport
		err    error
	)
	if embedStale {
		cmd.Println("Embedding stale entries...")
		report, err = indexService.EmbedStale(ctx, embedMinAge)
	} else {
		cmd.Println("Embedding entries...")
		report, err = indexService.EmbedAll(ctx, func(p domain.EmbedProgress) {
			cmd.Printf("\r  [%d/%d] %s (%d chunks)", p.Current, p.Total, p.EntryID, p.ChunkCount)
		})
		if report != nil && report.Success+report.Failed > 0 {
			cmd.Println()
		}
	}
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	cmd.Printf("Embedded %d entries (%d failed)\n", report.Success, report.Failed)
	for _, e := range report.Errors {
		cmd.Printf("  Error: %s\n", e)
	}
	return nil
}

func embedSingle(cmd *cobra.Command, id string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}
	ctx := cmd.Context()

	entries, err := entryService.GetEntriesByIDs(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}

	count, err := indexService.EmbedEntry(ctx, entries[0].ID, entries[0].Date, entries[0].Content)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	cmd.Printf("Embedded entry %s (%d chunks)\n", id, count)
	return nil
}

func runEmbedStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	stats, err := indexService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	if embedStatsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal statistics: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Embedding Index")
	cmd.Printf("  Entries:          %d\n", stats.TotalEntries)
	cmd.Printf("  Embedded entries: %d\n", stats.EntriesWithEmbeddings)
	cmd.Printf("  Chunks:           %d\n", stats.TotalChunks)
	if missing := stats.TotalEntries - stats.EntriesWithEmbeddings; missing > 0 {
		cmd.Printf("\n%d entries are not embedded. Run 'diarymem embed' to index them.\n", missing)
	}
	return nil
}

func runEmbedClear(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if err := indexService.ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	cmd.Println("All embeddings deleted.")
	return nil
}
