package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

var (
	analyzeAll      bool
	analyzeJSON     bool
	analyzeInsights bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract emotions and people from entries",
	Long: `Manages the analysis queue. Queued entries are sent to the extraction
provider, which returns the emotions and people each entry mentions.

An item that fails three times is parked as failed until it is retried
or dismissed.`,
}

var analyzeQueueCmd = &cobra.Command{
	Use:   "queue [entry-id]",
	Short: "Queue entries for analysis",
	Long: `Queues one entry, or with --all every entry that has no insights yet.
Entries that are already queued are left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyzeQueue,
}

var analyzeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the analysis queue",
	Args:  cobra.NoArgs,
	RunE:  runAnalyzeRun,
}

var analyzeReanalyzeCmd = &cobra.Command{
	Use:   "reanalyze [entry-id]",
	Short: "Queue an entry again, replacing its insights",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeReanalyze,
}

var analyzeFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List queue items that exhausted their retries",
	Args:  cobra.NoArgs,
	RunE:  runAnalyzeFailed,
}

var analyzeRetryCmd = &cobra.Command{
	Use:   "retry [item-id]",
	Short: "Reset a failed item so it is processed again",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyzeRetry,
}

var analyzeDismissCmd = &cobra.Command{
	Use:   "dismiss [item-id]",
	Short: "Remove a failed item from the queue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyzeDismiss,
}

var analyzeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove completed items from the queue",
	Long: `Removes completed items from the queue. With --insights every extracted
insight is deleted as well, so the next "analyze queue --all" starts over.`,
	Args: cobra.NoArgs,
	RunE: runAnalyzeClear,
}

var analyzeStatusCmd = &cobra.Command{
	Use:   "status [entry-id]",
	Short: "Show the queue item for an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeStatus,
}

var analyzeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show analysis statistics",
	Args:  cobra.NoArgs,
	RunE:  runAnalyzeStats,
}

func init() {
	analyzeQueueCmd.Flags().BoolVar(&analyzeAll, "all", false, "queue every unanalysed entry")
	analyzeRetryCmd.Flags().BoolVar(&analyzeAll, "all", false, "retry every failed item")
	analyzeDismissCmd.Flags().BoolVar(&analyzeAll, "all", false, "dismiss every failed item")
	analyzeFailedCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output items as JSON")
	analyzeStatsCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output statistics as JSON")
	analyzeClearCmd.Flags().BoolVar(&analyzeInsights, "insights", false, "also delete every extracted insight")

	analyzeCmd.AddCommand(analyzeQueueCmd)
	analyzeCmd.AddCommand(analyzeRunCmd)
	analyzeCmd.AddCommand(analyzeReanalyzeCmd)
	analyzeCmd.AddCommand(analyzeFailedCmd)
	analyzeCmd.AddCommand(analyzeRetryCmd)
	analyzeCmd.AddCommand(analyzeDismissCmd)
	analyzeCmd.AddCommand(analyzeClearCmd)
	analyzeCmd.AddCommand(analyzeStatusCmd)
	analyzeCmd.AddCommand(analyzeStatsCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// requireTarget checks that exactly one of an id argument or --all was given.
func requireTarget(args []string) error {
	switch {
	case analyzeAll && len(args) > 0:
		return errors.New("pass an id or --all, not both")
	case !analyzeAll && len(args) == 0:
		return errors.New("pass an id or --all")
	}
	return nil
}

func runAnalyzeQueue(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if err := requireTarget(args); err != nil {
		return err
	}
	ctx := cmd.Context()

	if analyzeAll {
		n, err := analysisService.QueueAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to queue entries: %w", err)
		}
		cmd.Printf("Queued %d entries for analysis.\n", n)
		return nil
	}

	queued, err := analysisService.QueueEntry(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to queue entry: %w", err)
	}
	if queued {
		cmd.Printf("Queued entry %s for analysis.\n", args[0])
	} else {
		cmd.Printf("Entry %s is already queued.\n", args[0])
	}
	return nil
}

func runAnalyzeRun(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	cmd.Println("Processing analysis queue...")
	progressed := false
	result, err := analysisService.Process(cmd.Context(), func(p domain.Progress) {
		progressed = true
		cmd.Printf("\r  [%d/%d] %d ok, %d failed", p.Current, p.Total, p.Success, p.Failed)
	})
	if progressed {
		cmd.Println()
	}
	if err != nil {
		if errors.Is(err, domain.ErrAnalysisInProgress) {
			return errors.New("analysis is already running")
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if result.Cancelled {
		cmd.Printf("Cancelled after %d analysed, %d failed.\n", result.Success, result.Failed)
		return nil
	}
	cmd.Printf("Analysed %d entries (%d failed)\n", result.Success, result.Failed)
	return nil
}

func runAnalyzeReanalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if err := analysisService.Reanalyze(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to queue entry: %w", err)
	}
	cmd.Printf("Queued entry %s for reanalysis.\n", args[0])
	return nil
}

func runAnalyzeFailed(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	items, err := analysisService.Failed(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list failed items: %w", err)
	}

	if analyzeJSON {
		if items == nil {
			items = []domain.FailedItem{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal items: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(items) == 0 {
		cmd.Println("No failed items.")
		return nil
	}

	for i := range items {
		cmd.Printf("%s  entry %s (%s), %d attempts\n",
			items[i].ID, items[i].EntryID, items[i].EntryDate, items[i].RetryCount)
		if items[i].Error != "" {
			cmd.Printf("    %s\n", truncate(items[i].Error, searchSnippetLength))
		}
	}
	cmd.Printf("\nTotal: %d failed items\n", len(items))
	return nil
}

func runAnalyzeRetry(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if err := requireTarget(args); err != nil {
		return err
	}
	ctx := cmd.Context()

	if analyzeAll {
		n, err := analysisService.RetryAllFailed(ctx)
		if err != nil {
			return fmt.Errorf("failed to retry items: %w", err)
		}
		cmd.Printf("Reset %d failed items.\n", n)
		return nil
	}

	if err := analysisService.Retry(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to retry item: %w", err)
	}
	cmd.Printf("Reset item %s.\n", args[0])
	return nil
}

func runAnalyzeDismiss(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if err := requireTarget(args); err != nil {
		return err
	}
	ctx := cmd.Context()

	if analyzeAll {
		n, err := analysisService.DismissAllFailed(ctx)
		if err != nil {
			return fmt.Errorf("failed to dismiss items: %w", err)
		}
		cmd.Printf("Dismissed %d failed items.\n", n)
		return nil
	}

	if err := analysisService.Dismiss(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to dismiss item: %w", err)
	}
	cmd.Printf("Dismissed item %s.\n", args[0])
	return nil
}

func runAnalyzeClear(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if analyzeInsights {
		n, err := analysisService.ClearInsights(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear insights: %w", err)
		}
		cmd.Printf("Deleted %d insights.\n", n)
		return nil
	}

	n, err := analysisService.ClearCompleted(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to clear completed items: %w", err)
	}
	cmd.Printf("Removed %d completed items.\n", n)
	return nil
}

func runAnalyzeStatus(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	item, err := analysisService.QueueStatus(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("Entry %s is not queued.\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get queue status: %w", err)
	}

	status := string(item.Status)
	if item.IsFailed() {
		status = "failed"
	}
	cmd.Printf("%s  entry %s: %s (%d attempts)\n", item.ID, item.EntryID, status, item.RetryCount)
	if item.Error != "" {
		cmd.Printf("    %s\n", truncate(item.Error, searchSnippetLength))
	}
	return nil
}

func runAnalyzeStats(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	stats, err := analysisService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	if analyzeJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal statistics: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Analysis")
	cmd.Printf("  Insights:         %d\n", stats.TotalInsights)
	types := make([]string, 0, len(stats.InsightsByType))
	for t := range stats.InsightsByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		cmd.Printf("    %-16s%d\n", t+":", stats.InsightsByType[domain.InsightType(t)])
	}
	cmd.Printf("  Entries analysed: %d\n", stats.EntriesAnalyzed)
	cmd.Printf("  Pending:          %d\n", stats.EntriesPending)
	cmd.Printf("  Failed:           %d\n", stats.EntriesFailed)
	if stats.LastAnalyzedAt != nil {
		cmd.Printf("  Last analysed:    %s\n", stats.LastAnalyzedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
