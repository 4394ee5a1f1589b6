package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/connectors/filesystem"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/logger"
)

var (
	entriesLimit    int
	entriesSearch   string
	entriesFrom     string
	entriesTo       string
	entriesInsights string
	entriesFull     bool
	entriesJSON     bool

	importDate    string
	importAnalyze bool
	importEmbed   bool
)

// onWatchReady is called once the watcher is running. Tests use it to
// start writing files.
var onWatchReady func()

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage journal entries",
	Long:  `List, show, import, watch and delete journal entries.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List or search entries",
	Args:  cobra.NoArgs,
	RunE:  runEntriesList,
}

var entriesShowCmd = &cobra.Command{
	Use:   "show [entry-id...]",
	Short: "Print full entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEntriesShow,
}

var entriesImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import entries from files",
	Long: `Import journal entries.

A .json file holds an array of {"id", "date", "content"} objects, a .jsonl
file holds one such object per line. Any other file is one entry whose date
comes from --date or from a YYYY-MM-DD prefix in the file name. A directory
imports every .md and .txt file in it.

Entries without an id get one derived from their date, so re-importing the
same day updates the entry instead of duplicating it.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntriesImport,
}

var entriesWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Import a journal directory and keep it in sync",
	Long: `Imports every .md and .txt file in the directory, then watches it.

New and edited files are saved as entries, removed files delete the entry
for their date. The --analyze and --embed flags apply to every change.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntriesWatch,
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [entry-id]",
	Short: "Delete an entry and everything derived from it",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesDelete,
}

func init() {
	entriesListCmd.Flags().IntVarP(&entriesLimit, "limit", "n", 10, "maximum number of entries")
	entriesListCmd.Flags().StringVarP(&entriesSearch, "search", "s", "", "rank entries by hybrid search")
	entriesListCmd.Flags().StringVar(&entriesFrom, "from", "", "only entries on or after this date (YYYY-MM-DD)")
	entriesListCmd.Flags().StringVar(&entriesTo, "to", "", "only entries on or before this date (YYYY-MM-DD)")
	entriesListCmd.Flags().StringVar(&entriesInsights, "insights", "", "filter by analysis state: yes or no")
	entriesListCmd.Flags().BoolVar(&entriesFull, "full", false, "print full text instead of previews")
	entriesListCmd.Flags().BoolVar(&entriesJSON, "json", false, "output entries as JSON")

	entriesImportCmd.Flags().StringVar(&importDate, "date", "", "entry date for a single text file (YYYY-MM-DD)")
	entriesImportCmd.Flags().BoolVar(&importAnalyze, "analyze", false, "queue imported entries for insight extraction")
	entriesImportCmd.Flags().BoolVar(&importEmbed, "embed", false, "embed imported entries immediately")

	entriesWatchCmd.Flags().BoolVar(&importAnalyze, "analyze", false, "queue changed entries for insight extraction")
	entriesWatchCmd.Flags().BoolVar(&importEmbed, "embed", false, "embed changed entries immediately")

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesShowCmd)
	entriesCmd.AddCommand(entriesImportCmd)
	entriesCmd.AddCommand(entriesWatchCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	rootCmd.AddCommand(entriesCmd)
}

func runEntriesList(cmd *cobra.Command, _ []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	dateRange, err := parseDateRange(entriesFrom, entriesTo)
	if err != nil {
		return err
	}

	query := domain.EntryQuery{
		DateRange:      dateRange,
		Search:         entriesSearch,
		Limit:          entriesLimit,
		ReturnFullText: entriesFull,
	}
	switch strings.ToLower(entriesInsights) {
	case "":
	case "yes", "true":
		has := true
		query.HasInsights = &has
	case "no", "false":
		has := false
		query.HasInsights = &has
	default:
		return fmt.Errorf("invalid --insights value %q: use yes or no", entriesInsights)
	}

	entries, err := entryService.QueryEntries(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("failed to query entries: %w", err)
	}

	if entriesJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		cmd.Println("No entries found.")
		return nil
	}

	for i := range entries {
		cmd.Printf("%s  %s\n", entries[i].Date, entries[i].ID)
		text := entries[i].Preview
		if entriesFull {
			text = entries[i].Content
		}
		if text != "" {
			cmd.Printf("    %s\n", strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n    "))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d entries\n", len(entries))
	return nil
}

func runEntriesShow(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	entries, err := entryService.GetEntriesByIDs(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("failed to get entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries found for %s", strings.Join(args, ", "))
	}

	for i := range entries {
		cmd.Printf("# %s (%s)\n\n", entries[i].Date, entries[i].ID)
		cmd.Println(strings.TrimSpace(entries[i].Content))
		cmd.Println()
	}
	return nil
}

func runEntriesImport(cmd *cobra.Command, args []string) error {
	if err := checkImportServices(); err != nil {
		return err
	}

	entries, err := filesystem.Load(args[0], importDate)
	if err != nil {
		return err
	}

	imported, failures := importEntries(cmd.Context(), entries)

	cmd.Printf("Imported %d of %d entries.\n", imported, len(entries))
	for _, f := range failures {
		cmd.Printf("  Error: %s\n", f)
	}
	if imported == 0 && len(entries) > 0 {
		return errors.New("no entries imported")
	}
	return nil
}

func runEntriesWatch(cmd *cobra.Command, args []string) error {
	if err := checkImportServices(); err != nil {
		return err
	}

	ctx := cmd.Context()
	dir := args[0]

	entries, err := filesystem.LoadDir(dir)
	if err != nil {
		return err
	}
	imported, failures := importEntries(ctx, entries)
	cmd.Printf("Imported %d of %d entries.\n", imported, len(entries))
	for _, f := range failures {
		cmd.Printf("  Error: %s\n", f)
	}

	watcher := filesystem.NewWatcher(dir)
	defer watcher.Close()

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", watcher.Dir())
	if onWatchReady != nil {
		onWatchReady()
	}

	for change := range changes {
		switch change.Type {
		case filesystem.ChangeDeleted:
			err := entryService.DeleteEntry(ctx, change.EntryID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				logger.Debug("no entry for removed file %s", change.Path)
			case err != nil:
				cmd.Printf("  Error: %s: %v\n", change.Path, err)
			default:
				cmd.Printf("Deleted entry %s (%s)\n", change.EntryID, change.Path)
			}
		case filesystem.ChangeCreated, filesystem.ChangeUpdated:
			saved, failures := importEntries(ctx, []domain.JournalEntry{*change.Entry})
			for _, f := range failures {
				cmd.Printf("  Error: %s\n", f)
			}
			if saved > 0 {
				cmd.Printf("Saved entry %s (%s)\n", change.Entry.Date, change.Type)
			}
		}
	}

	cmd.Println("Stopped watching.")
	return nil
}

func checkImportServices() error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}
	if importAnalyze && analysisService == nil {
		return errors.New("analysis service not configured")
	}
	if importEmbed && indexService == nil {
		return errors.New("index service not configured")
	}
	return nil
}

// importEntries saves each entry and optionally embeds and queues it.
// It returns the number saved and one message per failure.
func importEntries(ctx context.Context, entries []domain.JournalEntry) (int, []string) {
	imported := 0
	var failures []string
	for i := range entries {
		entry := &entries[i]
		if err := entryService.SaveEntry(ctx, entry); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", entry.Date, err))
			continue
		}
		imported++

		if importEmbed {
			if _, err := indexService.EmbedEntry(ctx, entry.ID, entry.Date, entry.Content); err != nil {
				failures = append(failures, fmt.Sprintf("%s: embedding: %v", entry.Date, err))
			}
		}
		if importAnalyze {
			if err := analysisService.Reanalyze(ctx, entry.ID); err != nil {
				failures = append(failures, fmt.Sprintf("%s: queueing: %v", entry.Date, err))
			}
		}
	}
	return imported, failures
}

func runEntriesDelete(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	if err := entryService.DeleteEntry(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	cmd.Printf("Deleted entry %s\n", args[0])
	return nil
}
