// Package cli provides the diarymem command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// verbose enables debug logging for every command.
var verbose bool

// Services injected by main before Execute.
var (
	settingsService driving.SettingsService
	entryService    driving.EntryService
	indexService    driving.IndexService
	searchService   driving.SearchService
	analysisService driving.AnalysisService
	insightService  driving.InsightService
	scheduler       driving.Scheduler
	configStore     driven.ConfigStore
)

// Services holds the driving ports the commands call into.
// Any field may be nil; commands that need it report it as not configured.
type Services struct {
	Settings  driving.SettingsService
	Entries   driving.EntryService
	Index     driving.IndexService
	Search    driving.SearchService
	Analysis  driving.AnalysisService
	Insights  driving.InsightService
	Scheduler driving.Scheduler
	Config    driven.ConfigStore
}

var rootCmd = &cobra.Command{
	Use:   "diarymem",
	Short: "Searchable memory for your journal",
	Long: `diarymem indexes journal entries for hybrid keyword and semantic search,
extracts the emotions and people in each entry, and answers questions about them.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	settingsService = s.Settings
	entryService = s.Entries
	indexService = s.Index
	searchService = s.Search
	analysisService = s.Analysis
	insightService = s.Insights
	scheduler = s.Scheduler
	configStore = s.Config
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Long-running commands stop when ctx is
// cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
