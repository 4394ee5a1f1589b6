// Command diarymem indexes, searches and analyses journal entries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/diarymem/internal/adapters/driven/ai"
	"github.com/custodia-labs/diarymem/internal/adapters/driven/config/file"
	"github.com/custodia-labs/diarymem/internal/adapters/driven/matcher"
	"github.com/custodia-labs/diarymem/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/diarymem/internal/adapters/driving/cli"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/services"
	"github.com/custodia-labs/diarymem/internal/logger"
	"github.com/custodia-labs/diarymem/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	baseConfig, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore, err := file.NewEnvOverlay(baseConfig)
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}()

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(""); err != nil {
		logger.Warn("prompt directory unavailable, using the built-in prompt: %v", err)
	} else {
		logger.Debug("Prompt overrides: %s", ps.Dir())
		prompts = ps
	}

	providers := ai.Init(settings, prompts)
	defer providers.Close()
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}

	chunks := chunker.New(
		chunker.WithChunkSize(settings.Index.ChunkSize),
		chunker.WithOverlap(settings.Index.ChunkOverlap),
	)

	indexService := services.NewIndexService(
		store.EntryStore(), store.ChunkStore(), providers.EmbeddingService, chunks,
	)

	searchService := services.NewSearchService(
		store.LexicalIndex(), store.ChunkStore(), indexService, providers.EmbeddingService,
	)
	searchService.SetMinSimilarity(settings.Index.MinSimilarity)

	entryService := services.NewEntryService(
		store.EntryStore(), store.ChunkStore(), store.InsightStore(), searchService,
	)

	analysisService := services.NewAnalysisService(
		store.EntryStore(), store.InsightStore(), store.QueueStore(),
		providers.Extractor, matcher.NewSellers(),
	)
	analysisService.SetTruncator(providers.Truncator)

	insightService := services.NewInsightService(store.InsightStore(), searchService)

	scheduler := services.NewScheduler(
		settingsService.GetSchedulerConfig(), store.SchedulerStore(), indexService, analysisService,
	)
	scheduler.SetStaleAge(settings.Index.StaleAfter)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings:  settingsService,
		Entries:   entryService,
		Index:     indexService,
		Search:    searchService,
		Analysis:  analysisService,
		Insights:  insightService,
		Scheduler: scheduler,
		Config:    configStore,
	})

	return cli.Execute(ctx)
}
