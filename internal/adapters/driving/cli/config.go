package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// Provider sections accepted by set-key and set-provider.
const (
	sectionEmbedding  = "embedding"
	sectionExtraction = "extraction"
)

var (
	providerFlag string
	modelFlag    string
	skipValidate bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change diarymem configuration.

Settings live in ~/.diarymem/config.toml. Environment variables such as
DIARYMEM_EMBEDDING_PROVIDER or OPENAI_API_KEY override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one configuration value",
	Long: `Set a configuration value by dotted key, for example:

  diarymem config set index.min_similarity 0.4
  diarymem config set scheduler.process_queue.schedule "@every 10m"`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:       "set-key [embedding|extraction]",
	Short:     "Store a provider API key",
	Long:      `Prompt for an API key without echoing it and store it for the given section.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{sectionEmbedding, sectionExtraction},
	RunE:      runConfigSetKey,
}

var configSetProviderCmd = &cobra.Command{
	Use:   "set-provider [embedding|extraction]",
	Short: "Configure the embedding or extraction provider",
	Long: `Choose the provider and model for embeddings or insight extraction.
Without --provider the command asks interactively. The provider is pinged
before the command returns unless --skip-validate is given.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{sectionEmbedding, sectionExtraction},
	RunE:      runConfigSetProvider,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return errors.New("config store not configured")
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

func init() {
	configSetProviderCmd.Flags().StringVar(&providerFlag, "provider", "", "provider name (ollama, openai, anthropic)")
	configSetProviderCmd.Flags().StringVar(&modelFlag, "model", "", "model name (default depends on provider)")
	configSetProviderCmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "do not ping the provider")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configSetProviderCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	if settings.DataDir != "" {
		cmd.Printf("Data directory: %s\n\n", settings.DataDir)
	}

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Extraction]")
	printProvider(cmd, settings.Extraction.Provider, settings.Extraction.Model,
		settings.Extraction.BaseURL, settings.Extraction.APIKey, settings.Extraction.IsConfigured())
	cmd.Printf("  Temperature: %.2f\n", settings.Extraction.Temperature)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Chunk size: %d\n", settings.Index.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", settings.Index.ChunkOverlap)
	cmd.Printf("  Min similarity: %.2f\n", settings.Index.MinSimilarity)
	cmd.Printf("  Embed after idle: %s\n", settings.Index.StaleAfter)
	cmd.Println()

	cmd.Println("[Rate Limit]")
	cmd.Printf("  Requests/second: %g\n", settings.RateLimit.RequestsPerSecond)
	cmd.Printf("  Burst: %d\n", settings.RateLimit.Burst)
	cmd.Println()

	sched := settingsService.GetSchedulerConfig()
	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %t\n", sched.Enabled)
	names := domain.TaskNames()
	for _, id := range []string{domain.TaskIDEmbedStale, domain.TaskIDProcessQueue} {
		task := sched.GetTaskConfig(id)
		cmd.Printf("  %s: %s (enabled: %t)\n", names[id], task.Schedule, task.Enabled)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'diarymem config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (not set)")
	} else {
		cmd.Printf("  Provider: %s\n", provider.Description())
		cmd.Printf("  Model: %s\n", model)
	}
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	if _, ok := configStore.Get(key); !ok {
		return fmt.Errorf("%s is not set", key)
	}

	value := configStore.GetString(key)
	if isSecretKey(key) {
		value = maskAPIKey(value)
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, value := args[0], args[1]
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)

	if env, ok := configStore.(interface{ Overridden(string) bool }); ok && env.Overridden(key) {
		cmd.Printf("Note: %s is overridden by an environment variable.\n", key)
	}

	if settingsService != nil {
		if err := settingsService.Validate(); err != nil {
			cmd.Printf("Warning: %v\n", err)
		}
	}
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	section, err := parseSection(args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Enter %s API key: ", section)
	apiKey := readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
	cmd.Println()
	if apiKey == "" {
		return errors.New("no API key entered")
	}

	if err := configStore.Set(section+".api_key", apiKey); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Printf("Stored %s API key %s\n", section, maskAPIKey(apiKey))
	return nil
}

func runConfigSetProvider(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	section, err := parseSection(args[0])
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if section == sectionEmbedding {
		return configureEmbeddingProvider(cmd, reader)
	}
	return configureExtractionProvider(cmd, reader)
}

//nolint:dupl // Similar to configureExtractionProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, err := chooseProvider(cmd, reader, "Embedding", domain.AllEmbeddingProviders())
	if err != nil {
		return err
	}

	model := chooseModel(cmd, reader, domain.DefaultEmbeddingModels()[provider])
	apiKey, err := chooseAPIKey(cmd, reader, provider)
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	if !skipValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for extraction - intentional for CLI flow clarity
func configureExtractionProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, err := chooseProvider(cmd, reader, "Extraction", domain.AllExtractionProviders())
	if err != nil {
		return err
	}

	model := chooseModel(cmd, reader, domain.DefaultExtractionModels()[provider])
	apiKey, err := chooseAPIKey(cmd, reader, provider)
	if err != nil {
		return err
	}

	if err := settingsService.SetExtractionProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure extraction provider: %w", err)
	}

	if !skipValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateExtractionConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("extraction configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Extraction provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

// chooseProvider uses --provider when given, otherwise asks.
func chooseProvider(
	cmd *cobra.Command, reader *bufio.Reader, label string, providers []domain.AIProvider,
) (domain.AIProvider, error) {
	if providerFlag != "" {
		p := domain.AIProvider(strings.ToLower(providerFlag))
		for _, allowed := range providers {
			if p == allowed {
				return p, nil
			}
		}
		return "", fmt.Errorf("provider %q is not available for %s", providerFlag, strings.ToLower(label))
	}

	cmd.Printf("Select %s Provider\n", label)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	return providers[idx-1], nil
}

// chooseModel uses --model when given, otherwise asks with a default.
func chooseModel(cmd *cobra.Command, reader *bufio.Reader, defaultModel string) string {
	if modelFlag != "" {
		return modelFlag
	}
	if providerFlag != "" {
		return defaultModel
	}
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	return model
}

// chooseAPIKey returns the stored or environment key when one exists,
// otherwise prompts.
func chooseAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider) (string, error) {
	if !provider.RequiresAPIKey() {
		return "", nil
	}

	if settings, err := settingsService.Get(); err == nil {
		for _, s := range []struct {
			provider domain.AIProvider
			key      string
		}{
			{settings.Embedding.Provider, settings.Embedding.APIKey},
			{settings.Extraction.Provider, settings.Extraction.APIKey},
		} {
			if s.provider == provider && s.key != "" {
				return s.key, nil
			}
		}
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if apiKey == "" {
		return "", errors.New("API key is required for this provider")
	}
	return apiKey, nil
}

func parseSection(arg string) (string, error) {
	switch s := strings.ToLower(arg); s {
	case sectionEmbedding, sectionExtraction:
		return s, nil
	default:
		return "", fmt.Errorf("unknown section %q: use embedding or extraction", arg)
	}
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise reads a
// line from fallback.
func readPassword(in io.Reader, fallback *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(fallback)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
