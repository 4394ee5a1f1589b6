package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

var (
	insightsType      string
	insightsName      string
	insightsSentiment string
	insightsLimit     int
	insightsFrom      string
	insightsTo        string
	insightsJSON      bool

	insightsCategories []string
	insightsSearch     string
	insightsGroup      bool
	insightsOrder      string
	insightsAsc        bool

	insightsRecentLimit int
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Explore extracted emotions and people",
}

var insightsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent insights",
	Args:  cobra.NoArgs,
	RunE:  runInsightsList,
}

var insightsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter, group and order insights",
	Long: `Queries insights with the same filters the MCP query_insights tool accepts.

Examples:
  # Who did I write about most this year?
  diarymem insights query --category people --group --order count --from 2026-01-01

  # Strongest negative emotions
  diarymem insights query --category emotions --sentiment negative --order intensity`,
	Args: cobra.NoArgs,
	RunE: runInsightsQuery,
}

var insightsRecentCmd = &cobra.Command{
	Use:   "recent [emotion|person]",
	Short: "List insights grouped into This Week, This Month and Older",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsightsRecent,
}

var insightsEmotionCmd = &cobra.Command{
	Use:   "emotion [emotion]",
	Short: "Show every occurrence of an emotion",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsightsEmotion,
}

var insightsPersonCmd = &cobra.Command{
	Use:   "person [name]",
	Short: "Show every mention of a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsightsPerson,
}

var insightsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarise emotions and people",
	Args:  cobra.NoArgs,
	RunE:  runInsightsSummary,
}

func init() {
	insightsListCmd.Flags().StringVarP(&insightsType, "type", "t", "", "insight type: emotion or person")
	insightsListCmd.Flags().StringVar(&insightsName, "name", "", "only insights with this name")
	insightsListCmd.Flags().StringVar(&insightsSentiment, "sentiment", "", "only insights with this sentiment")
	insightsListCmd.Flags().IntVarP(&insightsLimit, "limit", "n", 20, "maximum number of insights")

	insightsQueryCmd.Flags().StringSliceVarP(&insightsCategories, "category", "c", nil, "people or emotions")
	insightsQueryCmd.Flags().StringVar(&insightsSentiment, "sentiment", "", "only insights with this sentiment")
	insightsQueryCmd.Flags().StringVar(&insightsName, "name", "", "only insights with this exact name")
	insightsQueryCmd.Flags().StringVarP(&insightsSearch, "search", "s", "", "substring match on name and context")
	insightsQueryCmd.Flags().StringVar(&insightsFrom, "from", "", "only entries on or after this date (YYYY-MM-DD)")
	insightsQueryCmd.Flags().StringVar(&insightsTo, "to", "", "only entries on or before this date (YYYY-MM-DD)")
	insightsQueryCmd.Flags().BoolVarP(&insightsGroup, "group", "g", false, "group insights by entity")
	insightsQueryCmd.Flags().StringVarP(&insightsOrder, "order", "o", "", "order by count, date, intensity or name")
	insightsQueryCmd.Flags().BoolVar(&insightsAsc, "asc", false, "ascending order")
	insightsQueryCmd.Flags().IntVarP(&insightsLimit, "limit", "n", 20, "maximum number of results")
	insightsQueryCmd.Flags().BoolVar(&insightsJSON, "json", false, "output results as JSON")

	insightsRecentCmd.Flags().StringVar(&insightsFrom, "from", "", "only entries on or after this date (YYYY-MM-DD)")
	insightsRecentCmd.Flags().StringVar(&insightsTo, "to", "", "only entries on or before this date (YYYY-MM-DD)")
	insightsRecentCmd.Flags().IntVarP(&insightsRecentLimit, "limit", "n", 100, "maximum number of insights")
	insightsRecentCmd.Flags().BoolVar(&insightsJSON, "json", false, "output groups as JSON")

	insightsEmotionCmd.Flags().BoolVar(&insightsJSON, "json", false, "output occurrences as JSON")
	insightsPersonCmd.Flags().BoolVar(&insightsJSON, "json", false, "output occurrences as JSON")

	insightsSummaryCmd.Flags().StringVar(&insightsFrom, "from", "", "only entries on or after this date (YYYY-MM-DD)")
	insightsSummaryCmd.Flags().StringVar(&insightsTo, "to", "", "only entries on or before this date (YYYY-MM-DD)")
	insightsSummaryCmd.Flags().BoolVar(&insightsJSON, "json", false, "output the summary as JSON")

	insightsCmd.AddCommand(insightsListCmd)
	insightsCmd.AddCommand(insightsQueryCmd)
	insightsCmd.AddCommand(insightsRecentCmd)
	insightsCmd.AddCommand(insightsEmotionCmd)
	insightsCmd.AddCommand(insightsPersonCmd)
	insightsCmd.AddCommand(insightsSummaryCmd)
	rootCmd.AddCommand(insightsCmd)
}

func runInsightsList(cmd *cobra.Command, _ []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}

	filter := domain.InsightFilter{
		Name:      insightsName,
		Sentiment: domain.Sentiment(strings.ToLower(insightsSentiment)),
		Limit:     insightsLimit,
	}
	if insightsType != "" {
		t, ok := domain.InsightTypeFromCategory(insightsType)
		if !ok {
			return fmt.Errorf("invalid type %q: use emotion or person", insightsType)
		}
		filter.Type = t
	}

	insights, err := insightService.GetFilteredInsights(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list insights: %w", err)
	}
	if len(insights) == 0 {
		cmd.Println("No insights found.")
		return nil
	}

	for i := range insights {
		in := insights[i]
		line := fmt.Sprintf("%s  %-7s  %s (%s", in.EntryDate, in.Type, in.Content, in.Metadata.Sentiment())
		if in.Metadata.Emotion != nil {
			line += fmt.Sprintf(", intensity %d", in.Metadata.Emotion.Intensity)
		}
		if in.Metadata.Person != nil && in.Metadata.Person.Relationship != "" {
			line += ", " + in.Metadata.Person.Relationship
		}
		cmd.Println(line + ")")
	}
	cmd.Printf("\nTotal: %d insights\n", len(insights))
	return nil
}

func runInsightsQuery(cmd *cobra.Command, _ []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}

	dateRange, err := parseDateRange(insightsFrom, insightsTo)
	if err != nil {
		return err
	}

	query := domain.InsightQuery{
		Filters: domain.InsightQueryFilters{
			Categories: insightsCategories,
			DateRange:  dateRange,
			Search:     insightsSearch,
			Name:       insightsName,
		},
		Limit: insightsLimit,
	}
	for _, c := range insightsCategories {
		if _, ok := domain.InsightTypeFromCategory(c); !ok {
			return fmt.Errorf("invalid category %q: use people or emotions", c)
		}
	}
	if insightsSentiment != "" {
		query.Filters.Sentiments = []domain.Sentiment{domain.Sentiment(strings.ToLower(insightsSentiment))}
	}
	if insightsGroup {
		query.GroupBy = domain.GroupByEntity
	}
	if insightsOrder != "" {
		field := domain.OrderField(strings.ToLower(insightsOrder))
		switch field {
		case domain.OrderByCount, domain.OrderByDate, domain.OrderByIntensity, domain.OrderByName:
		default:
			return fmt.Errorf("invalid order %q: use count, date, intensity or name", insightsOrder)
		}
		direction := "desc"
		if insightsAsc {
			direction = "asc"
		}
		query.OrderBy = &domain.OrderBy{Field: field, Direction: direction}
	}

	result, err := insightService.QueryInsights(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("failed to query insights: %w", err)
	}

	if insightsJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(result.Groups) == 0 && len(result.Insights) == 0 {
		cmd.Println("No insights found.")
		return nil
	}

	for i := range result.Groups {
		g := result.Groups[i]
		line := fmt.Sprintf("%-7s  %s: %d entries, last %s", g.Type, g.Name, g.Count, g.MostRecentDate)
		if g.AvgIntensity != nil {
			line += fmt.Sprintf(", avg intensity %.1f", *g.AvgIntensity)
		}
		if g.Relationship != "" {
			line += ", " + g.Relationship
		}
		cmd.Println(line)
	}
	for i := range result.Insights {
		f := result.Insights[i]
		line := fmt.Sprintf("%s  %-7s  %s (%s", f.Date, f.Type, f.Name, f.Sentiment)
		if f.Intensity > 0 {
			line += fmt.Sprintf(", intensity %d", f.Intensity)
		}
		cmd.Println(line + ")")
	}
	cmd.Printf("\nShowing %d of %d\n", len(result.Groups)+len(result.Insights), result.Total)
	return nil
}

func runInsightsRecent(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}

	t, ok := domain.InsightTypeFromCategory(args[0])
	if !ok {
		return fmt.Errorf("invalid type %q: use emotion or person", args[0])
	}
	dateRange, err := parseDateRange(insightsFrom, insightsTo)
	if err != nil {
		return err
	}

	groups, err := insightService.RecentInsights(cmd.Context(), t, dateRange, insightsRecentLimit)
	if err != nil {
		return fmt.Errorf("failed to list insights: %w", err)
	}

	if insightsJSON {
		if groups == nil {
			groups = []domain.InsightTimeGroup{}
		}
		data, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal insights: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(groups) == 0 {
		cmd.Println("No insights found.")
		return nil
	}

	for i, g := range groups {
		if i > 0 {
			cmd.Println()
		}
		cmd.Println(string(g.Bucket))
		for _, f := range g.Insights {
			line := fmt.Sprintf("  %s  %s (%s", f.Date, f.Name, f.Sentiment)
			if f.Intensity > 0 {
				line += fmt.Sprintf(", intensity %d", f.Intensity)
			}
			if f.Relationship != "" {
				line += ", " + f.Relationship
			}
			cmd.Println(line + ")")
		}
	}
	return nil
}

func runInsightsEmotion(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}
	occurrences, err := insightService.EmotionOccurrences(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get occurrences: %w", err)
	}
	return outputOccurrences(cmd, args[0], occurrences)
}

func runInsightsPerson(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}
	occurrences, err := insightService.PersonOccurrences(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get occurrences: %w", err)
	}
	return outputOccurrences(cmd, args[0], occurrences)
}

func outputOccurrences(cmd *cobra.Command, name string, occurrences []domain.Occurrence) error {
	if insightsJSON {
		if occurrences == nil {
			occurrences = []domain.Occurrence{}
		}
		data, err := json.MarshalIndent(occurrences, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal occurrences: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(occurrences) == 0 {
		cmd.Printf("No occurrences of %q.\n", name)
		return nil
	}

	for i := range occurrences {
		o := occurrences[i]
		line := fmt.Sprintf("%s  %s", o.Date, o.Sentiment)
		if o.Intensity > 0 {
			line += fmt.Sprintf(", intensity %d", o.Intensity)
		}
		cmd.Println(line)
		for _, detail := range []string{o.Trigger, o.Context} {
			if detail != "" {
				cmd.Printf("    %s\n", detail)
			}
		}
		if o.Quote != "" {
			cmd.Printf("    %q\n", truncate(o.Quote, searchSnippetLength))
		}
	}
	cmd.Printf("\nTotal: %d occurrences\n", len(occurrences))
	return nil
}

func runInsightsSummary(cmd *cobra.Command, _ []string) error {
	if insightService == nil {
		return errors.New("insight service not configured")
	}

	dateRange, err := parseDateRange(insightsFrom, insightsTo)
	if err != nil {
		return err
	}

	agg, err := insightService.Aggregated(cmd.Context(), dateRange)
	if err != nil {
		return fmt.Errorf("failed to summarise insights: %w", err)
	}

	if insightsJSON {
		data, err := json.MarshalIndent(agg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Emotions")
	if len(agg.Emotions) == 0 {
		cmd.Println("  (none)")
	}
	for _, e := range agg.Emotions {
		cmd.Printf("  %-20s %4d  avg intensity %.1f\n", e.Emotion, e.Count, e.AvgIntensity)
		if len(e.Triggers) > 0 {
			cmd.Printf("    triggers: %s\n", strings.Join(e.Triggers, "; "))
		}
	}

	cmd.Println()
	cmd.Println("People")
	if len(agg.People) == 0 {
		cmd.Println("  (none)")
	}
	for _, p := range agg.People {
		line := fmt.Sprintf("  %-20s %4d  %s", p.Name, p.Mentions, p.Sentiment)
		if p.Relationship != "" {
			line += ", " + p.Relationship
		}
		cmd.Println(line)
	}
	return nil
}
