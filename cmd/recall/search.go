package recall

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundprediction/recall/pkg/server/dto"
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Run one search and print the assembled context",
	Long: `Run one search against the configured stores and print the assembled
context, followed by the score of every returned entity and any
suggestions. Use --json to print the complete result instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchKinds       []string
	searchLimit       int
	searchIntent      string
	searchNoExpansion bool
	searchMaxDepth    int
	searchJSON        bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceVar(&searchKinds, "kinds", nil, "Restrict results to these kinds")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of primary results")
	searchCmd.Flags().StringVar(&searchIntent, "intent", "", "Override the inferred intent")
	searchCmd.Flags().BoolVar(&searchNoExpansion, "no-expansion", false, "Skip relationship expansion")
	searchCmd.Flags().IntVar(&searchMaxDepth, "max-depth", 0, "Maximum relationship hops")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the result as JSON")

	addStorageFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := dto.SearchRequest{
		Query:            strings.Join(args, " "),
		Kinds:            searchKinds,
		Limit:            searchLimit,
		Intent:           searchIntent,
		DisableExpansion: searchNoExpansion,
		MaxDepth:         searchMaxDepth,
	}
	q, err := req.ToQuery()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.client.SearchWithQuery(ctx, q)
	out := cmd.OutOrStdout()

	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Intent: %s  Found: %d  Latency: %.2fms\n\n", result.Intent, result.TotalFound, result.LatencyMs)
	if result.Context != "" {
		fmt.Fprintln(out, result.Context)
		fmt.Fprintln(out)
	}
	for _, e := range append(result.Primary, result.Related...) {
		fmt.Fprintf(out, "%.3f  %-10s %s  %s\n", result.Scores[e.ID], e.Kind, e.ID, e.Title)
	}
	for _, s := range result.Suggestions {
		fmt.Fprintf(out, "Suggestion: %s\n", s)
	}
	if result.Failed() {
		return fmt.Errorf("search degraded: %s", result.Error)
	}
	return nil
}
