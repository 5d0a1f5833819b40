package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/database"
	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/readiness"
	"github.com/cloo-solutions/codeindex/internal/repository"
	"github.com/cloo-solutions/codeindex/internal/service"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	candidates  int
	maxDistance float64
	limit       int
	outputJSON  bool
}

// QueryOutput is the --json form of a query.
type QueryOutput struct {
	Query      string                `json:"query"`
	Collection string                `json:"collection"`
	TookMS     int64                 `json:"took_ms"`
	Results    []*domain.QueryResult `json:"results"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search indexed chunks",
		Long: `Embed the query text and return the closest chunks of the collection.
A wide candidate set is fetched, candidates beyond --max-distance (cosine
distance) are dropped and the nearest --limit are printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.candidates, "candidates", service.DefaultCandidates, "Number of nearest chunks to fetch before filtering")
	cmd.Flags().Float64Var(&opts.maxDistance, "max-distance", service.DefaultMaxDistance, "Maximum cosine distance of a match")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", service.DefaultTopK, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.outputJSON, "json", false, "Output as JSON")

	return cmd
}

func runQuery(cmd *cobra.Command, text string, opts queryOptions) error {
	ctx, cfg, cleanup, err := prepare(cmd, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer cleanup()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := readiness.Await(ctx, repository.NewStore(pool), cfg.ReadyPollInterval, cfg.StartupTimeout); err != nil {
		return domain.Wrap(domain.ErrDependencyUnavailable, err)
	}
	if err := embedder.Load(ctx); err != nil {
		return domain.Wrap(domain.ErrModelLoad, err)
	}

	search := service.NewSearchService(
		embedder,
		repository.NewCollectionRepository(pool),
		repository.NewChunkRepository(pool),
		cfg.Collection,
	)

	start := time.Now()
	results, err := search.Search(ctx, service.SearchInput{
		Text:        text,
		Candidates:  opts.candidates,
		MaxDistance: opts.maxDistance,
		Limit:       opts.limit,
	})
	if err != nil {
		return err
	}

	out := QueryOutput{
		Query:      text,
		Collection: cfg.Collection,
		TookMS:     time.Since(start).Milliseconds(),
		Results:    results,
	}
	if opts.outputJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printQuery(cmd.OutOrStdout(), out)
	return nil
}

func printQuery(w io.Writer, out QueryOutput) {
	fmt.Fprintf(w, "Searching for: '%s'\n", out.Query)
	fmt.Fprintf(w, "Query took %dms\n", out.TookMS)

	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No matches found within the threshold.")
		return
	}

	fmt.Fprintf(w, "Found %d results:\n\n", len(out.Results))
	for i, r := range out.Results {
		fmt.Fprintf(w, "%d. %s\n", i+1, truncate(firstLine(r.Document), 100))
		fmt.Fprintf(w, "   Distance: %.3f\n", r.Distance)
		fmt.Fprintf(w, "   ID: %s\n", r.ID)
		if i < len(out.Results)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
