package daemon

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/database"
	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/repository"
	"github.com/cloo-solutions/codeindex/internal/service"
	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:     "get <chunk_id>",
		Short:   "Show a stored chunk by ID",
		Long:    "Looks up a chunk in the collection and prints its metadata and content.",
		Aliases: []string{"show"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	return cmd
}

func runGet(cmd *cobra.Command, id string, outputJSON bool) error {
	ctx, cfg, cleanup, err := prepare(cmd, (*config.Config).ValidateStore)
	if err != nil {
		return err
	}
	defer cleanup()

	pool, err := database.NewPool(ctx, cfg.Database())
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	lookup := service.NewSearchService(
		nil,
		repository.NewCollectionRepository(pool),
		repository.NewChunkRepository(pool),
		cfg.Collection,
	)
	chunk, err := lookup.Get(ctx, id)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), chunk)
	}
	printChunk(cmd.OutOrStdout(), chunk)
	return nil
}

func printChunk(w io.Writer, chunk *domain.Chunk) {
	fmt.Fprintf(w, "ID: %s\n", chunk.ID)

	keys := make([]string, 0, len(chunk.Metadata))
	for k := range chunk.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, chunk.Metadata[k])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Content ---")
	fmt.Fprintln(w, chunk.Content)
}
