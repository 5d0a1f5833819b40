package daemon

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/database"
	"github.com/cloo-solutions/codeindex/internal/repository"
	"github.com/cloo-solutions/codeindex/internal/service"
	"github.com/spf13/cobra"
)

const statusTimeout = 5 * time.Second

// StatusOutput is the --json form of the status command.
type StatusOutput struct {
	Store     string                `json:"store"`
	Reachable bool                  `json:"reachable"`
	Error     string                `json:"error,omitempty"`
	Report    *service.StatusReport `json:"report,omitempty"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the chunk store and list collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, outputJSON bool) error {
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

	status := service.NewStatusService(repository.NewStore(pool), repository.NewCollectionRepository(pool))
	report, statusErr := status.Status(ctx)

	out := StatusOutput{Store: storeLocation(cfg), Reachable: statusErr == nil, Report: report}
	if statusErr != nil {
		out.Error = statusErr.Error()
	}

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		printStatus(cmd.OutOrStdout(), out)
	}
	return statusErr
}

func printStatus(w io.Writer, out StatusOutput) {
	if !out.Reachable {
		fmt.Fprintf(w, "✗ chunk store is not reachable at %s\n", out.Store)
		return
	}

	fmt.Fprintf(w, "✓ chunk store is reachable at %s\n", out.Store)
	fmt.Fprintf(w, "  Collections: %d\n", len(out.Report.Collections))
	for _, c := range out.Report.Collections {
		fmt.Fprintf(w, "    - %s: %d chunks (%d dimensions)\n", c.Name, c.ChunkCount, c.Dimensions)
	}
}
