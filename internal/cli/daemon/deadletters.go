package daemon

import (
	"fmt"
	"io"

	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/storage"
	"github.com/spf13/cobra"
)

// DeadLettersCmd creates the dead-letters command.
func DeadLettersCmd() *cobra.Command {
	var (
		day        string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List requests that were answered with an error",
		Long: `Read the dead-letter archive written by serve when CODEINDEX_DEADLETTER_BUCKET
is set. Every entry holds the request line, its correlation id and the error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeadLetters(cmd, day, outputJSON)
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Only list entries archived on this UTC day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	return cmd
}

func runDeadLetters(cmd *cobra.Command, day string, outputJSON bool) error {
	ctx, cfg, cleanup, err := prepare(cmd, (*config.Config).ValidateDeadLetter)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	entries, err := storage.NewDeadLetterArchive(client, cfg.DeadLetterPrefix).List(ctx, day)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	printDeadLetters(cmd.OutOrStdout(), entries)
	return nil
}

func printDeadLetters(w io.Writer, entries []storage.StoredDeadLetter) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No dead letters found.")
		return
	}

	fmt.Fprintf(w, "Found %d dead letters:\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.ReceivedAt.UTC().Format("2006-01-02 15:04:05"), e.ID)
		if e.Code != "" {
			fmt.Fprintf(w, "   Error: %s (%s)\n", e.Message, e.Code)
		} else {
			fmt.Fprintf(w, "   Error: %s\n", e.Message)
		}
		fmt.Fprintf(w, "   Line: %s\n", truncate(e.Line, 100))
		fmt.Fprintf(w, "   Key: %s\n", e.Key)
	}
}
