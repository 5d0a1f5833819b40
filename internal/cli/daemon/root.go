// Package daemon holds the codeindexd commands: serve runs the stdio indexing
// daemon, the others inspect the chunk store and the dead-letter archive.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/codeindex/internal/cli"
	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/embedding"
	"github.com/cloo-solutions/codeindex/internal/logging"
	"github.com/cloo-solutions/codeindex/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootCmd builds the codeindexd command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codeindexd",
		Short: "Code chunk indexing daemon",
		Long: `codeindexd embeds source-code chunks and stores them in Postgres with pgvector.

"serve" (the default) speaks a JSON-lines protocol on stdin/stdout and is meant
to be driven by a parent process. Settings come from CODEINDEX_* environment
variables and .env; the flags below override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("host", "", "Database host")
	flags.Int("port", 0, "Database port")
	flags.Duration("timeout", 0, "Startup budget for loading the model and reaching the database")
	flags.String("model", "", "Embedding model name")
	flags.String("provider", "", "Embedding provider: openai or static")
	flags.String("collection", "", "Collection to index into")
	flags.String("log-level", "", "Log level")
	for name, env := range map[string]string{
		"host":       "CODEINDEX_DB_HOST",
		"port":       "CODEINDEX_DB_PORT",
		"timeout":    "CODEINDEX_STARTUP_TIMEOUT",
		"model":      "CODEINDEX_EMBEDDING_MODEL",
		"provider":   "CODEINDEX_EMBEDDING_PROVIDER",
		"collection": "CODEINDEX_COLLECTION",
		"log-level":  "CODEINDEX_LOG_LEVEL",
	} {
		cli.BindEnv(flags, name, env)
	}
	cli.AddHelpJSONFlag(root)

	root.AddCommand(ServeCmd())
	root.AddCommand(QueryCmd())
	root.AddCommand(StatusCmd())
	root.AddCommand(GetCmd())
	root.AddCommand(DeadLettersCmd())

	return root
}

// applyOverrides copies explicitly set flags over the environment config.
func applyOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("host") {
		cfg.DBHost, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.DBPort, _ = flags.GetInt("port")
	}
	if flags.Changed("timeout") {
		cfg.StartupTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("model") {
		cfg.EmbeddingModel, _ = flags.GetString("model")
	}
	if flags.Changed("provider") {
		cfg.EmbeddingProvider, _ = flags.GetString("provider")
	}
	if flags.Changed("collection") {
		cfg.Collection, _ = flags.GetString("collection")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
}

// prepare loads and validates config, then returns a context carrying the
// logger that is cancelled on SIGINT or SIGTERM. cleanup flushes telemetry.
func prepare(cmd *cobra.Command, validate func(*config.Config) error) (ctx context.Context, cfg *config.Config, cleanup func(), err error) {
	cfg, err = config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cmd.Flags(), cfg)
	if err := validate(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Output: cmd.ErrOrStderr()})

	shutdownTelemetry := func() {}
	if cfg.HasSentry() {
		shutdownTelemetry, err = telemetry.Init(telemetry.Config{
			DSN:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Logger:      logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry init failed (continuing without tracing)")
			shutdownTelemetry = func() {}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = logger.WithContext(ctx)

	return ctx, cfg, func() {
		stop()
		shutdownTelemetry()
	}, nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	e, err := embedding.New(embedding.Options{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		CacheSize:  cfg.EmbeddingCacheSize,
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return e, nil
}

func storeLocation(cfg *config.Config) string {
	return fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
}
