package daemon

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/codeindex/internal/cli"
	"github.com/cloo-solutions/codeindex/internal/config"
	"github.com/cloo-solutions/codeindex/internal/database"
	"github.com/cloo-solutions/codeindex/internal/embedding"
	"github.com/cloo-solutions/codeindex/internal/protocol"
	"github.com/cloo-solutions/codeindex/internal/repository"
	"github.com/cloo-solutions/codeindex/internal/service"
	"github.com/cloo-solutions/codeindex/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indexing requests on stdin/stdout",
		Long: `Start the indexing daemon. It loads the embedding model, waits for the
database, applies migrations, writes {"status":"READY"} and then answers one
JSON line per request line until "exit" or end of input.`,
		Args:        cobra.NoArgs,
		RunE:        runServe,
		Annotations: map[string]string{cli.ProtocolAnnotation: protocol.Name},
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cli.BindEnv(cmd.Flags(), "no-migrate", "CODEINDEX_NO_MIGRATE")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cfg, cleanup, err := prepare(cmd, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer cleanup()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); noMigrate {
		cfg.NoMigrate = true
	}

	logger := zerolog.Ctx(ctx)

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database())
	if err != nil {
		return err
	}
	defer pool.Close()

	indexing := service.NewIndexingService(
		embedder,
		repository.NewCollectionRepository(pool),
		repository.NewChunkRepository(pool),
		cfg.Collection,
	)

	var dispatcherOpts []protocol.DispatcherOption
	if cfg.HasDeadLetter() {
		archive, err := newDeadLetterArchive(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("dead-letter archive disabled")
		} else {
			dispatcherOpts = append(dispatcherOpts, protocol.WithArchive(archive))
			logger.Info().Str("bucket", cfg.DeadLetterBucket).Msg("dead-letter archive enabled")
		}
	}

	var migrate func(context.Context) error
	if !cfg.NoMigrate {
		migrate = func(ctx context.Context) error {
			return database.Migrate(ctx, cfg.Database().URL())
		}
	}

	logger.Info().
		Str("store", storeLocation(cfg)).
		Str("collection", cfg.Collection).
		Str("provider", cfg.EmbeddingProvider).
		Str("model", embedder.ModelName()).
		Msg("starting indexer")

	d := protocol.NewDaemon(protocol.Config{
		In:             cmd.InOrStdin(),
		Out:            cmd.OutOrStdout(),
		Model:          embedder,
		Store:          repository.NewStore(pool),
		Handler:        protocol.NewDispatcher(indexing, dispatcherOpts...),
		Migrate:        migrate,
		PollInterval:   cfg.ReadyPollInterval,
		StartupTimeout: cfg.StartupTimeout,
	})
	err = d.Run(ctx)
	if cached, ok := embedder.(*embedding.CachedEmbedder); ok {
		logger.Debug().Int("cached_embeddings", cached.Len()).Msg("embedding cache at shutdown")
	}
	return err
}

func newDeadLetterArchive(ctx context.Context, cfg *config.Config) (*storage.DeadLetterArchive, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", cfg.DeadLetterBucket, err)
	}
	return storage.NewDeadLetterArchive(client, cfg.DeadLetterPrefix), nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.DeadLetterBucket,
		UsePathStyle:    cfg.S3Endpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}
