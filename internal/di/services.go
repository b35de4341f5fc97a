package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/clientdata"
	"github.com/aristath/corrscope/internal/clients/feed"
	"github.com/aristath/corrscope/internal/config"
	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/metrics"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/internal/reliability"
)

// archiveUploadTimeout bounds one background snapshot upload
const archiveUploadTimeout = 2 * time.Minute

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.UniverseDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}
	container.CompanyRepo = universe.NewCompanyRepository(container.UniverseDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	log.Info().Msg("Repositories initialized")
	return nil
}

// InitializeServices builds the feed client, event system, engine and archive
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.DirectoryService = universe.NewDirectoryService(container.CompanyRepo, cfg.Feed.DirectoryFile, log)
	container.FeedFetcher = newFeedFetcher(container, cfg, log)

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.Engine = correlation.NewEngine(
		container.FeedFetcher,
		container.DirectoryService,
		container.EventManager,
		correlation.EngineConfig{
			Retry: correlation.RetryPolicy{
				Attempts: cfg.Feed.RetryAttempts,
				Delay:    cfg.Feed.RetryDelay,
			},
			ClampCorrelations: cfg.Analytics.ClampCorrelations,
			UniverseLimit:     cfg.Analytics.UniverseLimit,
			KMeansSeed:        cfg.Analytics.KMeansSeed,
		},
		log,
	)

	container.Metrics = metrics.New()
	container.Metrics.Subscribe(container.EventBus)
	container.Engine.OnSnapshot(container.Metrics.ObserveSnapshot)

	if cfg.Archive.Enabled() {
		client, err := reliability.NewR2Client(ctx, reliability.R2Config{
			Endpoint:        cfg.Archive.Endpoint,
			Region:          cfg.Archive.Region,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create archive client: %w", err)
		}
		container.ArchiveService = reliability.NewArchiveService(client, cfg.Archive.Prefix, container.EventManager, log)
		container.Engine.OnSnapshot(container.ArchiveService.Listener(archiveUploadTimeout))
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Snapshot archiving enabled")
	} else {
		log.Info().Msg("Snapshot archiving disabled (ARCHIVE_BUCKET not set)")
	}

	log.Info().Str("feed_source", container.FeedFetcher.Source()).Msg("Services initialized")
	return nil
}

func newFeedFetcher(container *Container, cfg *config.Config, log zerolog.Logger) correlation.Fetcher {
	if cfg.Feed.URL != "" {
		return feed.NewHTTPClient(cfg.Feed.URL, container.ClientDataRepo, cfg.Feed.CacheTTL, log)
	}
	return feed.NewFileClient(cfg.Feed.File, log)
}
