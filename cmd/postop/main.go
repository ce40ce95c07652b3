// Command postop collects post-operative care PDFs and stores their analysis.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/custodia-labs/postop-collector/internal/adapters/driven/config/file"
	"github.com/custodia-labs/postop-collector/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/postop-collector/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/postop-collector/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/postop-collector/internal/adapters/driving/cli"
	"github.com/custodia-labs/postop-collector/internal/analysers/content"
	"github.com/custodia-labs/postop-collector/internal/analysers/procedure"
	"github.com/custodia-labs/postop-collector/internal/analysers/timeline"
	"github.com/custodia-labs/postop-collector/internal/connectors/google"
	"github.com/custodia-labs/postop-collector/internal/connectors/web"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/services"
	"github.com/custodia-labs/postop-collector/internal/logger"
	"github.com/custodia-labs/postop-collector/internal/normalisers/pdf"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// stores groups the metadata store ports of whichever backend is configured.
type stores struct {
	docs      driven.DocumentStore
	runs      driven.RunStore
	analyses  driven.AnalysisStore
	cache     driven.SearchCache
	stats     driven.StatisticsStore
	scheduler driven.SchedulerStore
	closer    io.Closer
}

func run() error {
	ctx := context.Background()

	if err := file.LoadDotEnv(".env"); err != nil {
		return err
	}

	configStore, err := file.NewConfigStore(os.Getenv("POSTOP_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		// config set must still work to repair the file.
		logger.Warn("%v", err)
	}

	if err := logger.SetLevel(settings.Log.Level); err != nil {
		logger.Warn("%v", err)
	}
	if settings.Log.Dir != "" {
		if _, err := logger.EnableFile(settings.Log.Dir, "collector"); err != nil {
			logger.Warn("file logging disabled: %v", err)
		}
		defer func() { _ = logger.DisableFile() }()
	}

	outputDir := settings.OutputDirectory
	if outputDir == "" {
		outputDir = filepath.Join(xdg.DataHome, "postop-collector")
	}

	st, err := openStores(ctx, settings, outputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.closer.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}()

	blobs, err := files.NewBlobStore(filepath.Join(outputDir, files.Subdirectory))
	if err != nil {
		return err
	}

	client, err := web.NewClient(web.ClientConfig{
		UserAgent: settings.HTTP.UserAgent,
		Timeout:   settings.HTTP.RequestTimeout,
		VerifySSL: settings.HTTP.VerifySSL,
		ProxyURL:  settings.HTTP.ProxyURL,
	})
	if err != nil {
		return err
	}
	limiter := web.NewRateLimiter(settings.HTTP.MaxRequestsPerSecond)
	fetcher := web.NewFetcher(client, limiter, settings.HTTP.UserAgent, settings.MaxFileSizeBytes())
	crawler := web.NewCrawler(client, limiter, settings.HTTP.UserAgent, settings.Collection.MaxPagesPerSite)

	known, err := st.docs.KnownURLs(ctx)
	if err != nil {
		return fmt.Errorf("loading known urls: %w", err)
	}
	fetcher.Seed(known)

	provider, err := google.NewSearchProvider(ctx, google.Config{
		APIKey:         settings.Search.APIKey,
		SearchEngineID: settings.Search.SearchEngineID,
	})
	if err != nil {
		return err
	}
	searchService := services.NewCachedSearch(provider, st.cache, settings.Search.CacheTTL)

	var search driven.SearchProvider
	if settings.HasSearchCredentials() {
		search = searchService
	}

	if err := pdf.CheckAvailable(); err != nil {
		logger.Warn("%v\n%s", err, pdf.InstallInstructions())
	}
	extractor := pdf.NewDefault(settings.Extraction.EnableOCR)
	logger.Debug("Extraction strategies: %s", strings.Join(extractor.Strategies(), ", "))

	collector := services.NewCollector(services.CollectorPorts{
		Runs:        st.runs,
		Blobs:       blobs,
		Fetcher:     fetcher,
		Crawler:     crawler,
		Search:      search,
		Extractor:   extractor,
		Analyser:    content.New(content.DefaultVocabulary()),
		Categoriser: procedure.New(procedure.DefaultProfiles()),
		Timeline:    timeline.New(),
	}, services.CollectorConfig{
		MaxPDFsPerSource: settings.Collection.MaxPDFsPerSource,
		MinConfidence:    settings.Collection.MinConfidence,
		Workers:          settings.Collection.Workers,
		SearchResults:    settings.Search.ResultsPerPage,
		MinTextLength:    settings.Extraction.MinTextLength,
	})

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Collection: collector,
		Document:   services.NewDocumentService(st.docs, st.analyses, st.stats, blobs),
		Search:     searchService,
		Settings:   settingsService,
		Scheduler:  services.NewScheduler(settings.Scheduler, st.scheduler, collector, searchService),
	})

	return cli.Execute(ctx)
}

// openStores connects the configured metadata backend.
func openStores(ctx context.Context, settings *domain.Settings, outputDir string) (*stores, error) {
	switch settings.Database.Driver {
	case domain.DatabasePostgres:
		pg, err := postgres.Open(ctx, settings.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return &stores{
			docs:      pg,
			runs:      pg,
			analyses:  pg,
			cache:     pg,
			stats:     pg,
			scheduler: pg,
			closer:    pg,
		}, nil

	case domain.DatabaseSQLite, "":
		db, err := sqlite.NewStore(outputDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		logger.Debug("Using database %s", db.Path())
		return &stores{
			docs:      db.DocumentStore(),
			runs:      db.RunStore(),
			analyses:  db.AnalysisStore(),
			cache:     db.SearchCache(),
			stats:     db.StatisticsStore(),
			scheduler: db.SchedulerStore(),
			closer:    db,
		}, nil

	default:
		return nil, errors.New("unknown database driver " + settings.Database.Driver.String())
	}
}
