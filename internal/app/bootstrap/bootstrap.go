package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lethe/app/internal/config"
	"lethe/app/internal/data/database"
	"lethe/app/internal/data/migrations"
	datapages "lethe/app/internal/data/pages"
	domainpages "lethe/app/internal/domain/pages"
	"lethe/app/internal/infrastructure/markdown"
	"lethe/app/internal/infrastructure/tldr"
	"lethe/app/internal/platform/dispatch"
	presentationhttp "lethe/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	PageService domainpages.Service
	HTTPServer  *presentationhttp.Server
	Database    *gorm.DB
	Cleanup     func() error
}

// Build composes the application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.MigratePages(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running page migrations"))
	}

	changes := domainpages.NewBroadcaster()

	repo, err := datapages.NewRepository(db, deps.Logger, changes)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page repository"))
	}

	fetcher, err := tldr.NewFetcher(tldr.FetcherOptions{
		URL:     cfg.Archive.URL,
		Path:    cfg.Archive.Path,
		Timeout: cfg.Archive.Timeout,
		Logger:  deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating archive fetcher"))
	}

	service, err := domainpages.NewService(domainpages.ServiceOptions{
		Repository: repo,
		Fetcher:    fetcher,
		Extractor:  tldr.NewExtractor(tldr.ExtractorOptions{Logger: deps.Logger}),
		Renderer:   markdown.NewRenderer(deps.Logger),
		Changes:    changes,
		Dispatchers: dispatch.New(dispatch.Options{
			IOConcurrency:          cfg.Concurrency.IO,
			ComputationConcurrency: cfg.Concurrency.Computation,
		}),
		Platform:  cfg.Platform,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		PageService: service,
		Database:    db,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		PageService: service,
		HTTPServer:  httpServer,
		Database:    db,
		Cleanup:     cleanup,
	}, nil
}
