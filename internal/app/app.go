// Package app builds the service graph shared by cardgend and cardctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/cardbacks"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/catalog"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/contentstore"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/effects"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/export"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/godraw"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/packs"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/server"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger

	Repos     *repository.Store
	Content   *contentstore.Store
	Catalog   *catalog.Catalog
	Analyzer  *llm.Service
	Pipeline  *ingest.Pipeline
	Packs     *packs.Engine
	CardBacks *cardbacks.Library
	GodDraw   *godraw.Service
	Exporter  *export.Service

	gcs *storage.Client
}

type Option func(*buildOptions)

type buildOptions struct {
	rnd        *common.Rand
	httpClient *http.Client
}

// WithRand fixes the random source used for stubs, effects and card-backs.
func WithRand(r *common.Rand) Option {
	return func(o *buildOptions) { o.rnd = r }
}

// WithHTTPClient replaces the client used for god draw downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.httpClient = c }
}

// New wires every component from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bo := buildOptions{}
	for _, o := range opts {
		o(&bo)
	}
	if bo.rnd == nil {
		bo.rnd = common.NewTimeSeededRand()
	}
	if bo.httpClient == nil {
		bo.httpClient = &http.Client{Timeout: cfg.GodDraw.Timeout}
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeResources()
		}
	}()

	a.Repos, err = OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var storeOpts []contentstore.Option
	if cfg.Storage.GCSBucket != "" {
		a.gcs, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		storeOpts = append(storeOpts, contentstore.WithMirror(
			contentstore.NewGCSMirror(a.gcs, cfg.Storage.GCSBucket, "uploads/", logger.With("component", "gcs")),
		))
	}
	a.Content, err = contentstore.New(cfg.Storage.UploadDir, logger.With("component", "contentstore"), storeOpts...)
	if err != nil {
		return nil, err
	}

	a.Catalog = catalog.New(a.Repos.Cards, a.Content, logger.With("component", "catalog"))

	a.Analyzer, err = NewAnalyzer(ctx, cfg, bo.rnd, logger.With("component", "llm"))
	if err != nil {
		return nil, err
	}

	a.Pipeline = ingest.NewPipeline(
		a.Content,
		a.Analyzer,
		effects.NewPolicy(bo.rnd),
		a.Catalog,
		a.Repos.Settings,
		logger.With("component", "ingest"),
	)

	a.CardBacks = cardbacks.NewLibrary(cfg.Server.CardBacksDir, bo.rnd, logger)

	a.Packs = packs.NewEngine(
		a.Repos.Packs,
		a.Pipeline,
		a.Catalog,
		a.CardBacks,
		logger.With("component", "packs"),
		packs.Config{
			Size: cfg.Packs.Size,
			QueueOpts: []async.Option{
				async.WithWorkers(cfg.Packs.Workers),
				async.WithQueueSize(cfg.Packs.QueueSize),
			},
		},
	)

	a.GodDraw = godraw.NewService(
		godraw.NewFetcher(bo.httpClient, logger.With("component", "godraw")),
		a.Pipeline,
		a.Repos.Settings,
		a.CardBacks,
		bo.rnd,
		godraw.Config{
			URL:     cfg.GodDraw.URL,
			Min:     cfg.GodDraw.Min,
			Max:     cfg.GodDraw.Max,
			Timeout: cfg.GodDraw.Timeout,
		},
		logger.With("component", "godraw"),
	)

	a.Exporter = export.NewService(a.Catalog, logger.With("component", "export"))

	logger.Info("app.ready",
		"backend", cfg.Storage.Backend,
		"analyzer", a.Analyzer.Name(),
		"upload_dir", cfg.Storage.UploadDir,
		"gcs_mirror", cfg.Storage.GCSBucket != "",
	)
	return a, nil
}

// Handler returns the HTTP surface backed by this app.
func (a *App) Handler() http.Handler {
	return server.New(server.Deps{
		Ingestor:  a.Pipeline,
		Cards:     a.Catalog,
		Packs:     a.Packs,
		GodDraw:   a.GodDraw,
		CardBacks: a.CardBacks,
		Exporter:  a.Exporter,
		Settings:  a.Repos.Settings,
	}, server.Options{
		StaticDir: a.Config.Server.StaticDir,
		UploadDir: a.Config.Storage.UploadDir,
	}, a.Logger.With("component", "http")).Handler()
}

// Inbox returns the directory watcher, or nil when INBOX_DIR is unset.
func (a *App) Inbox() *ingest.Inbox {
	if a.Config.Inbox.Dir == "" {
		return nil
	}
	return ingest.NewInbox(a.Pipeline, ingest.WatchConfig{
		Roots:       []string{a.Config.Inbox.Dir},
		InitialScan: true,
		Debounce:    a.Config.Inbox.Debounce,
		Logger:      a.Logger.With("component", "inbox"),
	})
}

// Close drains queued packs until ctx is done, then closes storage. When packs
// are still processing at the deadline storage stays open for the workers and
// the returned error names those packs.
func (a *App) Close(ctx context.Context) error {
	if a.Packs != nil {
		if err := a.Packs.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.closeResources()
}

func (a *App) closeResources() error {
	var errs []error
	if a.Repos != nil {
		errs = append(errs, a.Repos.Close())
	}
	if a.gcs != nil {
		errs = append(errs, a.gcs.Close())
	}
	return errors.Join(errs...)
}
