// Package server exposes the card generator over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/server/middleware"
)

const (
	// MaxBatchFiles caps /api/batch-generate.
	MaxBatchFiles = 10
	// batchParallelism bounds concurrent ingestion in a batch request.
	batchParallelism = 4

	maxMultipartMemory = 32 << 20
	maxUploadBytes     = 512 << 20
)

type CardReader interface {
	Get(ctx context.Context, fingerprint string) (entity.Card, error)
	ListVisible(ctx context.Context) ([]entity.Card, error)
}

type PackService interface {
	CreatePacks(ctx context.Context, files []async.Upload) ([]string, error)
	Open(ctx context.Context, id string) ([]entity.Card, error)
	Get(ctx context.Context, id string) (entity.Pack, error)
	ListPending(ctx context.Context) ([]entity.Pack, error)
	Stats() async.Stats
}

type GodDrawer interface {
	Draw(ctx context.Context) ([]entity.Card, error)
}

type CardBackLister interface {
	List() ([]string, error)
}

type Exporter interface {
	ExportCardsXLSX(ctx context.Context) ([]byte, error)
}

// Deps are the services the handlers call. All are required.
type Deps struct {
	Ingestor  ingest.Ingestor
	Cards     CardReader
	Packs     PackService
	GodDraw   GodDrawer
	CardBacks CardBackLister
	Exporter  Exporter
	Settings  repository.SettingsRepository
}

type Options struct {
	StaticDir string
	UploadDir string
}

type Server struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

func New(deps Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, opts: opts, logger: logger}
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/batch-generate", s.handleBatchGenerate)
	mux.HandleFunc("POST /api/god-draw", s.handleGodDraw)
	mux.HandleFunc("POST /api/upload-packs", s.handleUploadPacks)
	mux.HandleFunc("GET /api/packs", s.handleListPacks)
	mux.HandleFunc("GET /api/packs/{id}", s.handleGetPack)
	mux.HandleFunc("POST /api/open-pack/{id}", s.handleOpenPack)
	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("GET /api/cards/export", s.handleExportCards)
	mux.HandleFunc("GET /api/card-backs", s.handleCardBacks)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))
		index := filepath.Join(s.opts.StaticDir, "index.html")
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, index)
		})
	}
	if s.opts.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.UploadDir))))
	}

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(s.logger, "/api/health"),
		middleware.Recovery(s.logger),
		middleware.SecurityHeaders,
		middleware.CORS,
	)
}
