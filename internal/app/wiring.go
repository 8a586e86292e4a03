package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/imaging"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm/gemini"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm/openai"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/boltdb"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/jsonfile"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/sqlstore"
)

// OpenRepositories opens the backend named by STORAGE_BACKEND.
func OpenRepositories(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.Store, error) {
	log := logger.With("component", "repository", "backend", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case common.BackendJSON:
		return jsonfile.Open(
			cfg.DataPath(cfg.Storage.CardsDB),
			cfg.DataPath(cfg.Storage.PacksDB),
			cfg.DataPath(cfg.Storage.SettingsDB),
			log,
		)
	case common.BackendBolt:
		s, err := boltdb.New(ctx, cfg.DataPath(cfg.Storage.BoltPath), log)
		if err != nil {
			return nil, err
		}
		return s.Store(), nil
	case common.BackendSQLite:
		path := cfg.Storage.DSN
		if path != ":memory:" {
			path = cfg.DataPath(path)
		}
		db, err := sqlstore.OpenSQLite(ctx, path, log)
		if err != nil {
			return nil, err
		}
		return db.Store(), nil
	case common.BackendPostgres:
		db, err := sqlstore.OpenPostgres(ctx, cfg.Storage.DSN, sqlstore.DefaultPoolConfig(), log)
		if err != nil {
			return nil, err
		}
		return db.Store(), nil
	default:
		return nil, common.InvalidInputf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewAnalyzer builds the analysis service: the configured VLM transport with
// the stub as fallback, or the stub alone.
func NewAnalyzer(ctx context.Context, cfg *common.Config, rnd *common.Rand, logger *slog.Logger) (*llm.Service, error) {
	stub := llm.NewStubAnalyzer(rnd, cfg.Analyzer.StubDelay)
	img := imaging.Options{MaxSide: cfg.Analyzer.MaxImageSide, Quality: cfg.Analyzer.JPEGQuality}

	var transport llm.Transport
	switch kind := cfg.EffectiveAnalyzer(); kind {
	case common.AnalyzerStub:
		return llm.NewService(nil, stub, logger), nil
	case common.AnalyzerOpenAI:
		transport = openai.NewClient(openai.Config{
			APIKey:      cfg.Analyzer.APIKey,
			BaseURL:     cfg.Analyzer.APIBase,
			Model:       cfg.Analyzer.Model,
			Temperature: cfg.Analyzer.Temperature,
			MaxTokens:   cfg.Analyzer.MaxTokens,
			Timeout:     cfg.Analyzer.Timeout,
		}, logger)
	case common.AnalyzerGemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Analyzer.GeminiAPIKey,
			Model:       cfg.Analyzer.GeminiModel,
			Temperature: cfg.Analyzer.Temperature,
			MaxTokens:   cfg.Analyzer.MaxTokens,
			Timeout:     cfg.Analyzer.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		transport = c
	default:
		return nil, fmt.Errorf("unknown analyzer %q", kind)
	}
	return llm.NewService(llm.NewVisionAnalyzer(transport, img, logger), stub, logger), nil
}
