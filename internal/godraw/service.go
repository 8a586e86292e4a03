package godraw

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// Parallelism bounds concurrent fetch-and-ingest workers.
const Parallelism = 4

type CardBackPicker interface {
	Random() string
}

type Config struct {
	URL     string
	Min     int
	Max     int
	Timeout time.Duration
}

type Service struct {
	fetcher  *Fetcher
	ingestor ingest.Ingestor
	settings repository.SettingsRepository
	backs    CardBackPicker
	rnd      *common.Rand
	cfg      Config
	logger   *slog.Logger
}

func NewService(
	fetcher *Fetcher,
	ingestor ingest.Ingestor,
	settings repository.SettingsRepository,
	backs CardBackPicker,
	rnd *common.Rand,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if rnd == nil {
		rnd = common.NewTimeSeededRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Min <= 0 {
		cfg.Min = 1
	}
	if cfg.Max < cfg.Min {
		cfg.Max = cfg.Min
	}
	return &Service{
		fetcher:  fetcher,
		ingestor: ingestor,
		settings: settings,
		backs:    backs,
		rnd:      rnd,
		cfg:      cfg,
		logger:   logger,
	}
}

// Endpoint returns the god_draw_url setting when present, else the configured URL.
func (s *Service) Endpoint(ctx context.Context) string {
	if st, err := s.settings.Load(ctx); err == nil {
		if u := st.String(entity.SettingsGodDrawURL); u != "" {
			return u
		}
	} else {
		s.logger.Warn("godraw.settings.load_failed", "error", err)
	}
	return s.cfg.URL
}

// Draw fetches between Min and Max images and ingests them as visible cards
// sharing one card-back. Failed images are skipped; the result keeps draw order.
func (s *Service) Draw(ctx context.Context) ([]entity.Card, error) {
	count := s.cfg.Min + s.rnd.IntN(s.cfg.Max-s.cfg.Min+1)
	endpoint := s.Endpoint(ctx)
	cardBack := s.backs.Random()
	start := time.Now()

	slots := make([]*entity.Card, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Parallelism)
	for i := range count {
		g.Go(func() error {
			card, err := s.drawOne(gctx, endpoint, cardBack)
			if err != nil {
				s.logger.Warn("godraw.item_failed", "index", i, "endpoint", endpoint, "error", err)
				return nil
			}
			slots[i] = &card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cards := make([]entity.Card, 0, count)
	for _, c := range slots {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	s.logger.Info("godraw.done",
		"requested", count,
		"cards", len(cards),
		"card_back", cardBack,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cards, nil
}

func (s *Service) drawOne(ctx context.Context, endpoint, cardBack string) (entity.Card, error) {
	fetchCtx, cancel := common.WithTimeout(ctx, s.cfg.Timeout)
	img, err := s.fetcher.Fetch(fetchCtx, endpoint)
	cancel()
	if err != nil {
		return entity.Card{}, err
	}
	card, _, err := s.ingestor.Ingest(ctx, ingest.Request{
		Data:     bytes.NewReader(img.Data),
		Filename: img.Filename,
		CardBack: cardBack,
	})
	return card, err
}
