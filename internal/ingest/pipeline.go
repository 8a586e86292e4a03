package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/catalog"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/contentstore"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// Pipeline turns uploads into persisted cards: store, analyze, decorate, save.
type Pipeline struct {
	store    ContentStore
	analyzer Analyzer
	effects  EffectChooser
	catalog  *catalog.Catalog
	settings repository.SettingsRepository
	logger   *slog.Logger
	now      func() time.Time

	locks *keyedMutex
}

type Option func(*Pipeline)

// WithClock overrides time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(
	store ContentStore,
	analyzer Analyzer,
	effects EffectChooser,
	cat *catalog.Catalog,
	settings repository.SettingsRepository,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:    store,
		analyzer: analyzer,
		effects:  effects,
		catalog:  cat,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest stores the bytes and returns the card for their fingerprint. A known
// fingerprint is only re-analyzed when Regenerate is set; otherwise a supplied
// card-back rebinds it (and sets Hidden) without touching its attributes.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (entity.Card, Outcome, error) {
	if req.Data == nil {
		return entity.Card{}, "", common.InvalidInputf("file is required")
	}
	stored, err := p.store.Store(ctx, req.Data, req.Filename)
	if err != nil {
		return entity.Card{}, "", fmt.Errorf("store upload: %w", err)
	}
	log := p.logger.With("md5", stored.Fingerprint, "filename", stored.Filename)
	log.Debug("ingest.store.ok", "is_new", stored.IsNew, "original", req.Filename)

	unlock := p.locks.Lock(stored.Fingerprint)
	defer unlock()

	existing, err := p.catalog.Get(ctx, stored.Fingerprint)
	switch {
	case err == nil:
		return p.ingestKnown(ctx, req, stored, existing, log)
	case errors.Is(err, common.ErrNotFound):
		card, err := p.analyzeAndSave(ctx, stored.Filename, req.CardBack, req.Hidden, nil)
		return card, OutcomeCreated, err
	default:
		return entity.Card{}, "", fmt.Errorf("lookup card: %w", err)
	}
}

// ingestKnown handles bytes whose card already exists. A record whose file has
// gone missing is pointed at the file just stored.
func (p *Pipeline) ingestKnown(ctx context.Context, req Request, stored contentstore.Stored, existing entity.Card, log *slog.Logger) (entity.Card, Outcome, error) {
	filename := existing.Filename
	relink := !p.store.Exists(existing.Filename)
	if relink {
		filename = stored.Filename
		log.Warn("ingest.relink", "previous", existing.Filename)
	}

	if req.Regenerate {
		card, err := p.analyzeAndSave(ctx, filename, req.CardBack, req.Hidden, &existing)
		return card, OutcomeRegenerated, err
	}
	if req.CardBack == "" && !relink {
		log.Info("ingest.existing")
		return existing, OutcomeExisting, nil
	}

	card, err := p.catalog.Update(ctx, stored.Fingerprint, func(c *entity.Card) error {
		if relink {
			c.Filename = filename
			c.ImageURL = entity.ImageURLFor(filename)
		}
		if req.CardBack != "" {
			c.Rebind(req.CardBack, req.Hidden)
		}
		return nil
	})
	if err != nil {
		return entity.Card{}, "", fmt.Errorf("update card: %w", err)
	}
	if req.CardBack == "" {
		return card, OutcomeExisting, nil
	}
	log.Info("ingest.rebind", "card_back", req.CardBack, "hidden", req.Hidden)
	return card, OutcomeRebound, nil
}

// Regenerate re-analyzes a stored card by fingerprint, keeping its file.
func (p *Pipeline) Regenerate(ctx context.Context, fingerprint, cardBack string) (entity.Card, error) {
	unlock := p.locks.Lock(fingerprint)
	defer unlock()

	existing, err := p.catalog.Get(ctx, fingerprint)
	if err != nil {
		return entity.Card{}, err
	}
	if !p.store.Exists(existing.Filename) {
		return entity.Card{}, common.NotFoundf("original image file missing for %s", fingerprint)
	}
	return p.analyzeAndSave(ctx, existing.Filename, cardBack, existing.Hidden, &existing)
}

func (p *Pipeline) analyzeAndSave(ctx context.Context, filename, cardBack string, hidden bool, prior *entity.Card) (entity.Card, error) {
	start := time.Now()
	fingerprint := filenameFingerprint(filename)

	req := llm.AnalyzeRequest{ImagePath: p.store.Path(filename)}
	if s, err := p.settings.Load(ctx); err != nil {
		p.logger.Warn("ingest.settings.load_failed", "error", err)
	} else {
		req.Prompts = s.Prompts()
		req.SingleCall = s.Bool(entity.SettingsSingleCallMode)
		req.SingleCallPrompt = s.String(entity.SettingsSingleCallPrompt)
	}

	attrs := p.analyzer.Analyze(ctx, req)
	effect, theme := p.effects.Choose(attrs.Rarity)

	card := entity.Card{
		MD5:         fingerprint,
		Filename:    filename,
		ImageURL:    entity.ImageURLFor(filename),
		Rarity:      attrs.Rarity,
		Name:        attrs.Name,
		Description: attrs.Description,
		Atk:         attrs.Atk,
		Def:         attrs.Def,
		CardBack:    cardBack,
		CreatedAt:   p.now(),
		EffectType:  effect,
		ColorTheme:  theme,
		Hidden:      hidden,
	}
	if prior != nil {
		card.MD5 = prior.MD5
		card.CreatedAt = prior.CreatedAt
		if card.CardBack == "" {
			card.CardBack = prior.CardBack
		}
	}

	if err := p.catalog.Upsert(ctx, card); err != nil {
		return entity.Card{}, fmt.Errorf("save card: %w", err)
	}
	p.logger.Info("ingest.card.saved",
		"md5", card.MD5,
		"rarity", card.Rarity,
		"name", card.Name,
		"effect", card.EffectType,
		"theme", card.ColorTheme,
		"hidden", card.Hidden,
		"regenerated", prior != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return card, nil
}
