// Package catalog is the authoritative fingerprint to card mapping.
package catalog

import (
	"context"
	"log/slog"
	"sort"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// FileChecker reports whether a stored image still exists.
type FileChecker interface {
	Exists(filename string) bool
}

type Catalog struct {
	cards  repository.CardRepository
	files  FileChecker
	logger *slog.Logger
}

func New(cards repository.CardRepository, files FileChecker, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{cards: cards, files: files, logger: logger}
}

// Get returns common.ErrNotFound for unknown fingerprints.
func (c *Catalog) Get(ctx context.Context, fingerprint string) (entity.Card, error) {
	return c.cards.Get(ctx, fingerprint)
}

func (c *Catalog) Upsert(ctx context.Context, card entity.Card) error {
	return c.cards.Upsert(ctx, card)
}

func (c *Catalog) Update(ctx context.Context, fingerprint string, fn func(*entity.Card) error) (entity.Card, error) {
	return c.cards.Update(ctx, fingerprint, fn)
}

// Reveal clears the hidden flag.
func (c *Catalog) Reveal(ctx context.Context, fingerprint string) (entity.Card, error) {
	return c.cards.Update(ctx, fingerprint, func(card *entity.Card) error {
		card.Hidden = false
		return nil
	})
}

// ListVisible returns revealed cards whose image is still on disk, oldest
// first. Cards with a missing file are skipped, never pruned.
func (c *Catalog) ListVisible(ctx context.Context) ([]entity.Card, error) {
	all, err := c.cards.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Card, 0, len(all))
	missing := 0
	for _, card := range all {
		if card.Hidden {
			continue
		}
		if !c.files.Exists(card.Filename) {
			missing++
			continue
		}
		out = append(out, card)
	}
	if missing > 0 {
		c.logger.Debug("catalog.list.missing_files", "count", missing)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MD5 < out[j].MD5
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
