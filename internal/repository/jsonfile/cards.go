package jsonfile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

type cardMap = map[string]entity.Card

type cardRepo struct {
	doc    *document[cardMap]
	logger *slog.Logger
}

func NewCardRepository(path string, logger *slog.Logger) (repository.CardRepository, error) {
	doc, err := newDocument[cardMap](path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cardRepo{doc: doc, logger: logger}, nil
}

func (r *cardRepo) Get(_ context.Context, fingerprint string) (entity.Card, error) {
	var out entity.Card
	err := r.doc.view(func(m cardMap) error {
		c, ok := m[fingerprint]
		if !ok {
			return common.NotFoundf("card %s not found", fingerprint)
		}
		out = c
		return nil
	})
	return out, err
}

func (r *cardRepo) Upsert(_ context.Context, card entity.Card) error {
	err := r.doc.update(func(m cardMap) (cardMap, error) {
		if m == nil {
			m = cardMap{}
		}
		m[card.MD5] = card
		return m, nil
	})
	if err != nil {
		r.logger.Error("failed to upsert card", "md5", card.MD5, "error", err)
	}
	return err
}

func (r *cardRepo) Update(_ context.Context, fingerprint string, fn func(*entity.Card) error) (entity.Card, error) {
	var out entity.Card
	err := r.doc.update(func(m cardMap) (cardMap, error) {
		c, ok := m[fingerprint]
		if !ok {
			return m, common.NotFoundf("card %s not found", fingerprint)
		}
		if err := fn(&c); err != nil {
			return m, err
		}
		m[fingerprint] = c
		out = c
		return m, nil
	})
	return out, err
}

func (r *cardRepo) List(_ context.Context) ([]entity.Card, error) {
	var out []entity.Card
	err := r.doc.view(func(m cardMap) error {
		out = make([]entity.Card, 0, len(m))
		for _, c := range m {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MD5 < out[j].MD5 })
	return out, err
}
