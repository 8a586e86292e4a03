package jsonfile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

type packMap = map[string]entity.Pack

type packRepo struct {
	doc    *document[packMap]
	logger *slog.Logger
}

func NewPackRepository(path string, logger *slog.Logger) (repository.PackRepository, error) {
	doc, err := newDocument[packMap](path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &packRepo{doc: doc, logger: logger}, nil
}

func (r *packRepo) Create(_ context.Context, pack entity.Pack) error {
	return r.doc.update(func(m packMap) (packMap, error) {
		if m == nil {
			m = packMap{}
		}
		if _, exists := m[pack.ID]; exists {
			return m, common.InvalidStatef("pack %s already exists", pack.ID)
		}
		m[pack.ID] = pack
		return m, nil
	})
}

func (r *packRepo) Get(_ context.Context, id string) (entity.Pack, error) {
	var out entity.Pack
	err := r.doc.view(func(m packMap) error {
		p, ok := m[id]
		if !ok {
			return common.NotFoundf("pack %s not found", id)
		}
		out = p
		return nil
	})
	return out, err
}

func (r *packRepo) Update(_ context.Context, id string, fn func(*entity.Pack) error) (entity.Pack, error) {
	var out entity.Pack
	err := r.doc.update(func(m packMap) (packMap, error) {
		p, ok := m[id]
		if !ok {
			return m, common.NotFoundf("pack %s not found", id)
		}
		if err := fn(&p); err != nil {
			return m, err
		}
		m[id] = p
		out = p
		return m, nil
	})
	return out, err
}

func (r *packRepo) List(_ context.Context) ([]entity.Pack, error) {
	var out []entity.Pack
	err := r.doc.view(func(m packMap) error {
		out = make([]entity.Pack, 0, len(m))
		for _, p := range m {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *packRepo) Delete(_ context.Context, id string) error {
	return r.doc.update(func(m packMap) (packMap, error) {
		delete(m, id)
		return m, nil
	})
}
