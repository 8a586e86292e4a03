package jsonfile

import (
	"context"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

type settingsRepo struct {
	doc *document[entity.Settings]
}

func NewSettingsRepository(path string) (repository.SettingsRepository, error) {
	doc, err := newDocument[entity.Settings](path)
	if err != nil {
		return nil, err
	}
	return &settingsRepo{doc: doc}, nil
}

func (r *settingsRepo) Load(_ context.Context) (entity.Settings, error) {
	var out entity.Settings
	err := r.doc.view(func(s entity.Settings) error {
		out = s
		return nil
	})
	if out == nil {
		out = entity.Settings{}
	}
	return out, err
}

func (r *settingsRepo) Merge(_ context.Context, patch entity.Settings) (entity.Settings, error) {
	var out entity.Settings
	err := r.doc.update(func(s entity.Settings) (entity.Settings, error) {
		out = s.Merge(patch)
		return out, nil
	})
	return out, err
}
