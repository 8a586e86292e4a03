// Package repository defines the persistence contracts for cards, packs and
// settings. Backends live in subpackages.
package repository

import (
	"context"
	"errors"
	"io"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
)

// CardRepository stores cards keyed by fingerprint. Get and Update return
// common.ErrNotFound for unknown fingerprints.
type CardRepository interface {
	Get(ctx context.Context, fingerprint string) (entity.Card, error)
	Upsert(ctx context.Context, card entity.Card) error
	// Update applies fn to the stored card atomically; an fn error aborts the write.
	Update(ctx context.Context, fingerprint string, fn func(*entity.Card) error) (entity.Card, error)
	List(ctx context.Context) ([]entity.Card, error)
}

// PackRepository stores packs keyed by id.
type PackRepository interface {
	Create(ctx context.Context, pack entity.Pack) error
	Get(ctx context.Context, id string) (entity.Pack, error)
	Update(ctx context.Context, id string, fn func(*entity.Pack) error) (entity.Pack, error)
	List(ctx context.Context) ([]entity.Pack, error)
	Delete(ctx context.Context, id string) error
}

// SettingsRepository stores the single settings document.
type SettingsRepository interface {
	Load(ctx context.Context) (entity.Settings, error)
	// Merge overlays patch onto the stored document and returns the result.
	Merge(ctx context.Context, patch entity.Settings) (entity.Settings, error)
}

// Store bundles the three repositories of one backend.
type Store struct {
	Cards    CardRepository
	Packs    PackRepository
	Settings SettingsRepository

	closers []io.Closer
}

func NewStore(cards CardRepository, packs PackRepository, settings SettingsRepository, closers ...io.Closer) *Store {
	return &Store{Cards: cards, Packs: packs, Settings: settings, closers: closers}
}

func (s *Store) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
