package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
)

type cardRepo struct{ s *Storage }

func (r *cardRepo) Get(_ context.Context, fingerprint string) (entity.Card, error) {
	var out entity.Card
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = get[entity.Card](tx, bucketCards, []byte(fingerprint), "card")
		return err
	})
	return out, err
}

func (r *cardRepo) Upsert(_ context.Context, card entity.Card) error {
	err := r.s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketCards, []byte(card.MD5), card)
	})
	if err != nil {
		r.s.logger.Error("failed to upsert card", "md5", card.MD5, "error", err)
	}
	return err
}

func (r *cardRepo) Update(_ context.Context, fingerprint string, fn func(*entity.Card) error) (entity.Card, error) {
	var out entity.Card
	err := r.s.db.Update(func(tx *bbolt.Tx) error {
		c, err := get[entity.Card](tx, bucketCards, []byte(fingerprint), "card")
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		out = c
		return put(tx, bucketCards, []byte(fingerprint), c)
	})
	return out, err
}

func (r *cardRepo) List(_ context.Context) ([]entity.Card, error) {
	var out []entity.Card
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = list[entity.Card](tx, bucketCards)
		return err
	})
	return out, err
}

type packRepo struct{ s *Storage }

func (r *packRepo) Create(_ context.Context, pack entity.Pack) error {
	return r.s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPacks).Get([]byte(pack.ID)) != nil {
			return common.InvalidStatef("pack %s already exists", pack.ID)
		}
		return put(tx, bucketPacks, []byte(pack.ID), pack)
	})
}

func (r *packRepo) Get(_ context.Context, id string) (entity.Pack, error) {
	var out entity.Pack
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = get[entity.Pack](tx, bucketPacks, []byte(id), "pack")
		return err
	})
	return out, err
}

func (r *packRepo) Update(_ context.Context, id string, fn func(*entity.Pack) error) (entity.Pack, error) {
	var out entity.Pack
	err := r.s.db.Update(func(tx *bbolt.Tx) error {
		p, err := get[entity.Pack](tx, bucketPacks, []byte(id), "pack")
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		out = p
		return put(tx, bucketPacks, []byte(id), p)
	})
	return out, err
}

func (r *packRepo) List(_ context.Context) ([]entity.Pack, error) {
	var out []entity.Pack
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = list[entity.Pack](tx, bucketPacks)
		return err
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *packRepo) Delete(_ context.Context, id string) error {
	return r.s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPacks).Delete([]byte(id))
	})
}

type settingsRepo struct{ s *Storage }

func loadSettings(tx *bbolt.Tx) (entity.Settings, error) {
	raw := tx.Bucket(bucketSettings).Get(settingsKey)
	if raw == nil {
		return entity.Settings{}, nil
	}
	s, err := get[entity.Settings](tx, bucketSettings, settingsKey, "settings")
	if s == nil {
		s = entity.Settings{}
	}
	return s, err
}

func (r *settingsRepo) Load(_ context.Context) (entity.Settings, error) {
	var out entity.Settings
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = loadSettings(tx)
		return err
	})
	return out, err
}

func (r *settingsRepo) Merge(_ context.Context, patch entity.Settings) (entity.Settings, error) {
	var out entity.Settings
	err := r.s.db.Update(func(tx *bbolt.Tx) error {
		cur, err := loadSettings(tx)
		if err != nil {
			return err
		}
		out = cur.Merge(patch)
		return put(tx, bucketSettings, settingsKey, out)
	})
	return out, err
}
