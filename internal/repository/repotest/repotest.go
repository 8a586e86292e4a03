// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) *repository.Store

func Run(t *testing.T, factory Factory) {
	t.Run("cards", func(t *testing.T) { testCards(t, factory) })
	t.Run("card update concurrency", func(t *testing.T) { testCardUpdateConcurrency(t, factory) })
	t.Run("packs", func(t *testing.T) { testPacks(t, factory) })
	t.Run("settings", func(t *testing.T) { testSettings(t, factory) })
}

func open(t *testing.T, factory Factory) *repository.Store {
	t.Helper()
	s := factory(t)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func sampleCard(fp string, at time.Time) entity.Card {
	return entity.Card{
		MD5:         fp,
		Filename:    fp + ".png",
		ImageURL:    entity.ImageURLFor(fp + ".png"),
		Rarity:      constants.RaritySR,
		Name:        "Quantum Cat",
		Description: "Both alive and dead.",
		Atk:         "1200",
		Def:         "800",
		CreatedAt:   at.UTC().Truncate(time.Millisecond),
		ColorTheme:  "theme-blue",
	}
}

func testCards(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := open(t, factory)
	now := time.Now()

	_, err := s.Cards.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	a := sampleCard("aaaa", now)
	b := sampleCard("bbbb", now.Add(time.Second))
	require.NoError(t, s.Cards.Upsert(ctx, a))
	require.NoError(t, s.Cards.Upsert(ctx, b))

	got, err := s.Cards.Get(ctx, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	a.Name = "Renamed"
	require.NoError(t, s.Cards.Upsert(ctx, a))
	got, err = s.Cards.Get(ctx, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	updated, err := s.Cards.Update(ctx, "bbbb", func(c *entity.Card) error {
		c.Hidden = true
		c.CardBack = "/static/card_backs/red.png"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Hidden)

	boom := errors.New("abort")
	_, err = s.Cards.Update(ctx, "bbbb", func(c *entity.Card) error {
		c.Name = "should not persist"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = s.Cards.Get(ctx, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "Quantum Cat", got.Name)
	assert.Equal(t, "/static/card_backs/red.png", got.CardBack)

	_, err = s.Cards.Update(ctx, "missing", func(*entity.Card) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := s.Cards.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testCardUpdateConcurrency(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := open(t, factory)
	require.NoError(t, s.Cards.Upsert(ctx, sampleCard("cccc", time.Now())))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Cards.Update(ctx, "cccc", func(c *entity.Card) error {
				var atk int
				_, _ = fmt.Sscan(c.Atk, &atk)
				c.Atk = fmt.Sprint(atk + 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Cards.Get(ctx, "cccc")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(1200+n), got.Atk, "no update may be lost")
}

func testPacks(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := open(t, factory)
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := entity.NewPack("/static/card_backs/a.png", now)
	newer := entity.NewPack("/static/card_backs/b.png", now.Add(time.Minute))
	require.NoError(t, s.Packs.Create(ctx, newer))
	require.NoError(t, s.Packs.Create(ctx, older))
	assert.Error(t, s.Packs.Create(ctx, older), "duplicate ids are rejected")

	got, err := s.Packs.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.PackStatusProcessing, got.Status)
	assert.Empty(t, got.Cards)

	ready, err := s.Packs.Update(ctx, older.ID, func(p *entity.Pack) error { return p.MarkReady([]string{"x", "y"}) })
	require.NoError(t, err)
	assert.Equal(t, constants.PackStatusReady, ready.Status)

	_, err = s.Packs.Update(ctx, older.ID, func(p *entity.Pack) error { return p.MarkReady(nil) })
	assert.ErrorIs(t, err, common.ErrInvalidState)
	got, err = s.Packs.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.Cards)

	list, err := s.Packs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.Packs.Delete(ctx, newer.ID))
	_, err = s.Packs.Get(ctx, newer.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Packs.Update(ctx, newer.ID, func(*entity.Pack) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testSettings(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := open(t, factory)

	empty, err := s.Settings.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.Settings.Merge(ctx, entity.Settings{
		"prompts":          map[string]any{"name": "Pirate names only.", "atk": "Always 9000."},
		"single_call_mode": true,
	})
	require.NoError(t, err)

	merged, err := s.Settings.Merge(ctx, entity.Settings{
		"prompts":      map[string]any{"atk": ""},
		"god_draw_url": "http://images.local/random",
	})
	require.NoError(t, err)

	loaded, err := s.Settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, merged, loaded)
	assert.True(t, loaded.Bool(entity.SettingsSingleCallMode))
	assert.Equal(t, "http://images.local/random", loaded.String(entity.SettingsGodDrawURL))
	assert.Equal(t, map[string]string{"name": "Pirate names only."}, loaded.Prompts())
}
