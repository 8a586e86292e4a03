package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/catalog"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/contentstore"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/jsonfile"
)

type countingAnalyzer struct {
	calls atomic.Int32
	delay time.Duration

	mu   sync.Mutex
	last llm.AnalyzeRequest
}

func (a *countingAnalyzer) Analyze(_ context.Context, req llm.AnalyzeRequest) llm.CardAttributes {
	n := a.calls.Add(1)
	a.mu.Lock()
	a.last = req
	a.mu.Unlock()
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return llm.CardAttributes{
		Rarity:      constants.RaritySR,
		Name:        "Card " + string(rune('A'+n-1)),
		Description: "desc",
		Atk:         "1200",
		Def:         "800",
	}
}

type fixedEffects struct{}

func (fixedEffects) Choose(constants.Rarity) (string, string) { return "holo", "theme-purple" }

type harness struct {
	pipeline *Pipeline
	analyzer *countingAnalyzer
	store    *contentstore.Store
	catalog  *catalog.Catalog
	repos    *repository.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := contentstore.New(filepath.Join(dir, "uploads"), nil)
	require.NoError(t, err)
	repos, err := jsonfile.Open(
		filepath.Join(dir, "cards.json"),
		filepath.Join(dir, "packs.json"),
		filepath.Join(dir, "settings.json"),
		nil,
	)
	require.NoError(t, err)
	cat := catalog.New(repos.Cards, store, nil)
	an := &countingAnalyzer{}
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPipeline(store, an, fixedEffects{}, cat, repos.Settings, nil,
		WithClock(func() time.Time { return clock }))
	return &harness{pipeline: p, analyzer: an, store: store, catalog: cat, repos: repos}
}

func (h *harness) ingest(t *testing.T, data, name, cardBack string, regenerate, hidden bool) (entity.Card, Outcome) {
	t.Helper()
	card, outcome, err := h.pipeline.Ingest(context.Background(), Request{
		Data:       bytes.NewBufferString(data),
		Filename:   name,
		CardBack:   cardBack,
		Regenerate: regenerate,
		Hidden:     hidden,
	})
	require.NoError(t, err)
	return card, outcome
}

func TestPipeline_CreatesCard(t *testing.T) {
	h := newHarness(t)
	card, outcome := h.ingest(t, "cat-bytes", "Cat.PNG", "back1.png", false, false)

	assert.Equal(t, OutcomeCreated, outcome)
	assert.Len(t, card.MD5, 32)
	assert.Equal(t, card.MD5+".png", card.Filename)
	assert.Equal(t, "/uploads/"+card.Filename, card.ImageURL)
	assert.Equal(t, constants.RaritySR, card.Rarity)
	assert.Equal(t, "holo", card.EffectType)
	assert.Equal(t, "theme-purple", card.ColorTheme)
	assert.Equal(t, "back1.png", card.CardBack)
	assert.False(t, card.Hidden)

	stored, err := h.catalog.Get(context.Background(), card.MD5)
	require.NoError(t, err)
	assert.Equal(t, card, stored)
}

func TestPipeline_DedupeAcrossFilenames(t *testing.T) {
	h := newHarness(t)
	first, _ := h.ingest(t, "same", "a.png", "", false, false)
	second, outcome := h.ingest(t, "same", "b.jpg", "", false, false)

	assert.Equal(t, OutcomeExisting, outcome)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, h.analyzer.calls.Load())

	entries, err := os.ReadDir(h.store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	cards, err := h.repos.Cards.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestPipeline_RebindOnlyWithCardBack(t *testing.T) {
	h := newHarness(t)
	orig, _ := h.ingest(t, "img", "a.png", "back1.png", false, false)

	card, outcome := h.ingest(t, "img", "a.png", "back2.png", false, true)
	assert.Equal(t, OutcomeRebound, outcome)
	assert.Equal(t, "back2.png", card.CardBack)
	assert.True(t, card.Hidden)
	assert.Equal(t, orig.Name, card.Name)
	assert.EqualValues(t, 1, h.analyzer.calls.Load())
}

func TestPipeline_RegeneratePreservesFileAndCardBack(t *testing.T) {
	h := newHarness(t)
	orig, _ := h.ingest(t, "img", "a.png", "back1.png", false, false)

	card, outcome := h.ingest(t, "img", "other.jpeg", "", true, false)
	assert.Equal(t, OutcomeRegenerated, outcome)
	assert.Equal(t, orig.MD5, card.MD5)
	assert.Equal(t, orig.Filename, card.Filename)
	assert.Equal(t, "back1.png", card.CardBack)
	assert.Equal(t, orig.CreatedAt, card.CreatedAt)
	assert.NotEqual(t, orig.Name, card.Name)
	assert.EqualValues(t, 2, h.analyzer.calls.Load())
}

func TestPipeline_RegenerateByFingerprint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	orig, _ := h.ingest(t, "img", "a.png", "", false, false)

	card, err := h.pipeline.Regenerate(ctx, orig.MD5, "back9.png")
	require.NoError(t, err)
	assert.Equal(t, "back9.png", card.CardBack)
	assert.Equal(t, orig.Filename, card.Filename)

	_, err = h.pipeline.Regenerate(ctx, "ffffffffffffffffffffffffffffffff", "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, os.Remove(h.store.Path(orig.Filename)))
	_, err = h.pipeline.Regenerate(ctx, orig.MD5, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPipeline_PassesSettingsToAnalyzer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.repos.Settings.Merge(ctx, entity.Settings{
		entity.SettingsPrompts:          map[string]any{"name": "Name it", "rarity": "  "},
		entity.SettingsSingleCallMode:   true,
		entity.SettingsSingleCallPrompt: "all at once",
	})
	require.NoError(t, err)

	card, _ := h.ingest(t, "img", "a.png", "", false, false)

	h.analyzer.mu.Lock()
	defer h.analyzer.mu.Unlock()
	assert.Equal(t, map[string]string{"name": "Name it"}, h.analyzer.last.Prompts)
	assert.True(t, h.analyzer.last.SingleCall)
	assert.Equal(t, "all at once", h.analyzer.last.SingleCallPrompt)
	assert.Equal(t, h.store.Path(card.Filename), h.analyzer.last.ImagePath)
}

func TestPipeline_ConcurrentIdenticalUploadsAnalyzeOnce(t *testing.T) {
	h := newHarness(t)
	h.analyzer.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	fps := make([]string, 8)
	for i := range fps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			card, _, err := h.pipeline.Ingest(context.Background(), Request{
				Data:     bytes.NewBufferString("racy"),
				Filename: "r.png",
			})
			assert.NoError(t, err)
			fps[i] = card.MD5
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, h.analyzer.calls.Load())
	for _, fp := range fps {
		assert.Equal(t, fps[0], fp)
	}
}

func TestPipeline_RejectsMissingData(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.pipeline.Ingest(context.Background(), Request{Filename: "x.png"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPipeline_IngestDirectory(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dup.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.png"), []byte("h"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.webp"), []byte("b"), 0o644))

	results, stats, err := h.pipeline.IngestDirectory(context.Background(), root, "", true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Existing)
	assert.EqualValues(t, 0, stats.Failed)
	assert.Len(t, results, 3)
	assert.EqualValues(t, 2, h.analyzer.calls.Load())
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock2 := k.Lock("b")
	unlock()
	unlock2()
	assert.Empty(t, k.locks)
}

func TestPipeline_RelinksCardWhoseFileWentMissing(t *testing.T) {
	ctx := context.Background()

	t.Run("plain re-upload", func(t *testing.T) {
		h := newHarness(t)
		first, _ := h.ingest(t, "lost-bytes", "a.png", "", false, false)
		require.NoError(t, os.Remove(h.store.Path(first.Filename)))

		card, outcome := h.ingest(t, "lost-bytes", "a.jpg", "", false, false)
		assert.Equal(t, OutcomeExisting, outcome)
		assert.Equal(t, first.MD5+".jpg", card.Filename)
		assert.Equal(t, "/uploads/"+first.MD5+".jpg", card.ImageURL)
		assert.True(t, h.store.Exists(card.Filename))
		assert.Equal(t, first.Name, card.Name)
		assert.EqualValues(t, 1, h.analyzer.calls.Load())

		visible, err := h.catalog.ListVisible(ctx)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, card.Filename, visible[0].Filename)
	})

	t.Run("regenerate analyzes the new file", func(t *testing.T) {
		h := newHarness(t)
		first, _ := h.ingest(t, "lost-bytes", "a.png", "", false, false)
		require.NoError(t, os.Remove(h.store.Path(first.Filename)))

		card, outcome := h.ingest(t, "lost-bytes", "a.jpg", "", true, false)
		assert.Equal(t, OutcomeRegenerated, outcome)
		assert.Equal(t, first.MD5+".jpg", card.Filename)

		h.analyzer.mu.Lock()
		imagePath := h.analyzer.last.ImagePath
		h.analyzer.mu.Unlock()
		assert.Equal(t, h.store.Path(card.Filename), imagePath)
		_, err := os.Stat(imagePath)
		assert.NoError(t, err)
	})

	t.Run("rebind also relinks", func(t *testing.T) {
		h := newHarness(t)
		first, _ := h.ingest(t, "lost-bytes", "a.png", "", false, false)
		require.NoError(t, os.Remove(h.store.Path(first.Filename)))

		card, outcome := h.ingest(t, "lost-bytes", "a.jpg", "/static/card_backs/b.png", false, true)
		assert.Equal(t, OutcomeRebound, outcome)
		assert.Equal(t, first.MD5+".jpg", card.Filename)
		assert.Equal(t, "/static/card_backs/b.png", card.CardBack)
		assert.True(t, card.Hidden)
	})
}
