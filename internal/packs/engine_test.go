package packs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/catalog"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/jsonfile"
)

type allFiles struct{}

func (allFiles) Exists(string) bool { return true }

// gatedIngestor stores a card per upload once the gate is open. Uploads whose
// filename starts with "bad" fail.
type gatedIngestor struct {
	gate    chan struct{}
	catalog *catalog.Catalog
}

func (g *gatedIngestor) Ingest(ctx context.Context, req ingest.Request) (entity.Card, ingest.Outcome, error) {
	<-g.gate
	data, err := io.ReadAll(req.Data)
	if err != nil {
		return entity.Card{}, "", err
	}
	if len(req.Filename) >= 3 && req.Filename[:3] == "bad" {
		return entity.Card{}, "", errors.New("boom")
	}
	sum := md5.Sum(data)
	card := entity.Card{
		MD5:       hex.EncodeToString(sum[:]),
		Filename:  req.Filename,
		Rarity:    constants.RarityN,
		CardBack:  req.CardBack,
		Hidden:    req.Hidden,
		CreatedAt: time.Now(),
	}
	return card, ingest.OutcomeCreated, g.catalog.Upsert(ctx, card)
}

func (g *gatedIngestor) Regenerate(context.Context, string, string) (entity.Card, error) {
	return entity.Card{}, errors.New("unused")
}

type fixedBacks struct{ back string }

func (f fixedBacks) Random() string { return f.back }

type fixture struct {
	engine  *Engine
	gate    chan struct{}
	cards   repository.CardRepository
	catalog *catalog.Catalog
}

func newFixture(t *testing.T, queueOpts ...async.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	repos, err := jsonfile.Open(
		filepath.Join(dir, "cards.json"),
		filepath.Join(dir, "packs.json"),
		filepath.Join(dir, "settings.json"),
		nil,
	)
	require.NoError(t, err)
	cat := catalog.New(repos.Cards, allFiles{}, nil)
	gate := make(chan struct{})
	ing := &gatedIngestor{gate: gate, catalog: cat}

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	eng := NewEngine(repos.Packs, ing, cat, fixedBacks{back: "/static/card_backs/x.png"}, nil, Config{Now: now, QueueOpts: queueOpts})
	t.Cleanup(func() {
		select {
		case <-gate:
		default:
			close(gate)
		}
		eng.Shutdown(context.Background())
	})
	return &fixture{engine: eng, gate: gate, cards: repos.Cards, catalog: cat}
}

func uploads(n int, prefix string) []async.Upload {
	out := make([]async.Upload, n)
	for i := range out {
		out[i] = async.Upload{Filename: fmt.Sprintf("%s%d.png", prefix, i), Data: []byte(fmt.Sprintf("%s-%d", prefix, i))}
	}
	return out
}

func (f *fixture) waitReady(t *testing.T, ids ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, id := range ids {
			p, err := f.engine.Get(context.Background(), id)
			if err != nil || p.Status != constants.PackStatusReady {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEngine_CreatePacksChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ids, err := f.engine.CreatePacks(ctx, uploads(25, "img"))
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for _, id := range ids {
		p, err := f.engine.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, constants.PackStatusProcessing, p.Status)
		assert.Empty(t, p.Cards)
		assert.Equal(t, "/static/card_backs/x.png", p.CardBack)

		_, err = f.engine.Open(ctx, id)
		assert.ErrorIs(t, err, common.ErrInvalidState)
	}

	close(f.gate)
	f.waitReady(t, ids...)

	sizes := make([]int, 0, len(ids))
	for _, id := range ids {
		p, err := f.engine.Get(ctx, id)
		require.NoError(t, err)
		sizes = append(sizes, len(p.Cards))
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
}

func TestEngine_OpenRevealsOnlyMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ids, err := f.engine.CreatePacks(ctx, uploads(12, "p"))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	close(f.gate)
	f.waitReady(t, ids...)

	all, err := f.cards.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 12)
	for _, c := range all {
		assert.True(t, c.Hidden)
		assert.Equal(t, "/static/card_backs/x.png", c.CardBack)
	}

	first, err := f.engine.Get(ctx, ids[0])
	require.NoError(t, err)

	revealed, err := f.engine.Open(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, revealed, 10)
	for i, c := range revealed {
		assert.Equal(t, first.Cards[i], c.MD5)
		assert.False(t, c.Hidden)
	}

	visible, err := f.catalog.ListVisible(ctx)
	require.NoError(t, err)
	assert.Len(t, visible, 10)

	opened, err := f.engine.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, constants.PackStatusOpened, opened.Status)

	pending, err := f.engine.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID)

	again, err := f.engine.Open(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, again, 10)
}

func TestEngine_SkipsFailedFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	files := append(uploads(2, "ok"), uploads(1, "bad")...)
	files = append(files, async.Upload{Filename: "dup.png", Data: []byte("ok-0")})
	ids, err := f.engine.CreatePacks(ctx, files)
	require.NoError(t, err)
	close(f.gate)
	f.waitReady(t, ids...)

	p, err := f.engine.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, p.Cards, 2)
}

func TestEngine_ListPendingNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []string
	for range 3 {
		got, err := f.engine.CreatePacks(ctx, uploads(1, "n"))
		require.NoError(t, err)
		ids = append(ids, got...)
	}
	pending, err := f.engine.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.CreatePacks(ctx, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.engine.Open(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.engine.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_RejectsAfterShutdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	close(f.gate)
	f.engine.Shutdown(ctx)

	ids, err := f.engine.CreatePacks(ctx, uploads(1, "late"))
	assert.ErrorIs(t, err, async.ErrQueueClosed)
	assert.Empty(t, ids)

	all, err := f.engine.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.EqualValues(t, 1, f.engine.Stats().Rejected)
}

func TestEngine_PartialScheduleReportsQueuedPacks(t *testing.T) {
	// One worker stuck on the gate plus a one-slot buffer holds two packs;
	// the third cannot be queued before the deadline.
	f := newFixture(t, async.WithWorkers(1), async.WithQueueSize(1))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	ids, err := f.engine.CreatePacks(ctx, uploads(25, "img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var partial *PartialScheduleError
	require.ErrorAs(t, err, &partial)
	assert.Len(t, partial.Scheduled, 2)
	assert.Equal(t, ids, partial.Scheduled)

	pending, err := f.engine.ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 2, "the unscheduled pack is rolled back")

	close(f.gate)
	require.Eventually(t, func() bool {
		for _, id := range ids {
			p, err := f.engine.Get(context.Background(), id)
			if err != nil || p.Status != constants.PackStatusReady {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_ShutdownTimeoutNamesUnfinishedPacks(t *testing.T) {
	f := newFixture(t)
	ids, err := f.engine.CreatePacks(context.Background(), uploads(3, "slow"))
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, ids, f.engine.Unfinished())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = f.engine.Shutdown(ctx)
	require.ErrorIs(t, err, ErrUnfinishedPacks)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), ids[0])

	// The worker still finishes the pack; storage was left open for it.
	close(f.gate)
	require.Eventually(t, func() bool {
		p, err := f.engine.Get(context.Background(), ids[0])
		return err == nil && p.Status == constants.PackStatusReady && len(f.engine.Unfinished()) == 0
	}, 5*time.Second, 10*time.Millisecond)
}
