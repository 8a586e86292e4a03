// Package packs groups uploads into packs, processes them in the background
// and reveals their cards on open.
package packs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// DefaultSize is the maximum number of uploads per pack.
const DefaultSize = 10

// CardBackPicker chooses the card-back shared by every card of a pack.
type CardBackPicker interface {
	Random() string
}

// Revealer unhides cards by fingerprint.
type Revealer interface {
	Reveal(ctx context.Context, fingerprint string) (entity.Card, error)
}

type Config struct {
	Size      int
	QueueOpts []async.Option
	Now       func() time.Time
}

type Engine struct {
	packs    repository.PackRepository
	ingestor ingest.Ingestor
	revealer Revealer
	backs    CardBackPicker
	logger   *slog.Logger

	size  int
	now   func() time.Time
	queue async.Queue

	// unfinished holds ids of packs queued but not yet marked ready.
	mu         sync.Mutex
	unfinished map[string]struct{}
}

// NewEngine starts the background queue; call Shutdown to drain it.
func NewEngine(
	packs repository.PackRepository,
	ingestor ingest.Ingestor,
	revealer Revealer,
	backs CardBackPicker,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		packs:    packs,
		ingestor: ingestor,
		revealer: revealer,
		backs:    backs,
		logger:   logger,
		size:     cfg.Size,
		now:      cfg.Now,

		unfinished: make(map[string]struct{}),
	}
	if e.size <= 0 {
		e.size = DefaultSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.queue = async.NewProcessorQueue(e.Process, logger, cfg.QueueOpts...)
	return e
}

// PartialScheduleError is returned by CreatePacks when some packs were
// queued before a later one failed. The queued packs still become ready.
type PartialScheduleError struct {
	Scheduled []string
	Err       error
}

func (e *PartialScheduleError) Error() string {
	return fmt.Sprintf("%d pack(s) scheduled before failure: %v", len(e.Scheduled), e.Err)
}

func (e *PartialScheduleError) Unwrap() error { return e.Err }

func scheduleFailure(scheduled []string, err error) error {
	if len(scheduled) == 0 {
		return err
	}
	return &PartialScheduleError{Scheduled: slices.Clone(scheduled), Err: err}
}

// CreatePacks splits files into packs of at most Size uploads, persists each
// pack as processing and schedules it. It returns once every pack is queued.
func (e *Engine) CreatePacks(ctx context.Context, files []async.Upload) ([]string, error) {
	if len(files) == 0 {
		return nil, common.InvalidInputf("at least one file is required")
	}
	traceID := common.RequestIDFromContext(ctx)

	ids := make([]string, 0, (len(files)+e.size-1)/e.size)
	for chunk := range slices.Chunk(files, e.size) {
		pack := entity.NewPack(e.backs.Random(), e.now())
		if err := e.packs.Create(ctx, pack); err != nil {
			return ids, scheduleFailure(ids, fmt.Errorf("create pack: %w", err))
		}
		job := async.Job{
			PackID:   pack.ID,
			Files:    chunk,
			CardBack: pack.CardBack,
			TraceID:  traceID,
		}
		e.track(pack.ID)
		if err := e.queue.Enqueue(ctx, job); err != nil {
			e.untrack(pack.ID)
			if delErr := e.packs.Delete(context.WithoutCancel(ctx), pack.ID); delErr != nil {
				e.logger.Error("packs.create.rollback_failed", "pack_id", pack.ID, "error", delErr)
			}
			return ids, scheduleFailure(ids, fmt.Errorf("schedule pack %s: %w", pack.ID, err))
		}
		e.logger.Info("packs.created", "pack_id", pack.ID, "files", len(chunk), "card_back", pack.CardBack)
		ids = append(ids, pack.ID)
	}
	return ids, nil
}

// Process ingests every file of a job as a hidden card and marks the pack
// ready. Files that fail are skipped.
func (e *Engine) Process(ctx context.Context, job async.Job) error {
	defer e.untrack(job.PackID)
	log := e.logger.With("pack_id", job.PackID)
	start := time.Now()

	fingerprints := make([]string, 0, len(job.Files))
	skipped := 0
	for i, f := range job.Files {
		card, outcome, err := e.ingestor.Ingest(ctx, ingest.Request{
			Data:     bytes.NewReader(f.Data),
			Filename: f.Filename,
			CardBack: job.CardBack,
			Hidden:   true,
		})
		if err != nil {
			skipped++
			log.Warn("packs.process.file_failed", "index", i, "filename", f.Filename, "error", err)
			continue
		}
		log.Debug("packs.process.file_ok", "index", i, "md5", card.MD5, "outcome", outcome)
		if !slices.Contains(fingerprints, card.MD5) {
			fingerprints = append(fingerprints, card.MD5)
		}
	}

	_, err := e.packs.Update(ctx, job.PackID, func(p *entity.Pack) error {
		return p.MarkReady(fingerprints)
	})
	if err != nil {
		return fmt.Errorf("mark pack %s ready: %w", job.PackID, err)
	}
	log.Info("packs.process.done",
		"cards", len(fingerprints),
		"skipped", skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Open reveals a finished pack's cards and marks it opened. Opening an opened
// pack again re-reveals the same cards. Members whose card record is gone are
// left out of the result.
func (e *Engine) Open(ctx context.Context, id string) ([]entity.Card, error) {
	pack, err := e.packs.Update(ctx, id, func(p *entity.Pack) error {
		return p.MarkOpened()
	})
	if err != nil {
		return nil, err
	}

	cards := make([]entity.Card, 0, len(pack.Cards))
	for _, fp := range pack.Cards {
		card, err := e.revealer.Reveal(ctx, fp)
		if errors.Is(err, common.ErrNotFound) {
			e.logger.Warn("packs.open.dangling", "pack_id", id, "md5", fp)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reveal %s: %w", fp, err)
		}
		cards = append(cards, card)
	}
	e.logger.Info("packs.opened", "pack_id", id, "cards", len(cards))
	return cards, nil
}

func (e *Engine) Get(ctx context.Context, id string) (entity.Pack, error) {
	return e.packs.Get(ctx, id)
}

// ListPending returns packs that are not opened yet, newest first.
func (e *Engine) ListPending(ctx context.Context) ([]entity.Pack, error) {
	all, err := e.packs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Pack, 0, len(all))
	for _, p := range all {
		if p.Status != constants.PackStatusOpened {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b entity.Pack) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (e *Engine) Stats() async.Stats {
	return e.queue.Stats()
}

// Shutdown stops accepting packs and waits for queued ones until ctx is done.
// If ctx ends first it returns an ErrUnfinishedPacks error naming the packs
// that are still processing.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.queue.Shutdown(ctx); err != nil {
		ids := e.Unfinished()
		e.logger.Error("packs.shutdown.unfinished", "pack_ids", ids, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrUnfinishedPacks, strings.Join(ids, ","), err)
	}
	return nil
}

// ErrUnfinishedPacks marks a shutdown that left packs in processing.
var ErrUnfinishedPacks = errors.New("packs still processing")

// Unfinished lists queued packs not yet marked ready, sorted.
func (e *Engine) Unfinished() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.unfinished))
	for id := range e.unfinished {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (e *Engine) track(id string) {
	e.mu.Lock()
	e.unfinished[id] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) untrack(id string) {
	e.mu.Lock()
	delete(e.unfinished, id)
	e.mu.Unlock()
}
