package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
)

type FileResult struct {
	Path        string
	Fingerprint string
	Outcome     Outcome
	Err         string
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Existing  uint32
	Failed    uint32
}

// IngestPath ingests a single file from disk.
func (p *Pipeline) IngestPath(ctx context.Context, path, cardBack string, hidden bool) (entity.Card, Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.Card{}, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return p.Ingest(ctx, Request{
		Data:     f,
		Filename: filepath.Base(path),
		CardBack: cardBack,
		Hidden:   hidden,
	})
}

// IngestDirectory walks root, keeps image files, skips hidden entries if
// requested, and ingests each file. Per-file failures are reported, not returned.
func (p *Pipeline) IngestDirectory(ctx context.Context, root, cardBack string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		card, outcome, err := p.IngestPath(ctx, path, cardBack, false)
		if err != nil {
			p.logger.Warn("ingest.dir.file_failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, Fingerprint: card.MD5, Outcome: outcome})
		stats.Succeeded++
		if outcome == OutcomeExisting || outcome == OutcomeRebound {
			stats.Existing++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	p.logger.Info("ingest.dir.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"existing", stats.Existing,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
