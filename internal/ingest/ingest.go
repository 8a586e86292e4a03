package ingest

import (
	"context"
	"io"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/contentstore"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
)

// Request is one upload to turn into a card.
type Request struct {
	Data       io.Reader
	Filename   string
	CardBack   string
	Regenerate bool
	Hidden     bool
}

// Outcome reports how a card was produced.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeRegenerated Outcome = "regenerated"
	OutcomeRebound     Outcome = "rebound"
	OutcomeExisting    Outcome = "existing"
)

// Analyzer never fails; see llm.Service.
type Analyzer interface {
	Analyze(ctx context.Context, req llm.AnalyzeRequest) llm.CardAttributes
}

type EffectChooser interface {
	Choose(rarity constants.Rarity) (effect, theme string)
}

// ContentStore is the subset of contentstore.Store the pipeline needs.
type ContentStore interface {
	Store(ctx context.Context, r io.Reader, originalName string) (contentstore.Stored, error)
	Exists(filename string) bool
	Path(filename string) string
}

// Ingestor is what the HTTP surface, pack engine and inbox depend on.
type Ingestor interface {
	Ingest(ctx context.Context, req Request) (entity.Card, Outcome, error)
	Regenerate(ctx context.Context, fingerprint, cardBack string) (entity.Card, error)
}
