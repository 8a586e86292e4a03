package server

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
)

// handleGenerate creates one card from an upload, or re-analyzes a stored one
// when regenerate is set together with a known existing_md5.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.writeError(w, r, "generate", err)
		return
	}
	regenerate := formBool(r, "regenerate")
	existing := strings.ToLower(strings.TrimSpace(r.FormValue("existing_md5")))
	cardBack := strings.TrimSpace(r.FormValue("card_back"))

	v := common.NewValidator().Field("existing_md5", existing, common.Fingerprint)
	if err := v.Err(); err != nil {
		s.writeError(w, r, "generate", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		s.writeError(w, r, "generate", common.InvalidInputf("read file: %v", err))
		return
	}
	if file != nil {
		defer file.Close()
	}

	if existing != "" && regenerate {
		_, err := s.deps.Cards.Get(ctx, existing)
		switch {
		case err == nil:
			s.logger.Info("generate.regenerate", "md5", existing, "card_back", cardBack)
			card, err := s.deps.Ingestor.Regenerate(ctx, existing, cardBack)
			if err != nil {
				s.writeError(w, r, "generate", err)
				return
			}
			writeJSON(w, http.StatusOK, card)
			return
		case !errors.Is(err, common.ErrNotFound):
			s.writeError(w, r, "generate", err)
			return
		case file == nil:
			s.writeError(w, r, "generate", common.NotFoundf("card %s not found", existing))
			return
		}
	}

	if file == nil {
		s.writeError(w, r, "generate", common.InvalidInputf("File is required if not regenerating by MD5"))
		return
	}

	card, outcome, err := s.deps.Ingestor.Ingest(ctx, ingest.Request{
		Data:       file,
		Filename:   header.Filename,
		CardBack:   cardBack,
		Regenerate: regenerate,
	})
	if err != nil {
		s.writeError(w, r, "generate", err)
		return
	}
	s.logger.Info("generate.ok", "md5", card.MD5, "outcome", outcome)
	writeJSON(w, http.StatusOK, card)
}

// handleBatchGenerate ingests up to MaxBatchFiles uploads with one card-back.
// Files that fail are skipped; the result keeps upload order.
func (s *Server) handleBatchGenerate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.writeError(w, r, "batch_generate", err)
		return
	}
	files := formFiles(r, "files")
	cardBack := strings.TrimSpace(r.FormValue("card_back"))

	v := common.NewValidator().
		Field("files", len(files), common.Required, common.MaxCount(MaxBatchFiles))
	if err := v.Err(); err != nil {
		s.writeError(w, r, "batch_generate", err)
		return
	}

	slots := make([]*entity.Card, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchParallelism)
	for i, fh := range files {
		g.Go(func() error {
			card, err := s.ingestHeader(ctx, fh, cardBack)
			if err != nil {
				s.logger.Warn("batch_generate.item_failed", "index", i, "filename", fh.Filename, "error", err)
				return nil
			}
			slots[i] = &card
			return nil
		})
	}
	_ = g.Wait()

	cards := make([]entity.Card, 0, len(files))
	for _, c := range slots {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	s.logger.Info("batch_generate.done", "files", len(files), "cards", len(cards))
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGodDraw(w http.ResponseWriter, r *http.Request) {
	cards, err := s.deps.GodDraw.Draw(r.Context())
	if err != nil {
		s.writeError(w, r, "god_draw", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) ingestHeader(ctx context.Context, fh *multipart.FileHeader, cardBack string) (entity.Card, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.Card{}, err
	}
	defer f.Close()
	card, _, err := s.deps.Ingestor.Ingest(ctx, ingest.Request{
		Data:     f,
		Filename: fh.Filename,
		CardBack: cardBack,
	})
	return card, err
}

func formFiles(r *http.Request, key string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[key]
}
