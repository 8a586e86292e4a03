package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/packs"
)

type uploadPacksResponse struct {
	Message string   `json:"message"`
	PackIDs []string `json:"pack_ids"`
}

// partialPacksBody is an error body that still lists the packs that were queued.
type partialPacksBody struct {
	Detail  string   `json:"detail"`
	PackIDs []string `json:"pack_ids"`
}

// handleUploadPacks buffers the uploads and returns as soon as every pack is
// queued; ingestion happens in the background.
func (s *Server) handleUploadPacks(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.writeError(w, r, "upload_packs", err)
		return
	}
	headers := formFiles(r, "files")
	if err := common.NewValidator().Field("files", len(headers), common.Required).Err(); err != nil {
		s.writeError(w, r, "upload_packs", err)
		return
	}

	uploads := make([]async.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, "upload_packs", common.InvalidInputf("read %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.writeError(w, r, "upload_packs", common.InvalidInputf("read %s: %v", fh.Filename, err))
			return
		}
		uploads = append(uploads, async.Upload{Filename: fh.Filename, Data: data})
	}

	ids, err := s.deps.Packs.CreatePacks(r.Context(), uploads)
	var partial *packs.PartialScheduleError
	if errors.As(err, &partial) {
		s.logger.Error("upload_packs.partial",
			"request_id", common.RequestIDFromContext(r.Context()),
			"scheduled", partial.Scheduled,
			"error", partial.Err,
		)
		writeJSON(w, common.HTTPStatus(partial.Err), partialPacksBody{
			Detail:  common.PublicMessage(partial.Err),
			PackIDs: partial.Scheduled,
		})
		return
	}
	if err != nil {
		s.writeError(w, r, "upload_packs", err)
		return
	}
	writeJSON(w, http.StatusOK, uploadPacksResponse{
		Message: "Packs created and processing in background",
		PackIDs: ids,
	})
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	pending, err := s.deps.Packs.ListPending(r.Context())
	if err != nil {
		s.writeError(w, r, "list_packs", err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := s.deps.Packs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "get_pack", err)
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

func (s *Server) handleOpenPack(w http.ResponseWriter, r *http.Request) {
	cards, err := s.deps.Packs.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "open_pack", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}
