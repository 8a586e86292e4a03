package server

import (
	"net/http"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/async"
)

type healthResponse struct {
	Status string      `json:"status"`
	Queue  async.Stats `json:"queue"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Queue: s.deps.Packs.Stats()})
}
