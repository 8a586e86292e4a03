package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportCards streams the visible catalog as an XLSX attachment.
func (s *Server) handleExportCards(w http.ResponseWriter, r *http.Request) {
	xlsx, err := s.deps.Exporter.ExportCardsXLSX(r.Context())
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}
	name := fmt.Sprintf("cards-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(xlsx)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
