package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps err onto a status and a {"detail": ...} body. Server-side
// failures are logged with the request id.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+".failed",
			"request_id", common.RequestIDFromContext(r.Context()),
			"error", err,
		)
	} else {
		s.logger.Debug(op+".rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: common.PublicMessage(err)})
}

// parseForm accepts multipart and urlencoded bodies; a body that is neither
// leaves the form empty.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	err := r.ParseMultipartForm(maxMultipartMemory)
	if err == nil {
		return nil
	}
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return common.InvalidInputf("request body exceeds %d bytes", maxErr.Limit)
	}
	return common.InvalidInputf("malformed form: %v", err)
}

// formBool reads FastAPI-style booleans ("true", "1", "on", "yes").
func formBool(r *http.Request, key string) bool {
	v := strings.TrimSpace(strings.ToLower(r.FormValue(key)))
	switch v {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
