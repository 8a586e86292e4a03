package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/llm"
)

const maxSettingsBytes = 1 << 20

var settingsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return llm.CompileSchema(llm.BuildSettingsJSONSchema())
})

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		s.writeError(w, r, "settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings merges a JSON object into the stored settings and
// returns the merged document.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBytes))
	if err != nil {
		s.writeError(w, r, "settings", common.InvalidInputf("read body: %v", err))
		return
	}

	var patch entity.Settings
	if err := json.Unmarshal(raw, &patch); err != nil || patch == nil {
		s.writeError(w, r, "settings", common.InvalidInputf("settings must be a JSON object"))
		return
	}

	schema, err := settingsSchema()
	if err != nil {
		s.writeError(w, r, "settings", err)
		return
	}
	if err := schema.Validate(map[string]any(patch)); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			s.writeError(w, r, "settings", common.InvalidInputf("invalid settings: %s", ve.Error()))
			return
		}
		s.writeError(w, r, "settings", err)
		return
	}

	merged, err := s.deps.Settings.Merge(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, "settings", err)
		return
	}
	s.logger.Info("settings.updated", "keys", len(patch))
	writeJSON(w, http.StatusOK, merged)
}
