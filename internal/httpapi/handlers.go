package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
)

const maxRequestBody = 1 << 20

type runRequest struct {
	Text      string   `json:"text"`
	TopK      *int     `json:"top_k"`
	Threshold *float64 `json:"threshold"`
}

// handleRun runs one query. Per-action failures are part of a 200 response;
// only query-level failures produce an error status.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, schema.NewError(schema.ErrCodeValidation, "cannot read request body"))
		return
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, schema.NewErrorf(schema.ErrCodeValidation, "invalid JSON: %v", err))
		return
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.Validate(validation.ShapeRunRequest, doc); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	var body runRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, http.StatusBadRequest, schema.NewErrorf(schema.ErrCodeValidation, "invalid request: %v", err))
		return
	}

	q, err := s.deps.Runner.RunWith(r.Context(), pipeline.Request{
		Text:      body.Text,
		TopK:      body.TopK,
		Threshold: body.Threshold,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.deps.Logger.WarnContext(r.Context(), "query failed", slog.String("error", err.Error()))
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": s.deps.Actions.List()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.deps.Version != "" {
		resp["version"] = s.deps.Version
	}
	writeJSON(w, http.StatusOK, resp)
}
