package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rendis/textaction/pkg/schema"
)

type errorBody struct {
	Error schema.ErrorDetail `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": {"code", "message"}}.
func writeError(w http.ResponseWriter, status int, err error) {
	detail := schema.ErrorDetail{Code: schema.ErrCodeInvocationFault, Message: err.Error()}
	var se *schema.Error
	if errors.As(err, &se) {
		detail = schema.ErrorDetail{Code: se.Code, Message: se.Message}
	}
	writeJSON(w, status, errorBody{Error: detail})
}

// statusFor maps a query-level error to an HTTP status. Failures of the
// upstream extraction service surface as 502.
func statusFor(err error) int {
	switch schema.CodeOf(err) {
	case schema.ErrCodeValidation:
		return http.StatusBadRequest
	case schema.ErrCodeExtractionService, schema.ErrCodeMalformedResponse, schema.ErrCodeCircuitOpen:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
