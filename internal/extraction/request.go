package extraction

import (
	"strings"

	"github.com/rendis/textaction/pkg/schema"
)

// Request is what the name-producing endpoints receive.
type Request struct {
	Text      string  `json:"text"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

// Validate rejects requests no service could answer meaningfully.
// The values are forwarded verbatim; the client does no filtering of its own.
func (r Request) Validate() error {
	res := &schema.ValidationResult{}
	if strings.TrimSpace(r.Text) == "" {
		res.AddError("text", schema.ErrCodeValidation, "text is empty")
	}
	if r.TopK < 1 {
		res.AddError("top_k", schema.ErrCodeValidation, "top_k must be at least 1")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		res.AddError("threshold", schema.ErrCodeValidation, "threshold must be within [0, 1]")
	}
	return res.ToError()
}

// argumentsRequest is the body of the argument-only endpoint. The service
// expects functions_args_dict as a JSON-encoded string.
type argumentsRequest struct {
	Text              string `json:"text"`
	FunctionsArgsDict string `json:"functions_args_dict"`
}
