// Package report assembles and renders the result of one query.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rendis/textaction/pkg/schema"
)

// Build assembles a QueryResult. It performs no I/O and never fails; results
// keep the order they were produced in.
func Build(queryID string, results []schema.ActionResult, message string) *schema.QueryResult {
	if results == nil {
		results = []schema.ActionResult{}
	}
	return &schema.QueryResult{
		QueryID: queryID,
		Results: results,
		Message: message,
	}
}

// RenderJSON writes q as indented JSON followed by a newline.
func RenderJSON(w io.Writer, q *schema.QueryResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

// RenderText writes one line per action, then the service message if any.
//
//	add: 7
//	divide: error [INVOCATION_FAULT] division by zero
func RenderText(w io.Writer, q *schema.QueryResult) error {
	if len(q.Results) == 0 {
		if _, err := fmt.Fprintln(w, "no actions matched"); err != nil {
			return err
		}
	}
	for _, r := range q.Results {
		var line string
		if r.OK() {
			line = fmt.Sprintf("%s: %s", r.Action, formatOutput(r.Output))
		} else {
			code, msg := schema.ErrCodeInvocationFault, ""
			if r.Error != nil {
				code, msg = r.Error.Code, r.Error.Message
			}
			line = fmt.Sprintf("%s: error [%s] %s", r.Action, code, msg)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if q.Message != "" {
		if _, err := fmt.Fprintln(w, q.Message); err != nil {
			return err
		}
	}
	return nil
}

// formatOutput prints whole floats without a fractional part.
func formatOutput(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return "null"
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
