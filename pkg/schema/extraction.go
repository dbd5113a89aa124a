package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawArgs holds the untyped arguments the extraction service supplied for one
// action. Exactly one form is populated: Named when the service sent a JSON
// object, Positional when it sent a JSON array.
type RawArgs struct {
	Named      map[string]any
	Positional []any
}

// NamedArgs builds a RawArgs in named form.
func NamedArgs(m map[string]any) RawArgs {
	if m == nil {
		m = map[string]any{}
	}
	return RawArgs{Named: m}
}

// PositionalArgs builds a RawArgs in positional form.
func PositionalArgs(values ...any) RawArgs {
	if values == nil {
		values = []any{}
	}
	return RawArgs{Positional: values}
}

// IsPositional reports whether the arguments arrived as an ordered sequence.
func (r RawArgs) IsPositional() bool {
	return r.Positional != nil
}

// Len returns the number of raw values.
func (r RawArgs) Len() int {
	if r.IsPositional() {
		return len(r.Positional)
	}
	return len(r.Named)
}

// UnmarshalJSON accepts an object, an array or null.
func (r *RawArgs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = NamedArgs(nil)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '{':
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return err
		}
		*r = NamedArgs(m)
	case '[':
		var s []any
		if err := dec.Decode(&s); err != nil {
			return err
		}
		*r = PositionalArgs(s...)
	default:
		return fmt.Errorf("args must be an object or an array, got %s", string(trimmed[:1]))
	}
	return nil
}

// MarshalJSON writes the populated form.
func (r RawArgs) MarshalJSON() ([]byte, error) {
	if r.IsPositional() {
		return json.Marshal(r.Positional)
	}
	if r.Named == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Named)
}

// ExtractedAction is one candidate action named by the extraction service.
type ExtractedAction struct {
	Action string  `json:"action"`
	Args   RawArgs `json:"args"`
}

// Extraction is the normalized extraction response, independent of which
// service endpoint produced it.
type Extraction struct {
	Actions []ExtractedAction `json:"actions"`
	Message string            `json:"message,omitempty"`
}
