package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/textaction/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBaseURL = "https://textaction.dev/schemas/"

// Schemas are embedded as constants to avoid filesystem dependencies.
var shapeSchemas = map[Shape]string{
	ShapeCombined: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["actions"],
  "properties": {
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action"],
        "properties": {
          "action": { "type": "string", "minLength": 1 },
          "args": { "type": ["object", "array", "null"] }
        }
      }
    },
    "message": { "type": ["string", "null"] }
  }
}`,
	ShapeNames: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "names": {
      "type": "array",
      "items": { "type": "string", "minLength": 1 }
    }
  },
  "oneOf": [
    { "$ref": "#/$defs/names" },
    {
      "type": "object",
      "required": ["actions"],
      "properties": {
        "actions": { "$ref": "#/$defs/names" },
        "message": { "type": ["string", "null"] }
      }
    }
  ]
}`,
	ShapeArguments: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": { "type": ["object", "array", "null"] }
}`,
	ShapeRunRequest: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": { "type": "string", "minLength": 1 },
    "top_k": { "type": "integer", "minimum": 1 },
    "threshold": { "type": "number", "minimum": 0, "maximum": 1 }
  },
  "additionalProperties": false
}`,
}

// JSONSchemaValidator implements the Validator interface using JSON Schema Draft 2020-12.
// All schemas are compiled once at construction; it is safe for concurrent use.
type JSONSchemaValidator struct {
	schemas map[Shape]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a new JSONSchemaValidator with every shape pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	compiled := make(map[Shape]*jsonschema.Schema, len(shapeSchemas))
	for shape, src := range shapeSchemas {
		url := schemaBaseURL + string(shape) + ".json"

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s schema: %w", shape, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s schema resource: %w", shape, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", shape, err)
		}
		compiled[shape] = s
	}

	return &JSONSchemaValidator{schemas: compiled}, nil
}

// Validate checks doc against the schema registered for shape.
func (v *JSONSchemaValidator) Validate(shape Shape, doc any) error {
	code := codeFor(shape)

	s, ok := v.schemas[shape]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown document shape %q", shape)
	}

	// Convert to a JSON-compatible value (json.Number for numbers).
	val, err := toJSONValue(doc)
	if err != nil {
		return schema.NewErrorf(code, "%s document is not valid JSON", shape).WithCause(err)
	}

	if err := s.Validate(val); err != nil {
		return toSchemaError(code, shape, err)
	}
	return nil
}

func codeFor(shape Shape) string {
	if shape == ShapeRunRequest {
		return schema.ErrCodeValidation
	}
	return schema.ErrCodeMalformedResponse
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toSchemaError converts a jsonschema.ValidationError into a schema.Error
// whose message points at the offending location.
func toSchemaError(code string, shape Shape, err error) *schema.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(code, err.Error()).WithCause(err)
	}

	violations := collectViolations(verr)
	details := map[string]any{"shape": string(shape), "violations": violations}

	switch len(violations) {
	case 0:
		return schema.NewError(code, verr.Error()).WithDetails(details)
	case 1:
		return schema.NewErrorf(code, "%s: %s", shape, violations[0]).WithDetails(details)
	default:
		return schema.NewErrorf(code, "%s: validation failed with %d errors", shape, len(violations)).
			WithDetails(details)
	}
}

// collectViolations walks a ValidationError tree and collects leaf error messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

var _ Validator = (*JSONSchemaValidator)(nil)
