package validation

// Shape names a JSON document the pipeline exchanges with the outside world.
type Shape string

const (
	// ShapeCombined is the combined endpoint response:
	// {actions: [{action, args}], message?}.
	ShapeCombined Shape = "combined"
	// ShapeNames is the name-only endpoint response: ["add"] or {actions: ["add"], message?}.
	ShapeNames Shape = "names"
	// ShapeArguments is the argument-only endpoint response: action → args.
	ShapeArguments Shape = "arguments"
	// ShapeRunRequest is the body of an inbound run request: {text, top_k?, threshold?}.
	ShapeRunRequest Shape = "run_request"
)

// Validator checks decoded JSON documents against a known shape.
// Extraction shapes fail with MALFORMED_RESPONSE, the run request with
// VALIDATION_ERROR.
type Validator interface {
	Validate(shape Shape, doc any) error
}
