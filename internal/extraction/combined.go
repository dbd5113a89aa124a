package extraction

import (
	"context"
	"encoding/json"

	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
)

func (c *Client) extractCombined(ctx context.Context, req Request) (*schema.Extraction, error) {
	endpoint := c.cfg.Endpoints.Combined

	doc, err := c.post(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	doc, err = c.applySelectors(ctx, endpoint, doc)
	if err != nil {
		return nil, err
	}

	if err := c.validator.Validate(validation.ShapeCombined, doc); err != nil {
		return nil, withEndpoint(err, endpoint)
	}
	return toExtraction(endpoint, doc)
}

// applySelectors reshapes doc with the configured jq selectors. Keys the
// selectors do not produce are carried over from an object payload.
func (c *Client) applySelectors(ctx context.Context, endpoint string, doc any) (any, error) {
	sel := c.cfg.Selectors
	if sel.Actions == "" && sel.Message == "" {
		return doc, nil
	}

	out := map[string]any{}
	if m, ok := doc.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	if sel.Actions != "" {
		v, err := c.jq.EvaluateValue(ctx, sel.Actions, doc)
		if err != nil {
			return nil, malformed(endpoint, "actions selector failed", err)
		}
		out["actions"] = v
	}
	if sel.Message != "" {
		v, err := c.jq.EvaluateValue(ctx, sel.Message, doc)
		if err != nil {
			return nil, malformed(endpoint, "message selector failed", err)
		}
		out["message"] = v
	}
	return out, nil
}

// toExtraction converts a validated document into the typed form.
func toExtraction(endpoint string, doc any) (*schema.Extraction, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, malformed(endpoint, "cannot re-encode response", err)
	}
	var out schema.Extraction
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, malformed(endpoint, "response does not match the extraction shape", err)
	}
	if out.Actions == nil {
		out.Actions = []schema.ExtractedAction{}
	}
	for i := range out.Actions {
		if !out.Actions[i].Args.IsPositional() && out.Actions[i].Args.Named == nil {
			out.Actions[i].Args = schema.NamedArgs(nil)
		}
	}
	return &out, nil
}

// withEndpoint records which endpoint produced a validation failure.
func withEndpoint(err error, endpoint string) error {
	se, ok := err.(*schema.Error)
	if !ok {
		return err
	}
	if se.Details == nil {
		se.Details = map[string]any{}
	}
	se.Details["endpoint"] = endpoint
	se.Message = endpoint + ": " + se.Message
	return se
}
