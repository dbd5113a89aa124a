package extraction

import (
	"context"
	"encoding/json"

	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
)

// extractTwoCall asks the names endpoint which actions the text refers to,
// then asks the arguments endpoint to fill their parameters.
func (c *Client) extractTwoCall(ctx context.Context, req Request) (*schema.Extraction, error) {
	names, message, err := c.fetchNames(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return &schema.Extraction{Actions: []schema.ExtractedAction{}, Message: message}, nil
	}

	// Unregistered names are absent from the description; they are still
	// emitted below so the dispatcher reports them.
	described := c.describer.ArgsDescription(names...)

	args := map[string]any{}
	if len(described) > 0 {
		args, err = c.fetchArguments(ctx, req.Text, described)
		if err != nil {
			return nil, err
		}
	}

	out := &schema.Extraction{
		Actions: make([]schema.ExtractedAction, 0, len(names)),
		Message: message,
	}
	for _, name := range names {
		raw, err := toRawArgs(c.cfg.Endpoints.Arguments, args[name])
		if err != nil {
			return nil, err
		}
		out.Actions = append(out.Actions, schema.ExtractedAction{Action: name, Args: raw})
	}
	return out, nil
}

func (c *Client) fetchNames(ctx context.Context, req Request) ([]string, string, error) {
	endpoint := c.cfg.Endpoints.Names

	doc, err := c.post(ctx, endpoint, req)
	if err != nil {
		return nil, "", err
	}
	if err := c.validator.Validate(validation.ShapeNames, doc); err != nil {
		return nil, "", withEndpoint(err, endpoint)
	}

	var (
		list    []any
		message string
	)
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v["actions"].([]any)
		message, _ = v["message"].(string)
	}

	names := make([]string, 0, len(list))
	for _, n := range list {
		if s, ok := n.(string); ok {
			names = append(names, s)
		}
	}
	return names, message, nil
}

func (c *Client) fetchArguments(ctx context.Context, text string, described map[string]map[string]string) (map[string]any, error) {
	endpoint := c.cfg.Endpoints.Arguments

	dict, err := json.Marshal(described)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "encode functions_args_dict").WithCause(err)
	}

	doc, err := c.post(ctx, endpoint, argumentsRequest{Text: text, FunctionsArgsDict: string(dict)})
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(validation.ShapeArguments, doc); err != nil {
		return nil, withEndpoint(err, endpoint)
	}

	m, _ := doc.(map[string]any)
	return m, nil
}

// toRawArgs converts one validated argument entry. Missing or null entries
// become empty named args.
func toRawArgs(endpoint string, v any) (schema.RawArgs, error) {
	if v == nil {
		return schema.NamedArgs(nil), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return schema.RawArgs{}, malformed(endpoint, "cannot re-encode arguments", err)
	}
	var raw schema.RawArgs
	if err := json.Unmarshal(b, &raw); err != nil {
		return schema.RawArgs{}, malformed(endpoint, "arguments are neither an object nor a list", err)
	}
	return raw, nil
}
