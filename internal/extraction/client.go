// Package extraction talks to the external service that turns free text into
// action names and raw arguments.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rendis/textaction/internal/expressions"
	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
)

// Extractor produces the normalized extraction for a request.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*schema.Extraction, error)
}

// ArgsDescriber supplies the action → param → type map sent to the
// argument-only endpoint.
type ArgsDescriber interface {
	ArgsDescription(names ...string) map[string]map[string]string
}

// Deps holds the collaborators of a Client.
type Deps struct {
	Validator validation.Validator
	JQ        *expressions.GoJQEngine // required only when selectors are set
	Describer ArgsDescriber           // required in two-call mode
	Logger    *slog.Logger
}

// Client is the HTTP Extractor. Safe for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	validator validation.Validator
	jq        *expressions.GoJQEngine
	describer ArgsDescriber
	logger    *slog.Logger
}

// NewClient creates a Client. Zero config fields take their defaults.
func NewClient(cfg Config, deps Deps) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Validator == nil {
		return nil, fmt.Errorf("extraction: validator is required")
	}
	if cfg.Mode == ModeTwoCall && deps.Describer == nil {
		return nil, fmt.Errorf("extraction: two-call mode requires an args describer")
	}
	if (cfg.Selectors.Actions != "" || cfg.Selectors.Message != "") && deps.JQ == nil {
		deps.JQ = expressions.NewGoJQEngine()
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return &Client{
		cfg:       cfg,
		http:      hc,
		validator: deps.Validator,
		jq:        deps.JQ,
		describer: deps.Describer,
		logger:    logger,
	}, nil
}

// Mode returns the configured mode.
func (c *Client) Mode() Mode { return c.cfg.Mode }

// ExtractActions is the positional form of Extract.
func (c *Client) ExtractActions(ctx context.Context, text string, topK int, threshold float64) (*schema.Extraction, error) {
	return c.Extract(ctx, Request{Text: text, TopK: topK, Threshold: threshold})
}

// Extract validates req, queries the service and returns the normalized
// extraction. A malformed response is never partially returned.
func (c *Client) Extract(ctx context.Context, req Request) (*schema.Extraction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		out *schema.Extraction
		err error
	)
	switch c.cfg.Mode {
	case ModeTwoCall:
		out, err = c.extractTwoCall(ctx, req)
	default:
		out, err = c.extractCombined(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "extraction complete",
		slog.String("mode", string(c.cfg.Mode)),
		slog.Int("actions", len(out.Actions)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// post sends body as JSON to endpoint and returns the decoded response,
// with one level of JSON-string wrapping removed.
func (c *Client) post(ctx context.Context, endpoint string, body any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "encode request for %s", endpoint).WithCause(err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, serviceError(endpoint, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, serviceError(endpoint, 0, fmt.Sprintf("request failed: %v", err), err)
	}
	defer resp.Body.Close()

	// One byte past the limit tells an oversized body from one that fits exactly.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBody+1))
	if err != nil {
		return nil, serviceError(endpoint, resp.StatusCode, "failed to read response body", err)
	}
	oversized := int64(len(raw)) > c.cfg.MaxResponseBody
	if oversized {
		raw = raw[:c.cfg.MaxResponseBody]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serviceError(endpoint, resp.StatusCode,
			fmt.Sprintf("service returned %d", resp.StatusCode), nil).
			WithDetails(map[string]any{
				"endpoint": endpoint,
				"status":   resp.StatusCode,
				"body":     truncate(string(raw), 512),
			})
	}

	if oversized {
		return nil, malformed(endpoint,
			fmt.Sprintf("response exceeds the %d byte limit", c.cfg.MaxResponseBody), nil)
	}
	return decodeBody(endpoint, raw)
}

// decodeBody parses raw as JSON. A top-level string that itself holds a JSON
// object or array is decoded once more; services that serialize their answer
// before returning it produce exactly that.
func decodeBody(endpoint string, raw []byte) (any, error) {
	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, malformed(endpoint, "response is not valid JSON", err)
	}

	s, ok := doc.(string)
	if !ok {
		return doc, nil
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return doc, nil
	}
	inner, err := decodeJSON([]byte(trimmed))
	if err != nil {
		return nil, malformed(endpoint, "response string does not contain valid JSON", err)
	}
	return inner, nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

func serviceError(endpoint string, status int, msg string, cause error) *schema.Error {
	e := schema.NewErrorf(schema.ErrCodeExtractionService, "POST %s: %s", endpoint, msg).
		WithDetails(map[string]any{"endpoint": endpoint, "status": status})
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

func malformed(endpoint, msg string, cause error) *schema.Error {
	e := schema.NewErrorf(schema.ErrCodeMalformedResponse, "%s: %s", endpoint, msg).
		WithDetails(map[string]any{"endpoint": endpoint})
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Extractor = (*Client)(nil)
