// Package pipeline runs one query end to end: extract, dispatch, report.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/internal/logging"
	"github.com/rendis/textaction/internal/report"
	"github.com/rendis/textaction/pkg/schema"
)

// Defaults applied when a request leaves TopK or Threshold unset.
const (
	DefaultTopK      = 1
	DefaultThreshold = 0.45
)

// Dispatcher runs extracted actions and returns one result per action.
type Dispatcher interface {
	Dispatch(ctx context.Context, extracted []schema.ExtractedAction) []schema.ActionResult
}

// Request is one query. Nil TopK or Threshold take the pipeline defaults.
type Request struct {
	Text      string
	TopK      *int
	Threshold *float64
}

// Deps holds the collaborators of a Pipeline.
type Deps struct {
	Extractor  extraction.Extractor
	Dispatcher Dispatcher
	Logger     *slog.Logger

	// TopK overrides DefaultTopK when non-zero. Threshold overrides
	// DefaultThreshold when non-nil, so an explicit 0 is kept.
	TopK      int
	Threshold *float64
}

// Pipeline wires an Extractor to a Dispatcher. It holds no per-query state
// and is safe for concurrent use.
type Pipeline struct {
	extractor  extraction.Extractor
	dispatcher Dispatcher
	logger     *slog.Logger
	topK       int
	threshold  float64
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(logging.NewCorrelationHandler(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}
	topK := deps.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	threshold := DefaultThreshold
	if deps.Threshold != nil {
		threshold = *deps.Threshold
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		topK:       topK,
		threshold:  threshold,
	}
}

// Run processes text with the default TopK and Threshold.
func (p *Pipeline) Run(ctx context.Context, text string) (*schema.QueryResult, error) {
	return p.RunWith(ctx, Request{Text: text})
}

// RunWith processes one query. An extraction failure aborts the query and is
// returned as the error; per-action failures are carried in the result.
func (p *Pipeline) RunWith(ctx context.Context, req Request) (*schema.QueryResult, error) {
	queryID := uuid.NewString()
	ctx = logging.WithQueryID(ctx, queryID)
	start := time.Now()

	extReq := extraction.Request{Text: req.Text, TopK: p.topK, Threshold: p.threshold}
	if req.TopK != nil {
		extReq.TopK = *req.TopK
	}
	if req.Threshold != nil {
		extReq.Threshold = *req.Threshold
	}

	p.logger.DebugContext(ctx, "query received",
		slog.Int("top_k", extReq.TopK),
		slog.Float64("threshold", extReq.Threshold))

	ext, err := p.extractor.Extract(ctx, extReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "extraction failed",
			slog.String("code", schema.CodeOf(err)),
			slog.String("error", err.Error()))
		return nil, err
	}

	results := p.dispatcher.Dispatch(ctx, ext.Actions)
	q := report.Build(queryID, results, ext.Message)

	succeeded, failed := q.Summary()
	p.logger.InfoContext(ctx, "query complete",
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)))
	return q, nil
}
