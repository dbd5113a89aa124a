package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/internal/dispatcher"
	"github.com/rendis/textaction/internal/expressions"
	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/internal/resilience"
	"github.com/rendis/textaction/internal/validation"
)

// Options configures Bootstrap.
type Options struct {
	Extraction extraction.Config
	Retry      resilience.RetryPolicy
	// Breaker enables the circuit breaker when non-nil.
	Breaker *resilience.CircuitBreakerConfig

	TopK      int
	Threshold *float64
	Logger    *slog.Logger
}

// Stack is a fully wired query pipeline and the registry behind it.
type Stack struct {
	Registry *actions.Registry
	Pipeline *Pipeline
}

// Bootstrap builds the registry with the built-in actions, the expression
// engines, the extraction client with its optional wrappers, the dispatcher
// and the pipeline.
func Bootstrap(opts Options) (*Stack, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, fmt.Errorf("init cel engine: %w", err)
	}

	reg := actions.NewRegistry()
	if err := actions.RegisterBuiltins(reg, expressions.NewExprEngine()); err != nil {
		return nil, fmt.Errorf("register builtins: %w", err)
	}

	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	client, err := extraction.NewClient(opts.Extraction, extraction.Deps{
		Validator: validator,
		JQ:        expressions.NewGoJQEngine(),
		Describer: reg,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init extraction client: %w", err)
	}

	var extractor extraction.Extractor = client
	if opts.Breaker != nil {
		key := opts.Extraction.BaseURL
		if key == "" {
			key = extraction.DefaultBaseURL
		}
		extractor = resilience.NewBreaking(extractor, resilience.NewCircuitBreakerRegistry(*opts.Breaker), key)
	}
	if opts.Retry.Max > 0 {
		extractor = resilience.NewRetrying(extractor, opts.Retry, logger)
	}

	disp := dispatcher.New(dispatcher.Deps{
		Registry: reg,
		Guards:   celEngine,
		Logger:   logger,
	})

	return &Stack{
		Registry: reg,
		Pipeline: New(Deps{
			Extractor:  extractor,
			Dispatcher: disp,
			Logger:     logger,
			TopK:       opts.TopK,
			Threshold:  opts.Threshold,
		}),
	}, nil
}
