package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/internal/coercion"
	"github.com/rendis/textaction/internal/logging"
	"github.com/rendis/textaction/pkg/schema"
)

// Resolver looks up registered actions by name.
type Resolver interface {
	Lookup(name string) (*actions.Definition, error)
}

// GuardChecker evaluates a boolean precondition against coerced arguments.
type GuardChecker interface {
	Check(ctx context.Context, expression string, action string, args map[string]any) (bool, error)
}

// Deps holds the dependencies for creating a Dispatcher.
type Deps struct {
	Registry Resolver
	Guards   GuardChecker // optional; guards are skipped when nil
	Logger   *slog.Logger
}

// Dispatcher binds extracted actions to registered implementations and runs
// them one by one. Every per-action failure becomes an error result; nothing
// an action does can abort its siblings.
type Dispatcher struct {
	registry Resolver
	guards   GuardChecker
	logger   *slog.Logger
}

// New creates a Dispatcher.
func New(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Dispatcher{
		registry: deps.Registry,
		guards:   deps.Guards,
		logger:   logger,
	}
}

// Dispatch processes extracted in the order received and returns exactly one
// result per entry, in the same order. No reordering, deduplication or
// parallelism: later actions may rely on earlier side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, extracted []schema.ExtractedAction) []schema.ActionResult {
	results := make([]schema.ActionResult, 0, len(extracted))
	for _, ea := range extracted {
		actx := logging.WithAction(ctx, ea.Action)
		output, err := d.dispatchOne(actx, ea)
		if err != nil {
			d.logger.WarnContext(actx, "action failed",
				slog.String("code", schema.CodeOf(err)),
				slog.String("error", err.Error()))
			results = append(results, schema.Failed(ea.Action, err))
			continue
		}
		d.logger.DebugContext(actx, "action succeeded", slog.Any("output", output))
		results = append(results, schema.Succeeded(ea.Action, output))
	}
	return results
}

// dispatchOne runs resolve → coerce → guard → invoke for one action.
func (d *Dispatcher) dispatchOne(ctx context.Context, ea schema.ExtractedAction) (any, error) {
	def, err := d.registry.Lookup(ea.Action)
	if err != nil {
		if schema.HasCode(err, schema.ErrCodeActionNotFound) {
			return nil, err
		}
		return nil, schema.NewErrorf(schema.ErrCodeActionNotFound, "action not found: %q", ea.Action).
			WithAction(ea.Action).
			WithCause(err)
	}

	inv, err := coercion.Bind(def.Name, def.Forms(), ea.Args)
	if err != nil {
		return nil, err
	}

	if err := d.checkGuards(ctx, def, inv); err != nil {
		return nil, err
	}

	return invoke(ctx, def, inv)
}

func (d *Dispatcher) checkGuards(ctx context.Context, def *actions.Definition, inv *coercion.Invocation) error {
	if d.guards == nil || len(def.Guards) == 0 {
		return nil
	}
	named := inv.Named()
	for _, g := range def.Guards {
		ok, err := d.guards.Check(ctx, g.Expression, def.Name, named)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeInvocationFault, "guard %q: %v", g.Expression, err).
				WithAction(def.Name).
				WithCause(err)
		}
		if !ok {
			msg := g.Message
			if msg == "" {
				msg = fmt.Sprintf("precondition %q not met", g.Expression)
			}
			return schema.NewError(schema.ErrCodeInvocationFault, msg).
				WithAction(def.Name).
				WithDetails(map[string]any{"guard": g.Expression})
		}
	}
	return nil
}

// invoke calls the implementation, converting both returned errors and
// panics into INVOCATION_FAULT.
func invoke(ctx context.Context, def *actions.Definition, inv *coercion.Invocation) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = schema.NewErrorf(schema.ErrCodeInvocationFault, "action panicked: %v", r).
				WithAction(def.Name).
				WithDetails(map[string]any{"stack": string(debug.Stack())})
		}
	}()

	output, err = def.Invoke(ctx, inv.Args)
	if err == nil {
		return output, nil
	}

	var se *schema.Error
	if errors.As(err, &se) && se.Code == schema.ErrCodeInvocationFault {
		if se.Action != "" {
			return nil, se
		}
		// The implementation may return a shared error value; stamp a copy.
		stamped := *se
		stamped.Action = def.Name
		return nil, &stamped
	}
	return nil, schema.NewError(schema.ErrCodeInvocationFault, err.Error()).
		WithAction(def.Name).
		WithCause(err)
}
