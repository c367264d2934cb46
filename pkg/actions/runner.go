package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/browser"
	"github.com/harun/rudder/pkg/executor"
)

const tracerName = "rudder.actions"

// Submitter is the executor-facing capability the runner needs: enqueue one
// command and block until its outcome arrives.
type Submitter interface {
	Submit(ctx context.Context, name string, cmd executor.Command) (interface{}, error)
}

// Runner dispatches named actions. Each action validates its inputs before
// anything is enqueued, then submits exactly one command and relays the
// outcome unchanged. The runner owns the registry and the shared run State;
// the session itself is only ever touched inside submitted commands.
type Runner struct {
	submitter Submitter
	session   *browser.Session
	state     *State
	registry  *Registry
	logger    zerolog.Logger
}

// NewRunner builds a runner with every built-in action registered. A nil
// state starts empty.
func NewRunner(submitter Submitter, session *browser.Session, state *State) (*Runner, error) {
	if state == nil {
		state = NewState()
	}
	r := &Runner{
		submitter: submitter,
		session:   session,
		state:     state,
		registry:  NewRegistry(),
		logger:    log.With().Str("component", "actions").Logger(),
	}
	if err := r.registerBuiltins(); err != nil {
		return nil, err
	}
	return r, nil
}

// State returns the shared run state.
func (r *Runner) State() *State {
	return r.state
}

// Session returns the session the runner's commands operate on.
func (r *Runner) Session() *browser.Session {
	return r.session
}

// Registry returns the action registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Execute runs the named action with the given raw parameters. Validation
// failures (unknown action, unknown or mistyped parameters, missing or
// unusable inputs) return without touching the executor queue; execution
// failures come back with their identity preserved.
func (r *Runner) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "action.run",
		attribute.String("action", name),
	)
	defer span.End()

	def := r.registry.Get(name)
	if def == nil {
		err := configErrorf("unknown action: %s", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := r.registry.ValidateParams(name, params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("action", name).Logger()
	logger.Debug().Msg("Executing action")

	start := time.Now()
	value, err := def.Handler(ctx, Params(params))
	duration := time.Since(start)

	observability.RecordActionExecution(name, duration, err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Dur("duration", duration).Err(err).Msg("Action failed")
		return nil, err
	}

	logger.Debug().Dur("duration", duration).Msg("Action completed")
	return value, nil
}

// submit passes one command to the executor under the action's name.
func (r *Runner) submit(ctx context.Context, name string, cmd executor.Command) (interface{}, error) {
	return r.submitter.Submit(ctx, name, cmd)
}

func (r *Runner) registerBuiltins() error {
	defs := []Definition{
		openAction(r),
		navigateAction(r),
		locateAction(r),
		clickAction(r),
		fillAction(r),
		pressAction(r),
		hoverAction(r),
		checkAction(r),
		selectOptionsAction(r),
		uploadAction(r),
		focusAction(r),
		scrollAction(r),
		dragAction(r),
		screenshotAction(r),
		waitVisibleAction(r),
		waitSelectorAction(r),
		sleepAction(r),
		closeAction(r),
	}
	for _, def := range defs {
		if err := r.registry.Register(def); err != nil {
			return fmt.Errorf("failed to register action %s: %w", def.Name, err)
		}
	}
	return nil
}
