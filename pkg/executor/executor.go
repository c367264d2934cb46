package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/browser"
)

// ErrShutdown is returned by Submit after Shutdown has begun.
var ErrShutdown = errors.New("executor is shut down")

// Command is one unit of work executed against the session on the worker.
type Command func(ctx context.Context) (interface{}, error)

// item pairs a command with its private reply slot
type item struct {
	id         string
	name       string
	ctx        context.Context
	enqueuedAt time.Time
	cmd        Command
	reply      chan result
}

type result struct {
	value interface{}
	err   error
}

// Executor owns one browser session and executes submitted commands against
// it one at a time, in submission order.
type Executor struct {
	session *browser.Session

	mu    sync.Mutex
	queue []*item
	busy  bool
	down  bool

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}

	teardown sync.Once
}

// New creates an executor for the given session and starts its worker.
// The session must be unopened: the browser is launched on the worker by
// the first open command, never on a caller's goroutine.
func New(session *browser.Session) *Executor {
	observability.EnsureRegistered()

	e := &Executor{
		session: session,
		queue:   make([]*item, 0),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go e.worker()

	log.Debug().Msg("Executor started")
	return e
}

// Session returns the session this executor owns. Callers may hold the
// reference for identification but must only touch it through Submit.
func (e *Executor) Session() *browser.Session {
	return e.session
}

// SubmitOptions tunes reporting for one submission. The zero value disables
// everything optional.
type SubmitOptions struct {
	// WarnAfter logs a warning if the command is still waiting in the queue
	// after this long. Zero disables the warning.
	WarnAfter time.Duration

	// OnWait is called at most once, when WarnAfter elapses with the command
	// still queued.
	OnWait func(wait time.Duration, queuePos int)
}

// Submit enqueues a command and blocks until the worker has executed it.
// The returned value and error are exactly what the command produced; an
// error is never wrapped on the way back. After Shutdown has begun, Submit
// fails immediately with ErrShutdown.
func (e *Executor) Submit(ctx context.Context, name string, cmd Command) (interface{}, error) {
	return e.SubmitWithOptions(ctx, name, cmd, SubmitOptions{})
}

// SubmitWithOptions is Submit with per-command reporting options.
func (e *Executor) SubmitWithOptions(ctx context.Context, name string, cmd Command, opts SubmitOptions) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.PropagateToCommand(ctx)

	ctx, span := tracing.StartSpan(
		ctx,
		"rudder.executor",
		"executor.submit",
		attribute.String("command", name),
	)
	defer span.End()

	record := &item{
		id:         tracing.GetCommandID(ctx),
		name:       name,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		cmd:        cmd,
		reply:      make(chan result, 1),
	}

	e.mu.Lock()
	if e.down {
		e.mu.Unlock()
		span.RecordError(ErrShutdown)
		span.SetStatus(codes.Error, ErrShutdown.Error())
		return nil, ErrShutdown
	}
	e.queue = append(e.queue, record)
	depth := len(e.queue)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Str("command", name).
		Int("depth", depth).
		Msg("Command enqueued")

	observability.RecordQueueEnqueue(depth)

	if opts.WarnAfter > 0 {
		go e.warnIfStillQueued(record, opts)
	}

	res := <-record.reply
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	return res.value, res.err
}

// warnIfStillQueued fires once after opts.WarnAfter; if the command has not
// started yet it logs the wait and its queue position.
func (e *Executor) warnIfStillQueued(record *item, opts SubmitOptions) {
	timer := time.NewTimer(opts.WarnAfter)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-e.quit:
		return
	}

	e.mu.Lock()
	queuePos := -1
	for i, queued := range e.queue {
		if queued == record {
			queuePos = i
			break
		}
	}
	e.mu.Unlock()

	if queuePos < 0 {
		return
	}

	wait := time.Since(record.enqueuedAt)
	log.Warn().
		Str("command", record.name).
		Str("command_id", record.id).
		Dur("wait", wait).
		Int("queuePos", queuePos).
		Msg("Command waiting longer than expected")

	if opts.OnWait != nil {
		opts.OnWait(wait, queuePos)
	}
}

// Depth returns the number of commands waiting in the queue, excluding the
// one currently executing.
func (e *Executor) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Busy reports whether the worker is currently executing a command.
func (e *Executor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Shutdown stops intake, lets the worker drain every command that was
// already queued, joins the worker, then closes the session if an open
// command left it open. It is safe to call more than once and from
// multiple goroutines; ctx bounds how long to wait for the drain.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.down {
		e.down = true
		close(e.quit)
	}
	e.mu.Unlock()

	select {
	case <-e.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error
	e.teardown.Do(func() {
		if e.session.IsOpen() {
			err = e.session.Close()
		}
	})

	log.Debug().Msg("Executor stopped")
	return err
}

// worker is the single goroutine allowed to touch the session.
func (e *Executor) worker() {
	defer close(e.stopped)

	for {
		record := e.next()
		if record == nil {
			return
		}
		e.execute(record)
	}
}

// next pops the oldest queued item, blocking while the queue is empty. It
// returns nil only when shutdown has begun and the queue is fully drained.
func (e *Executor) next() *item {
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			record := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return record
		}
		down := e.down
		e.mu.Unlock()

		if down {
			return nil
		}

		// quit is closed on shutdown, which turns this select non-blocking
		// so the loop re-checks the queue until the drain finishes.
		select {
		case <-e.wake:
		case <-e.quit:
		}
	}
}

// execute runs one command and posts its outcome to the submitter.
func (e *Executor) execute(record *item) {
	ctx := record.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"rudder.executor",
		"executor.execute",
		attribute.String("command", record.name),
		attribute.String("command_id", record.id),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("command", record.name).Logger()

	wait := time.Since(record.enqueuedAt)

	e.mu.Lock()
	e.busy = true
	e.mu.Unlock()

	startTime := time.Now()
	value, err := e.invoke(ctx, record)
	duration := time.Since(startTime)

	e.mu.Lock()
	e.busy = false
	depth := len(e.queue)
	e.mu.Unlock()

	record.reply <- result{value: value, err: err}
	close(record.reply)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().
			Dur("wait", wait).
			Dur("duration", duration).
			Err(err).
			Msg("Command failed")
	} else {
		logger.Debug().
			Dur("wait", wait).
			Dur("duration", duration).
			Msg("Command completed")
	}

	observability.RecordQueueCompletion(record.name, wait, duration, err == nil, depth)
}

// invoke calls the command with panic isolation: a panicking command fails
// like any other error and the worker keeps serving the queue.
func (e *Executor) invoke(ctx context.Context, record *item) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", record.name, r)
			log.Error().
				Str("command", record.name).
				Str("command_id", record.id).
				Str("stack", string(debug.Stack())).
				Msg("Command panicked")
		}
	}()

	return record.cmd(ctx)
}
