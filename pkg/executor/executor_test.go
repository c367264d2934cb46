package executor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/browser"
)

func newTestExecutor() *Executor {
	return New(browser.NewSession(nil, browser.Defaults{}))
}

func TestExecutor_BasicSubmit(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	executed := false
	value, err := exec.Submit(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		executed = true
		return "result", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "result", value)
	assert.True(t, executed)
}

func TestExecutor_ErrorIdentityPreserved(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	expectedErr := &browser.Error{Code: browser.ErrCodeElementNotFound, Message: "element not found"}
	value, err := exec.Submit(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		return nil, expectedErr
	})

	assert.Nil(t, value)
	require.Error(t, err)

	// The exact error value crosses the reply channel, not a copy or wrap.
	var be *browser.Error
	require.True(t, errors.As(err, &be))
	assert.Same(t, expectedErr, be)
}

func TestExecutor_SerializedExecution(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Submit(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inFlight--
				total++
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, total)
	assert.Equal(t, 1, maxInFlight, "no two commands may overlap")
}

func TestExecutor_FIFOOrder(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	gate := make(chan struct{})
	var order []int
	var mu sync.Mutex

	// Park the worker so later submissions pile up in the queue.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Submit(context.Background(), "gate", func(ctx context.Context) (interface{}, error) {
			<-gate
			return nil, nil
		})
	}()

	// Wait for the gate command to reach the worker.
	require.Eventually(t, exec.Busy, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		i := i
		before := exec.Depth()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = exec.Submit(context.Background(), "ordered", func(ctx context.Context) (interface{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}()
		// Confirm each enqueue landed before issuing the next one.
		require.Eventually(t, func() bool { return exec.Depth() > before }, time.Second, time.Millisecond)
	}

	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExecutor_PanicIsolation(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	_, err := exec.Submit(context.Background(), "boom", func(ctx context.Context) (interface{}, error) {
		panic("broken command")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Contains(t, err.Error(), "broken command")

	// The worker survives and keeps serving the queue.
	value, err := exec.Submit(context.Background(), "after", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestExecutor_FailureDoesNotAffectNextCommand(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	failErr := errors.New("first command failed")

	_, err := exec.Submit(context.Background(), "failing", func(ctx context.Context) (interface{}, error) {
		return nil, failErr
	})
	assert.Equal(t, failErr, err)

	value, err := exec.Submit(context.Background(), "succeeding", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestExecutor_ShutdownRejectsNewSubmits(t *testing.T) {
	exec := newTestExecutor()

	require.NoError(t, exec.Shutdown(context.Background()))

	_, err := exec.Submit(context.Background(), "late", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestExecutor_ShutdownDrainsQueue(t *testing.T) {
	exec := newTestExecutor()

	var mu sync.Mutex
	completed := 0

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Submit(context.Background(), "draining", func(ctx context.Context) (interface{}, error) {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				completed++
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err, "queued commands still run during shutdown")
		}()
	}

	// Give the submissions time to land in the queue.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, exec.Shutdown(context.Background()))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, completed)
}

func TestExecutor_ShutdownIdempotent(t *testing.T) {
	exec := newTestExecutor()

	assert.NoError(t, exec.Shutdown(context.Background()))
	assert.NoError(t, exec.Shutdown(context.Background()))
}

func TestExecutor_ShutdownHonorsContext(t *testing.T) {
	exec := newTestExecutor()

	gate := make(chan struct{})
	go func() {
		_, _ = exec.Submit(context.Background(), "stuck", func(ctx context.Context) (interface{}, error) {
			<-gate
			return nil, nil
		})
	}()

	require.Eventually(t, exec.Busy, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := exec.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	assert.NoError(t, exec.Shutdown(context.Background()))
}

func TestExecutor_DepthAndBusy(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	assert.Equal(t, 0, exec.Depth())
	assert.False(t, exec.Busy())

	gate := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Submit(context.Background(), "gate", func(ctx context.Context) (interface{}, error) {
			<-gate
			return nil, nil
		})
	}()

	require.Eventually(t, exec.Busy, time.Second, time.Millisecond)
	assert.Equal(t, 0, exec.Depth(), "the executing command left the queue")

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Submit(context.Background(), "queued", func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
	}()

	require.Eventually(t, func() bool { return exec.Depth() == 1 }, time.Second, time.Millisecond)

	close(gate)
	wg.Wait()

	assert.Equal(t, 0, exec.Depth())
	assert.False(t, exec.Busy())
}

func TestExecutor_SlowWaitWarning(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	gate := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Submit(context.Background(), "gate", func(ctx context.Context) (interface{}, error) {
			<-gate
			return nil, nil
		})
	}()

	require.Eventually(t, exec.Busy, time.Second, time.Millisecond)

	type waitReport struct {
		wait time.Duration
		pos  int
	}
	reports := make(chan waitReport, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := exec.SubmitWithOptions(context.Background(), "slow", func(ctx context.Context) (interface{}, error) {
			return nil, nil
		}, SubmitOptions{
			WarnAfter: 5 * time.Millisecond,
			OnWait: func(wait time.Duration, queuePos int) {
				select {
				case reports <- waitReport{wait, queuePos}:
				default:
				}
			},
		})
		assert.NoError(t, err)
	}()

	select {
	case report := <-reports:
		assert.GreaterOrEqual(t, report.wait, 5*time.Millisecond)
		assert.Equal(t, 0, report.pos, "only command in the queue while the gate holds the worker")
	case <-time.After(time.Second):
		t.Fatal("OnWait never fired for a stuck command")
	}

	close(gate)
	wg.Wait()
}

func TestExecutor_SlowWaitSkippedWhenCommandRuns(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	fired := make(chan struct{}, 1)
	_, err := exec.SubmitWithOptions(context.Background(), "fast", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, SubmitOptions{
		WarnAfter: 30 * time.Millisecond,
		OnWait: func(time.Duration, int) {
			fired <- struct{}{}
		},
	})
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("OnWait fired for a command that already ran")
	case <-time.After(60 * time.Millisecond):
	}
}

// lockedBuffer keeps worker-side log writes from racing the test's read.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestExecutor_EnqueueLogCarriesTraceContext(t *testing.T) {
	exec := newTestExecutor()
	defer exec.Shutdown(context.Background())

	buf := &lockedBuffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	defer func() { log.Logger = prev }()

	ctx := tracing.WithTraceID(context.Background(), "trace-enqueue")
	_, err := exec.Submit(ctx, "open", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, "Command enqueued")
	assert.Contains(t, logged, `"command":"open"`)
	assert.Contains(t, logged, `"trace_id":"trace-enqueue"`)
}

func TestExecutor_SessionAccessor(t *testing.T) {
	session := browser.NewSession(nil, browser.Defaults{})
	exec := New(session)
	defer exec.Shutdown(context.Background())

	assert.Same(t, session, exec.Session())
}
