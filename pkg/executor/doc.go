// Package executor serializes all access to a single browser session through
// one dedicated worker goroutine.
//
// Invariants:
// - At most one command executes against the session at any instant.
// - Commands run in strict FIFO order across all submitting goroutines.
// - A command's error reaches its submitter with identity preserved.
// - A panic inside a command fails that command only; the worker survives.
//
// Usage:
//
//	exec := executor.New(session)
//	defer exec.Shutdown(context.Background())
//	result, err := exec.Submit(ctx, "navigate", func(ctx context.Context) (interface{}, error) {
//		return nil, session.Navigate("https://example.com")
//	})
package executor
