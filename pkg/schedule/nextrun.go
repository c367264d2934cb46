package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// NextRun calculates the next run time in unix milliseconds for a spec.
func NextRun(spec Spec) (int64, error) {
	switch spec.Kind {
	case KindAt:
		return nextAt(spec)
	case KindEvery:
		return nextEvery(spec)
	case KindCron:
		return nextCron(spec)
	default:
		return 0, fmt.Errorf("unknown schedule kind: %s", spec.Kind)
	}
}

func nextAt(spec Spec) (int64, error) {
	if spec.At == "" {
		return 0, fmt.Errorf("'at' schedule requires 'at' field")
	}

	t, err := time.Parse(time.RFC3339, spec.At)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %w", err)
	}

	return t.UnixMilli(), nil
}

func nextEvery(spec Spec) (int64, error) {
	if spec.EveryMs <= 0 {
		return 0, fmt.Errorf("'every' schedule requires positive 'everyMs' value")
	}

	now := time.Now().UnixMilli()

	if spec.AnchorMs == nil {
		return now + spec.EveryMs, nil
	}

	// With an anchor, runs are aligned to anchor + n*interval.
	anchor := *spec.AnchorMs
	elapsed := now - anchor
	if elapsed < 0 {
		return anchor, nil
	}

	periods := elapsed / spec.EveryMs
	return anchor + (periods+1)*spec.EveryMs, nil
}

// retryBackoff returns how far to push out the next run after consecutive
// failures. One-shot schedules never retry.
func retryBackoff(spec Spec, consecutiveErrors int) time.Duration {
	if consecutiveErrors <= 0 || spec.Kind == KindAt {
		return 0
	}

	steps := []time.Duration{
		30 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		60 * time.Minute,
	}
	if consecutiveErrors > len(steps) {
		return steps[len(steps)-1]
	}
	return steps[consecutiveErrors-1]
}

func nextCron(spec Spec) (int64, error) {
	if spec.Expr == "" {
		return 0, fmt.Errorf("'cron' schedule requires 'expr' field")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec.Expr)
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now()
	if spec.TZ != "" {
		loc, err := time.LoadLocation(spec.TZ)
		if err != nil {
			return 0, fmt.Errorf("invalid timezone: %w", err)
		}
		now = now.In(loc)
	}

	return sched.Next(now).UnixMilli(), nil
}
