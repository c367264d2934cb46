package actions

import (
	"context"
	"time"

	"github.com/harun/rudder/pkg/browser"
)

const defaultWaitTimeout = 30 * time.Second

func waitVisibleAction(r *Runner) Definition {
	return Definition{
		Name:        "wait_visible",
		Description: "Wait until an element is visible.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "timeout", Type: "integer", Description: "Maximum wait in milliseconds (default 30000)"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			timeout := millisOr(params, "timeout", defaultWaitTimeout)

			return r.submit(ctx, "wait_visible", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.LocateWithTimeout(loc, timeout)
				if err != nil {
					return nil, err
				}
				return nil, r.session.WaitVisible(el, timeout)
			})
		},
	}
}

func waitSelectorAction(r *Runner) Definition {
	return Definition{
		Name:        "wait_selector",
		Description: "Wait until a CSS selector matches an element on the page.",
		Parameters: []ParamSpec{
			{Name: "selector", Type: "string", Description: "CSS selector to wait for", Required: true},
			{Name: "timeout", Type: "integer", Description: "Maximum wait in milliseconds (default 30000)"},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			selector, ok := params.String("selector")
			if !ok || selector == "" {
				return nil, missingInput("selector")
			}
			if !browser.IsValidSelector(selector) {
				return nil, configErrorf("invalid selector: %q", selector)
			}
			timeout := millisOr(params, "timeout", defaultWaitTimeout)

			return r.submit(ctx, "wait_selector", func(ctx context.Context) (interface{}, error) {
				_, err := r.session.WaitForSelector(selector, timeout)
				return nil, err
			})
		},
	}
}

func sleepAction(r *Runner) Definition {
	return Definition{
		Name:        "sleep",
		Description: "Pause the command stream for a number of seconds.",
		Parameters: []ParamSpec{
			{Name: "seconds", Type: "integer", Description: "How long to sleep (default 5)"},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			seconds := params.IntOr("seconds", 5)

			return r.submit(ctx, "sleep", func(ctx context.Context) (interface{}, error) {
				timer := time.NewTimer(time.Duration(seconds) * time.Second)
				defer timer.Stop()
				select {
				case <-timer.C:
					return nil, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			})
		},
	}
}

// millisOr reads an integer milliseconds parameter as a duration.
func millisOr(params Params, key string, fallback time.Duration) time.Duration {
	if ms, ok := params.Int(key); ok {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
