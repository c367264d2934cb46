package actions

import (
	"context"

	"github.com/harun/rudder/pkg/browser"
)

func openAction(r *Runner) Definition {
	return Definition{
		Name:        "open",
		Description: "Launch the browser and navigate to a URL.",
		Parameters: []ParamSpec{
			{Name: "url", Type: "string", Description: "URL to visit after launch", Required: true},
			{Name: "headless", Type: "boolean", Description: "Run the browser headless (defaults to the configured value)"},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			url, ok := params.String("url")
			if !ok || url == "" {
				return nil, &InvalidInputError{Field: "url", Message: "URL must be provided."}
			}

			var open browser.OpenParams
			if headless, ok := params.Bool("headless"); ok {
				open.Headless = &headless
			}

			return r.submit(ctx, "open", func(ctx context.Context) (interface{}, error) {
				if err := r.session.Open(open); err != nil {
					return nil, err
				}
				if err := r.session.Navigate(url); err != nil {
					return nil, err
				}
				return map[string]interface{}{"url": url}, nil
			})
		},
	}
}

func navigateAction(r *Runner) Definition {
	return Definition{
		Name:        "navigate",
		Description: "Navigate the open page to a URL.",
		Parameters: []ParamSpec{
			{Name: "url", Type: "string", Description: "URL to navigate to", Required: true},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			url, ok := params.String("url")
			if !ok || url == "" {
				return nil, &InvalidInputError{Field: "url", Message: "URL must be provided."}
			}

			return r.submit(ctx, "navigate", func(ctx context.Context) (interface{}, error) {
				if err := r.session.Navigate(url); err != nil {
					return nil, err
				}
				return map[string]interface{}{"url": url}, nil
			})
		},
	}
}

func closeAction(r *Runner) Definition {
	return Definition{
		Name:        "close",
		Description: "Close the browser session.",
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			return r.submit(ctx, "close", func(ctx context.Context) (interface{}, error) {
				return nil, r.session.Close()
			})
		},
	}
}
