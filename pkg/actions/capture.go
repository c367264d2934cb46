package actions

import (
	"context"

	"github.com/harun/rudder/pkg/browser"
)

func screenshotAction(r *Runner) Definition {
	return Definition{
		Name:        "screenshot",
		Description: "Capture a screenshot of an element or the page to a file.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "file_path", Type: "string", Description: "Where to save the screenshot (.png, .jpg or .jpeg)", Required: true},
			ParamSpec{Name: "full_page", Type: "boolean", Description: "Capture the full scrollable page when no locator is given"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, hasLoc, err := r.locatorInput(params)
			if err != nil {
				return nil, err
			}
			path, ok := params.String("file_path")
			if !ok || path == "" {
				return nil, &InvalidInputError{
					Field:   "file_path",
					Message: "'file_path' must be provided to save the screenshot.",
				}
			}
			if err := browser.ValidateScreenshotPath(path); err != nil {
				return nil, err
			}
			fullPage := params.BoolOr("full_page", false)

			if _, err := r.submit(ctx, "screenshot", func(ctx context.Context) (interface{}, error) {
				if hasLoc {
					el, err := r.session.Locate(loc)
					if err != nil {
						return nil, err
					}
					return nil, r.session.ScreenshotElement(el, path)
				}
				return nil, r.session.ScreenshotPage(path, fullPage)
			}); err != nil {
				return nil, err
			}

			r.state.SetValue("screenshot_path", path)
			return path, nil
		},
	}
}
