package actions

import (
	"context"
	"time"

	"github.com/harun/rudder/pkg/browser"
)

// checkSettle is how long check waits after acting before asserting the
// element's final state.
const checkSettle = 500 * time.Millisecond

func clickAction(r *Runner) Definition {
	return Definition{
		Name:        "click",
		Description: "Click an element or a position on the page.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "position", Type: "object", Description: "Point {x, y}: page coordinates without a locator, offset from the element's top-left corner with one"},
			ParamSpec{Name: "double_click", Type: "boolean", Description: "Perform a double click"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, hasLoc, err := r.locatorInput(params)
			if err != nil {
				return nil, err
			}

			pos, hasPos := params.Map("position")
			if hasPos && len(pos) == 0 {
				hasPos = false
			}
			var x, y float64
			if hasPos {
				var okX, okY bool
				x, okX = pos.Float("x")
				y, okY = pos.Float("y")
				if !okX || !okY {
					return nil, configErrorf("position must provide numeric x and y")
				}
			}

			if !hasLoc && !hasPos {
				return nil, &ConfigError{Reason: "You must provide either a locator or a valid position dictionary."}
			}

			clicks := 1
			if params.BoolOr("double_click", false) {
				clicks = 2
			}

			return r.submit(ctx, "click", func(ctx context.Context) (interface{}, error) {
				if !hasLoc {
					return nil, r.session.ClickAt(x, y, clicks)
				}
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				if hasPos {
					return nil, r.session.ClickElementAt(el, x, y, clicks)
				}
				return nil, r.session.ClickElement(el, clicks)
			})
		},
	}
}

func fillAction(r *Runner) Definition {
	return Definition{
		Name:        "fill",
		Description: "Fill an input element with text, optionally typing it key by key.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "text", Type: "string", Description: "Text to enter", Required: true},
			ParamSpec{Name: "sequential", Type: "boolean", Description: "Type character by character instead of filling at once"},
			ParamSpec{Name: "delay", Type: "integer", Description: "Delay between keystrokes in milliseconds when typing sequentially"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			text, ok := params.String("text")
			if !ok {
				return nil, missingInput("text")
			}
			sequential := params.BoolOr("sequential", false)
			delay := time.Duration(params.IntOr("delay", 0)) * time.Millisecond

			return r.submit(ctx, "fill", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				if sequential {
					return nil, r.session.TypeSequentially(el, text, delay)
				}
				return nil, r.session.Fill(el, text)
			})
		},
	}
}

func pressAction(r *Runner) Definition {
	return Definition{
		Name:        "press",
		Description: "Press a key on an element, or on the page when no locator is given.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "key", Type: "string", Description: "Key to press (e.g. \"Enter\", \"Tab\")", Required: true},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, hasLoc, err := r.locatorInput(params)
			if err != nil {
				return nil, err
			}
			key, ok := params.String("key")
			if !ok || key == "" {
				return nil, missingInput("key")
			}

			return r.submit(ctx, "press", func(ctx context.Context) (interface{}, error) {
				if !hasLoc {
					return nil, r.session.PressKeyGlobal(key)
				}
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				return nil, r.session.PressKey(el, key)
			})
		},
	}
}

func hoverAction(r *Runner) Definition {
	return Definition{
		Name:        "hover",
		Description: "Hover the mouse over an element.",
		Parameters:  locatorSpecs(),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			return r.submit(ctx, "hover", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				return nil, r.session.Hover(el)
			})
		},
	}
}

func checkAction(r *Runner) Definition {
	return Definition{
		Name:        "check",
		Description: "Check a checkbox or radio button and assert it ends up checked.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "to_be_checked", Type: "boolean", Description: "Skip the check action and only assert the element is already checked"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			assertOnly := params.BoolOr("to_be_checked", false)

			return r.submit(ctx, "check", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				if !assertOnly {
					if err := r.session.Check(el); err != nil {
						return nil, err
					}
				}
				time.Sleep(checkSettle)
				checked, err := r.session.IsChecked(el)
				if err != nil {
					return nil, err
				}
				if !checked {
					return nil, &browser.Error{
						Code:    browser.ErrCodeAssertion,
						Message: "Assertion failed: Element is not checked!",
					}
				}
				return nil, nil
			})
		},
	}
}

func selectOptionsAction(r *Runner) Definition {
	return Definition{
		Name:        "select_options",
		Description: "Select one or more options of a select element.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "options", Type: "array", Description: "Options to select", Required: true},
			ParamSpec{Name: "by", Type: "string", Description: "How options are matched: value (default), label, or index"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			options, ok := params.Strings("options")
			if !ok || len(options) == 0 {
				return nil, missingInput("options")
			}
			by := params.StringOr("by", "")
			switch by {
			case "", "value", "label", "index":
			default:
				return nil, configErrorf("unknown select strategy: %s", by)
			}

			return r.submit(ctx, "select_options", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				return nil, r.session.SelectOptions(el, options, by)
			})
		},
	}
}

func uploadAction(r *Runner) Definition {
	return Definition{
		Name:        "upload",
		Description: "Upload files through a file input element.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "files", Type: "array", Description: "Paths of the files to upload", Required: true},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			files, ok := params.Strings("files")
			if !ok || len(files) == 0 {
				return nil, missingInput("files")
			}

			return r.submit(ctx, "upload", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				return nil, r.session.UploadFiles(el, files)
			})
		},
	}
}

func focusAction(r *Runner) Definition {
	return Definition{
		Name:        "focus",
		Description: "Focus an element.",
		Parameters:  locatorSpecs(),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, err := r.requireLocator(params)
			if err != nil {
				return nil, err
			}
			return r.submit(ctx, "focus", func(ctx context.Context) (interface{}, error) {
				el, err := r.session.Locate(loc)
				if err != nil {
					return nil, err
				}
				return nil, r.session.Focus(el)
			})
		},
	}
}
