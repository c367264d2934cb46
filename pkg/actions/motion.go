package actions

import (
	"context"
	"strings"

	"github.com/harun/rudder/pkg/browser"
)

var scrollMethods = map[string]bool{
	"scroll_into_view": true,
	"mouse_wheel":      true,
	"evaluate":         true,
	"page_evaluate":    true,
}

func scrollAction(r *Runner) Definition {
	return Definition{
		Name:        "scroll",
		Description: "Scroll an element or the page.",
		Parameters: locatorSpecs(
			ParamSpec{Name: "method", Type: "string", Description: "Scrolling method: scroll_into_view, mouse_wheel, evaluate (default), or page_evaluate"},
			ParamSpec{Name: "x", Type: "integer", Description: "Horizontal scroll offset in pixels"},
			ParamSpec{Name: "y", Type: "integer", Description: "Vertical scroll offset in pixels"},
		),
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, hasLoc, err := r.locatorInput(params)
			if err != nil {
				return nil, err
			}
			method := strings.ToLower(params.StringOr("method", "evaluate"))
			if !scrollMethods[method] {
				return nil, configErrorf("Unknown scrolling method: %s", method)
			}
			if method == "scroll_into_view" && !hasLoc {
				return nil, &ConfigError{Reason: "'scroll_into_view' method requires a locator."}
			}
			x := params.IntOr("x", 0)
			y := params.IntOr("y", 0)

			return r.submit(ctx, "scroll", func(ctx context.Context) (interface{}, error) {
				switch method {
				case "scroll_into_view":
					el, err := r.session.Locate(loc)
					if err != nil {
						return nil, err
					}
					return nil, r.session.ScrollIntoView(el)
				case "mouse_wheel":
					if hasLoc {
						el, err := r.session.Locate(loc)
						if err != nil {
							return nil, err
						}
						if err := r.session.Hover(el); err != nil {
							return nil, err
						}
					}
					return nil, r.session.MouseWheel(float64(x), float64(y))
				case "page_evaluate":
					return nil, r.session.ScrollPageBy(x, y)
				default:
					if hasLoc {
						el, err := r.session.Locate(loc)
						if err != nil {
							return nil, err
						}
						return nil, r.session.ScrollElementBy(el, x, y)
					}
					return nil, r.session.ScrollPageBy(x, y)
				}
			})
		},
	}
}

func dragAction(r *Runner) Definition {
	return Definition{
		Name:        "drag",
		Description: "Drag one element onto another.",
		Parameters: []ParamSpec{
			{Name: "source", Type: "object", Description: "Addressing of the element to drag (selector, role+name, label, or locator)", Required: true},
			{Name: "target", Type: "object", Description: "Addressing of the drop target", Required: true},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			source, err := r.dragEndpoint(params, "source")
			if err != nil {
				return nil, err
			}
			target, err := r.dragEndpoint(params, "target")
			if err != nil {
				return nil, err
			}

			return r.submit(ctx, "drag", func(ctx context.Context) (interface{}, error) {
				sourceEl, err := r.session.Locate(source)
				if err != nil {
					return nil, err
				}
				targetEl, err := r.session.Locate(target)
				if err != nil {
					return nil, err
				}
				return nil, r.session.DragTo(sourceEl, targetEl)
			})
		},
	}
}

// dragEndpoint resolves one of drag's nested addressing objects.
func (r *Runner) dragEndpoint(params Params, field string) (browser.Locator, error) {
	ref, ok := params.Map(field)
	if !ok {
		return browser.Locator{}, missingInput(field)
	}
	loc, has, err := r.locatorInput(ref)
	if err != nil {
		return browser.Locator{}, err
	}
	if !has {
		return browser.Locator{}, configErrorf("%s does not address an element: set selector, role, label, or locator", field)
	}
	return loc, nil
}
