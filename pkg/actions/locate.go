package actions

import "context"

func locateAction(r *Runner) Definition {
	return Definition{
		Name:        "locate",
		Description: "Locate an element and store its locator for later actions.",
		Parameters: []ParamSpec{
			{Name: "selector", Type: "string", Description: "CSS selector, may contain {key} placeholders resolved from state values"},
			{Name: "role", Type: "string", Description: "Semantic role of the element (button, link, textbox, ...)"},
			{Name: "name", Type: "string", Description: "Accessible name refining the role match"},
			{Name: "label", Type: "string", Description: "Label text of the element"},
			{Name: "save_as", Type: "string", Description: "State name to store the locator under (default \"element\")"},
		},
		Handler: func(ctx context.Context, params Params) (interface{}, error) {
			loc, ok, err := r.locatorInput(params)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &ConfigError{Reason: "Must provide at least one locator method (selector, role, or label)."}
			}
			saveAs := params.StringOr("save_as", "element")

			if _, err := r.submit(ctx, "locate", func(ctx context.Context) (interface{}, error) {
				_, err := r.session.Locate(loc)
				return nil, err
			}); err != nil {
				return nil, err
			}

			r.state.SetLocator(saveAs, loc)
			return loc, nil
		},
	}
}
