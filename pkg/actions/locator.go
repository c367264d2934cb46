package actions

import "github.com/harun/rudder/pkg/browser"

// locatorParamSpecs are the addressing parameters shared by every
// locator-consuming action. selector/role/label address an element inline
// (the selector is formatted as a template against the state values), while
// locator names a locator stored by a previous locate.
var locatorParamSpecs = []ParamSpec{
	{Name: "selector", Type: "string", Description: "CSS selector, may contain {key} placeholders resolved from state values"},
	{Name: "role", Type: "string", Description: "Semantic role of the element (button, link, textbox, ...)"},
	{Name: "name", Type: "string", Description: "Accessible name refining the role match"},
	{Name: "label", Type: "string", Description: "Label text of the element"},
	{Name: "locator", Type: "string", Description: "Name of a locator stored by a previous locate"},
}

// locatorSpecs returns a fresh copy of the shared addressing parameters with
// any action-specific parameters appended.
func locatorSpecs(extra ...ParamSpec) []ParamSpec {
	out := make([]ParamSpec, 0, len(locatorParamSpecs)+len(extra))
	out = append(out, locatorParamSpecs...)
	out = append(out, extra...)
	return out
}

// locatorInput resolves the addressing parameters of an action. It returns
// the locator, whether one was supplied at all, and any validation error.
// Inline selector/role/label win over a stored locator name, in that
// precedence; the selector is template-formatted before capture so the
// submitted command never reads mutable state.
func (r *Runner) locatorInput(params Params) (browser.Locator, bool, error) {
	selector := params.StringOr("selector", "")
	role := params.StringOr("role", "")
	label := params.StringOr("label", "")

	switch {
	case selector != "":
		formatted, err := formatTemplate(selector, r.state.Values())
		if err != nil {
			return browser.Locator{}, false, &TemplateError{Template: selector, Cause: err}
		}
		if !browser.IsValidSelector(formatted) {
			return browser.Locator{}, false, configErrorf("invalid selector: %q", formatted)
		}
		return browser.Locator{Selector: formatted}, true, nil
	case role != "":
		return browser.Locator{Role: role, Name: params.StringOr("name", "")}, true, nil
	case label != "":
		return browser.Locator{Label: label}, true, nil
	}

	if stored, ok := params.String("locator"); ok && stored != "" {
		loc, found := r.state.Locator(stored)
		if !found {
			return browser.Locator{}, false, configErrorf("no stored locator named %q", stored)
		}
		return loc, true, nil
	}

	return browser.Locator{}, false, nil
}

// requireLocator is locatorInput for actions whose locator is mandatory.
func (r *Runner) requireLocator(params Params) (browser.Locator, error) {
	loc, ok, err := r.locatorInput(params)
	if err != nil {
		return browser.Locator{}, err
	}
	if !ok {
		return browser.Locator{}, &InvalidInputError{
			Field:   "locator",
			Message: "a locator is required: set selector, role, or label, or name a stored locator",
		}
	}
	return loc, nil
}
