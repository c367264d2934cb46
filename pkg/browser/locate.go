package browser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// Locator describes one way to find an element. Exactly one strategy is
// used per lookup: Selector wins over Role, Role wins over Label. Name
// refines Role by accessible text, matched case-insensitively as a
// substring.
type Locator struct {
	Selector string `json:"selector,omitempty"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Label    string `json:"label,omitempty"`
}

// IsZero reports whether no locator strategy is set.
func (l Locator) IsZero() bool {
	return l.Selector == "" && l.Role == "" && l.Label == ""
}

// String renders the locator for error messages and logs.
func (l Locator) String() string {
	switch {
	case l.Selector != "":
		return fmt.Sprintf("selector=%q", l.Selector)
	case l.Role != "" && l.Name != "":
		return fmt.Sprintf("role=%q name=%q", l.Role, l.Name)
	case l.Role != "":
		return fmt.Sprintf("role=%q", l.Role)
	case l.Label != "":
		return fmt.Sprintf("label=%q", l.Label)
	default:
		return "<empty>"
	}
}

// roleSelectors maps an ARIA role to the CSS selector covering both the
// elements that carry the role implicitly and explicit role attributes.
var roleSelectors = map[string]string{
	"button":      `button, input[type="button"], input[type="submit"], input[type="reset"], [role="button"]`,
	"link":        `a[href], [role="link"]`,
	"textbox":     `input:not([type]), input[type="text"], input[type="email"], input[type="password"], input[type="tel"], input[type="url"], textarea, [role="textbox"]`,
	"searchbox":   `input[type="search"], [role="searchbox"]`,
	"checkbox":    `input[type="checkbox"], [role="checkbox"]`,
	"radio":       `input[type="radio"], [role="radio"]`,
	"combobox":    `select:not([multiple]), [role="combobox"]`,
	"listbox":     `select[multiple], [role="listbox"]`,
	"option":      `option, [role="option"]`,
	"slider":      `input[type="range"], [role="slider"]`,
	"spinbutton":  `input[type="number"], [role="spinbutton"]`,
	"switch":      `[role="switch"]`,
	"heading":     `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"img":         `img, [role="img"]`,
	"list":        `ul, ol, [role="list"]`,
	"listitem":    `li, [role="listitem"]`,
	"table":       `table, [role="table"]`,
	"row":         `tr, [role="row"]`,
	"cell":        `td, [role="cell"]`,
	"navigation":  `nav, [role="navigation"]`,
	"main":        `main, [role="main"]`,
	"banner":      `header, [role="banner"]`,
	"contentinfo": `footer, [role="contentinfo"]`,
	"dialog":      `dialog, [role="dialog"]`,
	"tab":         `[role="tab"]`,
	"tabpanel":    `[role="tabpanel"]`,
	"menu":        `menu, [role="menu"]`,
	"menuitem":    `[role="menuitem"]`,
	"progressbar": `progress, [role="progressbar"]`,
	"separator":   `hr, [role="separator"]`,
	"form":        `form, [role="form"]`,
	"article":     `article, [role="article"]`,
	"alert":       `[role="alert"]`,
}

func selectorForRole(role string) string {
	if sel, ok := roleSelectors[strings.ToLower(role)]; ok {
		return sel
	}
	return fmt.Sprintf(`[role=%q]`, role)
}

// nameRegex builds the case-insensitive substring pattern rod's ElementR
// evaluates in the page.
func nameRegex(name string) string {
	return "/" + regexp.QuoteMeta(name) + "/i"
}

// Locate resolves a locator against the session page using the session's
// default element timeout.
func (s *Session) Locate(loc Locator) (*rod.Element, error) {
	return s.LocateWithTimeout(loc, s.defaults.Timeout)
}

// LocateWithTimeout resolves a locator, waiting up to timeout for the
// element to appear. All strategies of one lookup share the same deadline.
func (s *Session) LocateWithTimeout(loc Locator, timeout time.Duration) (*rod.Element, error) {
	if loc.IsZero() {
		return nil, &Error{
			Code:    ErrCodeValidation,
			Message: "Must provide at least one locator method (selector, role, or label).",
		}
	}

	page, err := s.Page()
	if err != nil {
		return nil, err
	}

	p := page.Timeout(timeout)
	defer p.CancelTimeout()

	var el *rod.Element
	switch {
	case loc.Selector != "":
		el, err = p.Element(loc.Selector)
	case loc.Role != "":
		el, err = findByRole(p, loc.Role, loc.Name)
	default:
		el, err = findByLabel(p, loc.Label)
	}
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeElementNotFound,
			Message: fmt.Sprintf("element not found: %s (timeout after %v)", loc, timeout),
			Details: map[string]interface{}{"cause": err.Error()},
		}
	}
	return el, nil
}

func findByRole(p *rod.Page, role, name string) (*rod.Element, error) {
	sel := selectorForRole(role)
	if name == "" {
		return p.Element(sel)
	}
	if el, err := p.ElementR(sel, nameRegex(name)); err == nil {
		return el, nil
	}
	// Inputs carry their accessible name in attributes, not text.
	return p.Element(attributeNameSelector(sel, name))
}

// attributeNameSelector rewrites each alternative of a role selector to
// also require the name in aria-label, value or alt. The "i" flag gives
// the same case-insensitive matching ElementR uses.
func attributeNameSelector(sel, name string) string {
	parts := strings.Split(sel, ",")
	out := make([]string, 0, len(parts)*3)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		out = append(out,
			fmt.Sprintf(`%s[aria-label*=%q i]`, part, name),
			fmt.Sprintf(`%s[value*=%q i]`, part, name),
			fmt.Sprintf(`%s[alt*=%q i]`, part, name),
		)
	}
	return strings.Join(out, ", ")
}

// findByLabel resolves a form control from its label text. It tries the
// label's for attribute, then a control nested inside the label, then an
// aria-label on the control itself.
func findByLabel(p *rod.Page, label string) (*rod.Element, error) {
	labelEl, err := p.ElementR("label", nameRegex(label))
	if err == nil {
		if forAttr, aerr := labelEl.Attribute("for"); aerr == nil && forAttr != nil && *forAttr != "" {
			if el, ferr := p.Element(fmt.Sprintf(`[id=%q]`, *forAttr)); ferr == nil {
				return el, nil
			}
		}
		if el, nerr := labelEl.Element("input, textarea, select"); nerr == nil {
			return el, nil
		}
	}
	return p.Element(fmt.Sprintf(`[aria-label*=%q i]`, label))
}
