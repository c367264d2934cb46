package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

func interactionError(op string, err error) error {
	return &Error{
		Code:    ErrCodeInteraction,
		Message: fmt.Sprintf("failed to %s: %v", op, err),
	}
}

// ClickElement clicks an element. clickCount 2 performs a double click.
func (s *Session) ClickElement(el *rod.Element, clickCount int) error {
	if clickCount < 1 {
		clickCount = 1
	}
	if err := el.Click(proto.InputMouseButtonLeft, clickCount); err != nil {
		return interactionError("click element", err)
	}
	return nil
}

// ClickAt clicks at an absolute page coordinate.
func (s *Session) ClickAt(x, y float64, clickCount int) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	if clickCount < 1 {
		clickCount = 1
	}
	if err := page.Mouse.MoveLinear(proto.Point{X: x, Y: y}, 10); err != nil {
		return interactionError("move mouse", err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, clickCount); err != nil {
		return interactionError("click position", err)
	}
	return nil
}

// ClickElementAt clicks at an offset from the element's top-left corner.
func (s *Session) ClickElementAt(el *rod.Element, offsetX, offsetY float64, clickCount int) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	shape, err := el.Shape()
	if err != nil {
		return interactionError("resolve element shape", err)
	}
	box := shape.Box()
	point := proto.Point{X: box.X + offsetX, Y: box.Y + offsetY}

	if clickCount < 1 {
		clickCount = 1
	}
	if err := page.Mouse.MoveLinear(point, 10); err != nil {
		return interactionError("move mouse", err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, clickCount); err != nil {
		return interactionError("click position", err)
	}
	return nil
}

// Fill replaces the element's current content with text.
func (s *Session) Fill(el *rod.Element, text string) error {
	if err := el.Focus(); err != nil {
		return interactionError("focus element", err)
	}
	if err := el.SelectAllText(); err != nil {
		return interactionError("select text", err)
	}
	if err := el.Input(text); err != nil {
		return interactionError("fill element", err)
	}
	return nil
}

// TypeSequentially types text one character at a time with a delay between
// keys, for inputs that react to individual key events. Unlike Fill it does
// not clear existing content first.
func (s *Session) TypeSequentially(el *rod.Element, text string, delay time.Duration) error {
	if err := el.Focus(); err != nil {
		return interactionError("focus element", err)
	}
	for _, char := range text {
		if err := el.Input(string(char)); err != nil {
			return interactionError("type text", err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

// PressKey focuses the element and sends it a key press.
func (s *Session) PressKey(el *rod.Element, key string) error {
	if err := el.Focus(); err != nil {
		return interactionError("focus element", err)
	}
	return s.PressKeyGlobal(key)
}

// PressKeyGlobal sends a key press to the page. Named keys (Enter, Tab,
// ArrowDown, ...) and single characters are supported.
func (s *Session) PressKeyGlobal(key string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	keyCode, ok := lookupKey(key)
	if !ok {
		if len(key) == 1 {
			if err := page.Keyboard.Type(input.Key(key[0])); err != nil {
				return interactionError("press key", err)
			}
			return nil
		}
		return &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("unknown key: %s", key),
		}
	}

	if err := page.Keyboard.Press(keyCode); err != nil {
		return interactionError("press key", err)
	}
	_ = page.Keyboard.Release(keyCode)
	return nil
}

// Hover moves the mouse over the element.
func (s *Session) Hover(el *rod.Element) error {
	if err := el.Hover(); err != nil {
		return interactionError("hover element", err)
	}
	return nil
}

// Focus gives the element keyboard focus.
func (s *Session) Focus(el *rod.Element) error {
	if err := el.Focus(); err != nil {
		return interactionError("focus element", err)
	}
	return nil
}

// IsChecked reports the checked state of a checkbox or radio input.
func (s *Session) IsChecked(el *rod.Element) (bool, error) {
	res, err := el.Eval(`() => this.checked === true`)
	if err != nil {
		return false, interactionError("read checked state", err)
	}
	return res.Value.Bool(), nil
}

// Check clicks the element unless it is already checked.
func (s *Session) Check(el *rod.Element) error {
	checked, err := s.IsChecked(el)
	if err != nil {
		return err
	}
	if checked {
		return nil
	}
	return s.ClickElement(el, 1)
}

// SelectOptions selects option(s) in a <select> element. by chooses how
// each entry is matched: "value" (default), "label" or "index".
func (s *Session) SelectOptions(el *rod.Element, options []string, by string) error {
	switch by {
	case "", "value":
		selectors := make([]string, len(options))
		for i, opt := range options {
			selectors[i] = fmt.Sprintf(`option[value=%q]`, opt)
		}
		if err := el.Select(selectors, true, rod.SelectorTypeCSSSector); err != nil {
			return interactionError("select options", err)
		}
	case "label":
		patterns := make([]string, len(options))
		for i, opt := range options {
			patterns[i] = "^" + regexp.QuoteMeta(opt) + "$"
		}
		if err := el.Select(patterns, true, rod.SelectorTypeText); err != nil {
			return interactionError("select options", err)
		}
	case "index":
		selectors := make([]string, len(options))
		for i, opt := range options {
			idx, err := strconv.Atoi(opt)
			if err != nil || idx < 0 {
				return &Error{
					Code:    ErrCodeValidation,
					Message: fmt.Sprintf("invalid option index: %s", opt),
				}
			}
			selectors[i] = fmt.Sprintf("option:nth-of-type(%d)", idx+1)
		}
		if err := el.Select(selectors, true, rod.SelectorTypeCSSSector); err != nil {
			return interactionError("select options", err)
		}
	default:
		return &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("unknown select strategy: %s", by),
		}
	}
	return nil
}

// UploadFiles sets the files of a file input element.
func (s *Session) UploadFiles(el *rod.Element, paths []string) error {
	if err := el.SetFiles(paths); err != nil {
		return interactionError("upload files", err)
	}
	return nil
}

// ScrollIntoView scrolls the page until the element is in the viewport.
func (s *Session) ScrollIntoView(el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		return interactionError("scroll element into view", err)
	}
	return nil
}

// MouseWheel scrolls with the mouse wheel by the given offsets.
func (s *Session) MouseWheel(x, y float64) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	if err := page.Mouse.Scroll(x, y, 1); err != nil {
		return interactionError("scroll mouse wheel", err)
	}
	return nil
}

// ScrollElementBy adjusts the element's own scroll position by the given
// offsets.
func (s *Session) ScrollElementBy(el *rod.Element, x, y int) error {
	_, err := el.Eval(`(x, y) => { this.scrollTop += y; this.scrollLeft += x; }`, x, y)
	if err != nil {
		return interactionError("scroll element", err)
	}
	return nil
}

// ScrollPageBy scrolls the window by the given offsets.
func (s *Session) ScrollPageBy(x, y int) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	if _, err := page.Eval(`(x, y) => window.scrollBy(x, y)`, x, y); err != nil {
		return interactionError("scroll page", err)
	}
	return nil
}

// DragTo drags the source element onto the target element's center.
func (s *Session) DragTo(source, target *rod.Element) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	fromShape, err := source.Shape()
	if err != nil {
		return interactionError("resolve source shape", err)
	}
	toShape, err := target.Shape()
	if err != nil {
		return interactionError("resolve target shape", err)
	}

	fromBox := fromShape.Box()
	toBox := toShape.Box()
	fromCenter := proto.Point{
		X: fromBox.X + fromBox.Width/2,
		Y: fromBox.Y + fromBox.Height/2,
	}
	toCenter := proto.Point{
		X: toBox.X + toBox.Width/2,
		Y: toBox.Y + toBox.Height/2,
	}

	if err := page.Mouse.MoveLinear(fromCenter, 10); err != nil {
		return interactionError("move to source", err)
	}
	if err := page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return interactionError("press mouse", err)
	}
	if err := page.Mouse.MoveLinear(toCenter, 10); err != nil {
		return interactionError("move to target", err)
	}
	if err := page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return interactionError("release mouse", err)
	}
	return nil
}

// ScreenshotElement captures the element and writes it to path. The image
// format follows the file extension.
func (s *Session) ScreenshotElement(el *rod.Element, path string) error {
	if err := ValidateScreenshotPath(path); err != nil {
		return err
	}

	data, err := el.Screenshot(screenshotFormat(path), 0)
	if err != nil {
		return interactionError("capture element screenshot", err)
	}
	return writeScreenshot(path, data)
}

// ScreenshotPage captures the viewport, or the whole page when fullPage is
// set, and writes it to path.
func (s *Session) ScreenshotPage(path string, fullPage bool) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	if err := ValidateScreenshotPath(path); err != nil {
		return err
	}

	var req *proto.PageCaptureScreenshot
	if screenshotFormat(path) == proto.PageCaptureScreenshotFormatJpeg {
		req = &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatJpeg}
	}

	data, err := page.Screenshot(fullPage, req)
	if err != nil {
		return interactionError("capture page screenshot", err)
	}
	return writeScreenshot(path, data)
}

func screenshotFormat(path string) proto.PageCaptureScreenshotFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return proto.PageCaptureScreenshotFormatJpeg
	default:
		return proto.PageCaptureScreenshotFormatPng
	}
}

func writeScreenshot(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return interactionError("create screenshot directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return interactionError("write screenshot", err)
	}
	return nil
}

// WaitVisible waits for the element to become visible.
func (s *Session) WaitVisible(el *rod.Element, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.defaults.Timeout
	}

	e := el.Timeout(timeout)
	defer e.CancelTimeout()

	if err := e.WaitVisible(); err != nil {
		return &Error{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("element did not become visible within %v: %v", timeout, err),
		}
	}
	return nil
}

// WaitForSelector waits for a selector to appear in the page and returns
// the matching element.
func (s *Session) WaitForSelector(selector string, timeout time.Duration) (*rod.Element, error) {
	page, err := s.Page()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = s.defaults.Timeout
	}

	p := page.Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeElementNotFound,
			Message: fmt.Sprintf("element not found: selector=%q (timeout after %v)", selector, timeout),
		}
	}
	return el, nil
}
