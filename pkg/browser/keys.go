package browser

import (
	"strings"

	"github.com/go-rod/rod/lib/input"
)

// lookupKey maps a human key name to its devtools key definition. Single
// characters that are not named keys are typed directly by the caller.
func lookupKey(key string) (input.Key, bool) {
	switch strings.ToLower(key) {
	case "enter", "return":
		return input.Enter, true
	case "tab":
		return input.Tab, true
	case "escape", "esc":
		return input.Escape, true
	case "backspace":
		return input.Backspace, true
	case "delete":
		return input.Delete, true
	case "arrowup", "up":
		return input.ArrowUp, true
	case "arrowdown", "down":
		return input.ArrowDown, true
	case "arrowleft", "left":
		return input.ArrowLeft, true
	case "arrowright", "right":
		return input.ArrowRight, true
	case "home":
		return input.Home, true
	case "end":
		return input.End, true
	case "pageup":
		return input.PageUp, true
	case "pagedown":
		return input.PageDown, true
	case "space":
		return input.Space, true
	default:
		return input.Key(0), false
	}
}
