package actions

import (
	"encoding/json"
	"strconv"
)

// Params carries the raw inputs of one action invocation, as decoded from
// JSON or assembled by a caller. The getters normalize the loose types JSON
// decoding produces (float64 numbers, []interface{} arrays).
type Params map[string]interface{}

// Has reports whether the key is present at all.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the named parameter as a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr returns the named string parameter, or fallback when unset.
func (p Params) StringOr(key, fallback string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return fallback
}

// Bool returns the named parameter as a bool.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// BoolOr returns the named bool parameter, or fallback when unset.
func (p Params) BoolOr(key string, fallback bool) bool {
	if b, ok := p.Bool(key); ok {
		return b
	}
	return fallback
}

// Int returns the named parameter as an int.
func (p Params) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// IntOr returns the named int parameter, or fallback when unset.
func (p Params) IntOr(key string, fallback int) int {
	if n, ok := p.Int(key); ok {
		return n
	}
	return fallback
}

// Float returns the named parameter as a float64.
func (p Params) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Strings returns the named parameter as a string slice. Numeric items are
// rendered as strings so option lists like [2] work for index selection.
func (p Params) Strings(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case float64:
				out = append(out, strconv.FormatFloat(it, 'f', -1, 64))
			case int:
				out = append(out, strconv.Itoa(it))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Map returns the named parameter as a nested parameter map.
func (p Params) Map(key string) (Params, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]interface{}:
		return Params(m), true
	case Params:
		return m, true
	}
	return nil, false
}
