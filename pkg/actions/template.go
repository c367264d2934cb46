package actions

import (
	"fmt"
	"strings"
)

// formatTemplate substitutes {key} placeholders in a selector template with
// entries from values. Doubled braces escape literals: "{{" renders "{" and
// "}}" renders "}". An empty placeholder, a placeholder whose key has no
// value, and an unbalanced brace are all errors.
func formatTemplate(template string, values map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("single '{' encountered in template")
			}
			key := template[i+1 : i+1+end]
			if key == "" {
				return "", fmt.Errorf("empty placeholder")
			}
			value, ok := values[key]
			if !ok {
				return "", fmt.Errorf("no value for key %q", key)
			}
			out.WriteString(value)
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("single '}' encountered in template")
		default:
			out.WriteByte(template[i])
			i++
		}
	}

	return out.String(), nil
}
