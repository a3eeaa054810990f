package alerts

import (
	"fmt"
	"slices"
	"strings"
)

// Placeholder sets accepted by each message template.
var (
	ChannelPlaceholders   = []string{"channel", "data", "device"}
	ThresholdPlaceholders = []string{"tag", "value", "limit", "device"}
	OfflinePlaceholders   = []string{"device", "duration"}
)

// Render substitutes {name} placeholders in tmpl with values[name].
// "{{" and "}}" produce literal braces. Placeholders that are not in values,
// and unterminated braces, are copied through unchanged.
func Render(tmpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String()
			}
			name := tmpl[i+1 : i+1+end]
			if v, ok := values[name]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(tmpl[i : i+end+2])
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Placeholders returns the placeholder names used in tmpl, in order of appearance.
func Placeholders(tmpl string) []string {
	var names []string
	for i := 0; i < len(tmpl); i++ {
		switch {
		case tmpl[i] == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			i++
		case tmpl[i] == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			i++
		case tmpl[i] == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return names
			}
			names = append(names, tmpl[i+1:i+1+end])
			i += end + 1
		}
	}
	return names
}

// CheckPlaceholders returns an error naming the first placeholder in tmpl
// that is not in allowed.
func CheckPlaceholders(tmpl string, allowed []string) error {
	for _, name := range Placeholders(tmpl) {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("unknown placeholder {%s} (allowed: %s)", name, strings.Join(allowed, ", "))
		}
	}
	return nil
}
