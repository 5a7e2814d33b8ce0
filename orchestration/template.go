package orchestration

import "strings"

// Render fills {name} placeholders from vars. Unknown placeholders are left
// as written; {{ and }} produce literal braces.
func Render(tmpl string, vars map[string]string) string {
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
			if end == -1 {
				b.WriteByte(c)
				continue
			}
			name := tmpl[i+1 : i+1+end]
			if val, ok := vars[name]; ok {
				b.WriteString(val)
				i += end + 1
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
