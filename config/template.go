package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValuePlaceholder names the cell value in object templates and in subject
// templates of column-based subject rules.
const ValuePlaceholder = "value"

// Template is a parsed IRI template such as
// "https://example.org/entity/{id}".
type Template struct {
	raw          string
	literals     []string
	placeholders []string
}

// ParseTemplate parses raw. Placeholders are brace-delimited names; braces
// cannot be nested or left unbalanced.
func ParseTemplate(raw string) (*Template, error) {
	t := &Template{raw: raw}
	rest := raw
	for {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open < 0 {
			if closing >= 0 {
				return nil, fmt.Errorf("template %q: unbalanced '}'", raw)
			}
			t.literals = append(t.literals, rest)
			break
		}
		if closing >= 0 && closing < open {
			return nil, fmt.Errorf("template %q: unbalanced '}'", raw)
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("template %q: unterminated placeholder", raw)
		}
		name := strings.TrimSpace(rest[open+1 : open+end])
		if name == "" || strings.ContainsRune(name, '{') {
			return nil, fmt.Errorf("template %q: invalid placeholder", raw)
		}
		t.literals = append(t.literals, rest[:open])
		t.placeholders = append(t.placeholders, name)
		rest = rest[open+end+1:]
	}
	if len(t.placeholders) == 0 {
		return nil, fmt.Errorf("template %q has no placeholders", raw)
	}
	return t, nil
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Placeholders returns the placeholder names in order of appearance.
func (t *Template) Placeholders() []string { return t.placeholders }

// Expand substitutes every placeholder with the path-escaped value returned by
// lookup. It fails when a value is missing or blank.
func (t *Template) Expand(lookup func(name string) (string, bool)) (string, error) {
	var sb strings.Builder
	for i, name := range t.placeholders {
		sb.WriteString(t.literals[i])
		value, ok := lookup(name)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			return "", fmt.Errorf("no value for placeholder {%s}", name)
		}
		sb.WriteString(url.PathEscape(value))
	}
	sb.WriteString(t.literals[len(t.literals)-1])
	return sb.String(), nil
}
