package vocabulary

import (
	"fmt"
	"regexp"
)

// identifierPatterns are the named extraction patterns.
var identifierPatterns = map[string]string{
	"wikidata":    `\b[QPL][0-9]+\b`,
	"musicbrainz": `\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`,
	"viaf":        `viaf\.org/viaf/([0-9]+)`,
	"geonames":    `geonames\.org/([0-9]+)`,
}

// CompileIdentifierPattern returns the named pattern, or compiles pattern as a
// regular expression when it names no built-in pattern.
func CompileIdentifierPattern(pattern string) (*regexp.Regexp, error) {
	if expr, ok := identifierPatterns[pattern]; ok {
		return regexp.MustCompile(expr), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid identifier pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() > 1 {
		return nil, fmt.Errorf("identifier pattern %q has %d capture groups, at most one is allowed", pattern, re.NumSubexp())
	}
	return re, nil
}

// ExtractIdentifiers returns every identifier re finds in text, in order of
// appearance. With a capture group, the group's text is returned.
func ExtractIdentifiers(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[0]
		if len(m) > 1 {
			id = m[1]
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// LastIdentifier applies the last-match-wins policy.
func LastIdentifier(re *regexp.Regexp, text string) (string, bool) {
	ids := ExtractIdentifiers(re, text)
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}
