package graph

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
)

// ValidateIRI checks that iri is a syntactically legal absolute IRI.
// rdf.ValidateIRI accepts relative references and some raw characters that
// cannot appear in an IRIREF, so both are rejected here as well.
func ValidateIRI(iri string) error {
	if err := rdf.ValidateIRI(iri); err != nil {
		return err
	}
	for i, r := range iri {
		if r <= 0x20 {
			return fmt.Errorf("invalid character %q at position %d in IRI %q", r, i, iri)
		}
		if strings.ContainsRune("<>\"{}|^`\\", r) {
			return fmt.Errorf("invalid character '%c' at position %d in IRI %q (should be percent-encoded)", r, i, iri)
		}
	}
	parsed, err := url.Parse(iri)
	if err != nil {
		return fmt.Errorf("invalid IRI syntax: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("IRI %q has no scheme", iri)
	}
	first := parsed.Scheme[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return fmt.Errorf("scheme must start with a letter: %q", iri)
	}
	if parsed.Opaque == "" && parsed.Host == "" && parsed.Path == "" {
		return fmt.Errorf("IRI %q has an empty body", iri)
	}
	return nil
}

// ValidateFragment checks that value can be appended to a namespace or
// substituted into an IRI template without escaping: a non-empty run of
// characters legal in an IRI path segment or fragment.
func ValidateFragment(value string) error {
	if value == "" {
		return fmt.Errorf("empty identifier")
	}
	for i, r := range value {
		if r <= 0x20 || r == 0x7f {
			return fmt.Errorf("invalid character %q at position %d in identifier %q", r, i, value)
		}
		if strings.ContainsRune("<>\"{}|^`\\#?", r) {
			return fmt.Errorf("invalid character '%c' at position %d in identifier %q", r, i, value)
		}
	}
	return nil
}
