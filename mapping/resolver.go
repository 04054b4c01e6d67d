// Package mapping turns source rows into triples according to a compiled
// mapping.
//
// The Resolver coerces one cell into zero or more object terms. The Processor
// builds a row's subject, asserts its entity type and applies every column
// rule in declaration order.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/vocabulary"
)

// Resolver coerces raw cell values into RDF terms.
type Resolver struct {
	prefixes map[string]string
}

// NewResolver creates a resolver that expands prefixed uri values with the
// declared prefixes, falling back to the built-in ones.
func NewResolver(prefixes map[string]string) *Resolver {
	return &Resolver{prefixes: prefixes}
}

// Resolve coerces raw according to col. It returns the object terms the cell
// produces, possibly none, and the warnings raised on the way. Warnings carry
// the column and value; callers fill in the row position.
func (r *Resolver) Resolve(col config.Column, raw string) ([]graph.Term, []*CoercionWarning) {
	if col.Kind == config.KindSkip {
		return nil, nil
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		if col.Default == nil {
			return nil, nil
		}
		value = strings.TrimSpace(*col.Default)
		if value == "" {
			return nil, nil
		}
	}

	var (
		terms    []graph.Term
		warnings []*CoercionWarning
	)
	warn := func(kind WarningKind, v string, err error) {
		warnings = append(warnings, &CoercionWarning{Kind: kind, Column: col.Name, Value: v, Err: err})
	}

	for _, v := range splitValues(value, col.Separator) {
		if col.Lookup != nil {
			if translated, ok := col.Lookup.Get(v); ok {
				v = translated
			} else {
				warn(WarnLookupMiss, v, fmt.Errorf("no entry in lookup %s", col.Lookup.Name))
			}
		}

		candidates := []string{v}
		if col.Extract != nil {
			ids := vocabulary.ExtractIdentifiers(col.Extract, v)
			if len(ids) == 0 {
				warn(WarnNoIdentifier, v, errors.New("no identifier found"))
				continue
			}
			if col.All {
				candidates = ids
			} else {
				candidates = ids[len(ids)-1:]
			}
		}

		for _, c := range candidates {
			term, w := r.coerce(col, c)
			if w != nil {
				warnings = append(warnings, w)
			}
			if term != nil {
				terms = append(terms, term)
			}
		}
	}
	return terms, warnings
}

func (r *Resolver) coerce(col config.Column, value string) (graph.Term, *CoercionWarning) {
	switch col.Kind {
	case config.KindURI:
		iri, err := r.resolveIRI(col, value)
		if err != nil {
			return nil, &CoercionWarning{Kind: WarnInvalidIRI, Column: col.Name, Value: value, Err: err}
		}
		return graph.NewIRI(iri), nil
	case config.KindTyped:
		if err := col.Datatype.Validate(value); err != nil {
			return graph.PlainLiteral(value), &CoercionWarning{Kind: WarnInvalidLexical, Column: col.Name, Value: value, Err: err}
		}
		return graph.TypedLiteral(value, col.Datatype.IRI), nil
	case config.KindLang:
		return graph.LangLiteral(value, col.Lang), nil
	case config.KindLiteral:
		return graph.PlainLiteral(value), nil
	default:
		return nil, nil
	}
}

// resolveIRI turns a uri value into an absolute IRI: through the column
// template when one is set, otherwise as an absolute or prefixed name.
func (r *Resolver) resolveIRI(col config.Column, value string) (string, error) {
	var iri string
	if col.Template != nil {
		if err := graph.ValidateFragment(value); err != nil {
			return "", err
		}
		expanded, err := col.Template.Expand(func(string) (string, bool) { return value, true })
		if err != nil {
			return "", err
		}
		iri = expanded
	} else {
		expanded, err := vocabulary.Expand(value, r.prefixes)
		if err != nil {
			return "", err
		}
		iri = expanded
	}
	if err := graph.ValidateIRI(iri); err != nil {
		return "", err
	}
	return iri, nil
}

func splitValues(value, separator string) []string {
	if separator == "" {
		return []string{value}
	}
	parts := strings.Split(value, separator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
