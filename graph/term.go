// Package graph provides the RDF term model and the deduplicating,
// insertion-ordered triple graph produced by a mapping run.
package graph

import (
	"fmt"
	"strings"
)

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// TermIRI represents an IRI reference.
	TermIRI TermKind = iota
	// TermLiteral represents a literal.
	TermLiteral
)

// Term is a value that can appear in the object position of a triple.
// String returns the canonical N-Triples form of the term.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI is an RDF IRI reference.
type IRI struct {
	Value string
}

// NewIRI returns an IRI term.
func NewIRI(value string) IRI { return IRI{Value: value} }

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

// String returns the IRI in angle brackets.
func (i IRI) String() string { return "<" + EscapeIRI(i.Value) + ">" }

// Literal is an RDF literal. At most one of Datatype and Lang is set.
type Literal struct {
	Lexical  string
	Datatype string
	Lang     string
}

// PlainLiteral returns an untyped literal.
func PlainLiteral(lexical string) Literal { return Literal{Lexical: lexical} }

// TypedLiteral returns a literal with a datatype IRI.
func TypedLiteral(lexical, datatype string) Literal {
	return Literal{Lexical: lexical, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(lexical, lang string) Literal { return Literal{Lexical: lexical, Lang: lang} }

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

// String returns the quoted literal with its language tag or datatype.
func (l Literal) String() string {
	quoted := `"` + EscapeString(l.Lexical) + `"`
	switch {
	case l.Lang != "":
		return quoted + "@" + l.Lang
	case l.Datatype != "":
		return quoted + "^^<" + EscapeIRI(l.Datatype) + ">"
	default:
		return quoted
	}
}

// EscapeString escapes a literal's lexical form for Turtle and N-Triples
// string literals.
func EscapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u%04X`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// EscapeIRI replaces characters that may not appear raw inside an IRIREF
// with UCHAR escapes.
func EscapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") && !hasControl(s) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&sb, `\u%04X`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 {
			return true
		}
	}
	return false
}
