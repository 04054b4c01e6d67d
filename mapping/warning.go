package mapping

import (
	"fmt"
	"strings"
)

// WarningKind classifies a recoverable coercion problem.
type WarningKind string

// Warning kinds.
const (
	// WarnInvalidIRI means a uri value did not form a legal IRI; the cell
	// contributes nothing.
	WarnInvalidIRI WarningKind = "invalid_iri"
	// WarnInvalidLexical means a typed value did not parse; it is emitted as
	// a plain literal instead.
	WarnInvalidLexical WarningKind = "invalid_lexical"
	// WarnLookupMiss means a lookup had no entry; the raw value is used.
	WarnLookupMiss WarningKind = "lookup_miss"
	// WarnNoIdentifier means extraction found no identifier in the value.
	WarnNoIdentifier WarningKind = "no_identifier"
	// WarnSubject means the row's subject could not be built; the row is
	// skipped.
	WarnSubject WarningKind = "subject"
)

// CoercionWarning reports a cell value that could not be coerced as declared.
// It never aborts a run.
type CoercionWarning struct {
	Kind   WarningKind
	Table  string
	Row    int
	Line   int
	Column string
	Value  string
	Err    error
}

func (w *CoercionWarning) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table %s: row %d", w.Table, w.Row)
	if w.Column != "" {
		fmt.Fprintf(&sb, ": column %s", w.Column)
	}
	fmt.Fprintf(&sb, ": %s", w.Kind)
	if w.Value != "" {
		fmt.Fprintf(&sb, " %q", w.Value)
	}
	if w.Err != nil {
		fmt.Fprintf(&sb, ": %v", w.Err)
	}
	return sb.String()
}

func (w *CoercionWarning) Unwrap() error { return w.Err }
