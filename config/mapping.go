package config

import (
	"maps"
	"regexp"
	"slices"

	"github.com/c360studio/semmap/source"
	"github.com/c360studio/semmap/vocabulary"
)

// Mapping is a loaded and validated mapping document. It is immutable once
// Load returns and may be shared by reference.
type Mapping struct {
	// Location is where the document was read from.
	Location   string
	Output     string
	Format     string
	Strict     bool
	SplitBytes int64
	// Prefixes are the declared prefixes only; builtins are used for
	// expansion but never emitted.
	Prefixes map[string]string
	Lookups  map[string]*Lookup
	Tables   []*Table
}

// Inputs returns every file the mapping reads: the document, table files and
// lookup files.
func (m *Mapping) Inputs() []string {
	inputs := []string{m.Location}
	for _, t := range m.Tables {
		inputs = append(inputs, t.Files...)
	}
	for _, name := range slices.Sorted(maps.Keys(m.Lookups)) {
		if path := m.Lookups[name].Path; path != "" {
			inputs = append(inputs, path)
		}
	}
	return inputs
}

// Table is one compiled source table.
type Table struct {
	Name      string
	Files     []string
	Delimiter rune
	// Type is the expanded entity type IRI.
	Type    string
	Header  []string
	Subject Subject
	// Columns are the contributing rules in declaration order.
	Columns []Column
	// Skipped lists header columns that contribute nothing.
	Skipped []string
}

// Spec returns the row source for the table.
func (t *Table) Spec() source.Spec {
	return source.Spec{Name: t.Name, Files: t.Files, Delimiter: t.Delimiter}
}

// SubjectKind selects how subject IRIs are built.
type SubjectKind int

// Subject rule kinds.
const (
	SubjectTemplate SubjectKind = iota
	SubjectColumn
	SubjectHash
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectTemplate:
		return "template"
	case SubjectColumn:
		return "column"
	case SubjectHash:
		return "hash"
	default:
		return "unknown"
	}
}

// Subject is a compiled subject rule.
type Subject struct {
	Kind SubjectKind
	// Template is set for SubjectTemplate, and optionally for SubjectColumn
	// where it holds a single {value} placeholder.
	Template *Template
	Column   string
	Extract  *regexp.Regexp
	Hash     []string
	// Namespace is the expanded IRI prefix for column and hash identifiers
	// built without a template.
	Namespace string
}

// Column is a compiled column rule.
type Column struct {
	Name string
	// Predicate is the expanded predicate IRI.
	Predicate string
	Kind      Kind
	Datatype  *vocabulary.Datatype
	Lang      string
	Default   *string
	Template  *Template
	Extract   *regexp.Regexp
	All       bool
	Separator string
	Lookup    *Lookup
}

// Lookup is an immutable key/value translation table.
type Lookup struct {
	Name string
	// Path is the file the entries were read from, empty for inline lookups.
	Path    string
	entries map[string]string
}

// NewLookup returns a lookup over a copy of entries.
func NewLookup(name string, entries map[string]string) *Lookup {
	l := &Lookup{Name: name, entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		l.entries[k] = v
	}
	return l
}

// Get translates key.
func (l *Lookup) Get(key string) (string, bool) {
	v, ok := l.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (l *Lookup) Len() int { return len(l.entries) }
