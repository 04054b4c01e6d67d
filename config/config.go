// Package config loads and validates mapping documents.
//
// A mapping document is YAML. It declares namespace prefixes, optional lookup
// tables, and an ordered list of tables, each with an entity type, a subject
// rule and one rule per header column:
//
//	prefixes:
//	  schema: https://schema.org/
//	tables:
//	  - name: people
//	    path: people.csv
//	    type: schema:Person
//	    subject:
//	      template: https://example.org/entity/{id}
//	    skip: [id]
//	    columns:
//	      - column: name
//	        predicate: schema:name
//	        kind: literal
//	      - column: birth_date
//	        predicate: schema:birthDate
//	        kind: typed
//	        datatype: xsd:date
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/semmap/vocabulary"
	"gopkg.in/yaml.v3"
)

// Kind is a column coercion kind.
type Kind string

// Supported coercion kinds.
const (
	KindURI     Kind = "uri"
	KindLiteral Kind = "literal"
	KindTyped   Kind = "typed"
	KindLang    Kind = "lang"
	KindSkip    Kind = "skip"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindURI, KindLiteral, KindTyped, KindLang, KindSkip:
		return true
	}
	return false
}

// Config is a mapping document as written.
type Config struct {
	// Output is the artifact path; empty derives it from the document path.
	Output string `yaml:"output"`
	// Format is the serialization format (turtle, ntriples, jsonld). Empty
	// infers it from the output extension, defaulting to turtle.
	Format string `yaml:"format"`
	// Strict aborts the run on the first malformed row.
	Strict bool `yaml:"strict"`
	// SplitBytes splits line-oriented output into parts of at most this size.
	SplitBytes int64 `yaml:"split_bytes"`
	// Prefixes are declared in the output and usable for compact names.
	Prefixes map[string]string `yaml:"prefixes"`
	// Lookups are named key/value tables referenced by column rules.
	Lookups map[string]LookupConfig `yaml:"lookups"`
	// Tables are processed in declaration order.
	Tables []TableConfig `yaml:"tables"`
}

// LookupConfig declares a lookup table inline or as a delimited file.
type LookupConfig struct {
	Path      string            `yaml:"path"`
	Key       string            `yaml:"key"`
	Value     string            `yaml:"value"`
	Delimiter string            `yaml:"delimiter"`
	Entries   map[string]string `yaml:"entries"`
}

// TableConfig declares one source table.
type TableConfig struct {
	Name string `yaml:"name"`
	// Path is a file path, URL, or glob pattern relative to the document.
	Path      string       `yaml:"path"`
	Delimiter string       `yaml:"delimiter"`
	Type      string       `yaml:"type"`
	Subject   SubjectRule  `yaml:"subject"`
	Columns   []ColumnRule `yaml:"columns"`
	// Skip lists header columns that contribute no triples.
	Skip []string `yaml:"skip"`
}

// SubjectRule selects how subject IRIs are built. Exactly one of Template
// (without Column), Column, or Hash must be set.
type SubjectRule struct {
	// Template is an IRI template over header columns, or over {value} when
	// Column is set.
	Template string `yaml:"template"`
	// Column takes the subject identifier from a single column.
	Column string `yaml:"column"`
	// Extract pulls an identifier out of Column's value (last match wins).
	Extract string `yaml:"extract"`
	// Hash names the columns whose values seed a name-based UUID.
	Hash []string `yaml:"hash"`
	// Namespace prefixes Column or Hash identifiers when no template is given.
	Namespace string `yaml:"namespace"`
}

// ColumnRule maps one column to a predicate and coercion.
type ColumnRule struct {
	Column    string  `yaml:"column"`
	Predicate string  `yaml:"predicate"`
	Kind      Kind    `yaml:"kind"`
	Datatype  string  `yaml:"datatype"`
	Lang      string  `yaml:"lang"`
	Default   *string `yaml:"default"`
	// Template builds object IRIs from {value}.
	Template string `yaml:"template"`
	Extract  string `yaml:"extract"`
	// All emits one triple per extracted identifier instead of the last one.
	All       bool   `yaml:"all"`
	Separator string `yaml:"separator"`
	Lookup    string `yaml:"lookup"`

	columnTag string
}

var columnRuleKeys = map[string]bool{
	"column": true, "predicate": true, "kind": true, "datatype": true, "lang": true,
	"default": true, "template": true, "extract": true, "all": true, "separator": true,
	"lookup": true,
}

// UnmarshalYAML records the YAML tag of the column name so numeric or other
// non-string column references can be rejected with table context.
func (r *ColumnRule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: column rule must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		if !columnRuleKeys[key.Value] {
			return fmt.Errorf("line %d: field %s not found in column rule", key.Line, key.Value)
		}
	}
	type plain ColumnRule
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = ColumnRule(p)
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "column" {
			r.columnTag = value.Content[i+1].ShortTag()
		}
	}
	return nil
}

// sameRule reports whether two rules for the same column are identical.
func sameRule(a, b ColumnRule) bool {
	a.columnTag, b.columnTag = "", ""
	return reflect.DeepEqual(a, b)
}

// Overrides carry command-line values that take precedence over the document.
type Overrides struct {
	Output     string
	Format     string
	Strict     bool
	SplitBytes int64
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Prefixes: map[string]string{},
		Lookups:  map[string]LookupConfig{},
	}
}

// Parse decodes a mapping document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigurationError{Err: errors.New("empty document")}
		}
		return nil, &ConfigurationError{Err: fmt.Errorf("parse: %w", err)}
	}
	return cfg, nil
}

// Merge applies non-zero overrides.
func (c *Config) Merge(o Overrides) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.Strict {
		c.Strict = true
	}
	if o.SplitBytes != 0 {
		c.SplitBytes = o.SplitBytes
	}
}

var (
	prefixLabelPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_.-]*)?$`)
	langTagPattern     = regexp.MustCompile(`^[A-Za-z]{1,8}(-[A-Za-z0-9]{1,8})*$`)
)

// Validate checks the document for structural errors. It performs no I/O.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return &ConfigurationError{Err: ErrNoTables}
	}
	if c.SplitBytes < 0 {
		return &ConfigurationError{Field: "split_bytes", Err: errors.New("must not be negative")}
	}
	for _, label := range vocabulary.SortedPrefixes(c.Prefixes) {
		if !prefixLabelPattern.MatchString(label) || strings.HasSuffix(label, ".") {
			return &ConfigurationError{Field: "prefixes", Err: fmt.Errorf("invalid prefix label %q", label)}
		}
		if !vocabulary.IsAbsoluteIRI(c.Prefixes[label]) {
			return &ConfigurationError{Field: "prefixes", Err: fmt.Errorf("prefix %q: %q is not an absolute IRI", label, c.Prefixes[label])}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.Lookups)) {
		if err := c.Lookups[name].validate(); err != nil {
			return &ConfigurationError{Field: "lookups." + name, Err: err}
		}
	}

	names := make(map[string]bool, len(c.Tables))
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Name == "" {
			return &ConfigurationError{Field: fmt.Sprintf("tables[%d]", i), Err: errors.New("name is required")}
		}
		if names[t.Name] {
			return tableErr(t.Name, "name", errors.New("declared twice"))
		}
		names[t.Name] = true
		if err := c.validateTable(t); err != nil {
			return err
		}
	}
	return nil
}

func (l LookupConfig) validate() error {
	switch {
	case l.Path == "" && l.Entries == nil:
		return errors.New("one of path or entries is required")
	case l.Path != "" && l.Entries != nil:
		return errors.New("path and entries are mutually exclusive")
	case l.Path == "" && (l.Key != "" || l.Value != "" || l.Delimiter != ""):
		return errors.New("key, value and delimiter apply to file lookups only")
	}
	if _, err := parseDelimiter(l.Delimiter); err != nil {
		return err
	}
	return nil
}

func parseDelimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

func (c *Config) validateTable(t *TableConfig) error {
	if t.Path == "" {
		return tableErr(t.Name, "path", errors.New("is required"))
	}
	if _, err := parseDelimiter(t.Delimiter); err != nil {
		return tableErr(t.Name, "delimiter", err)
	}
	if t.Type == "" {
		return tableErr(t.Name, "type", errors.New("is required"))
	}
	if _, err := vocabulary.Expand(t.Type, c.Prefixes); err != nil {
		return tableErr(t.Name, "type", err)
	}
	if err := c.validateSubject(t); err != nil {
		return err
	}

	skipped := make(map[string]bool, len(t.Skip))
	for _, name := range t.Skip {
		if strings.TrimSpace(name) == "" {
			return tableErr(t.Name, "skip", errors.New("empty column name"))
		}
		skipped[name] = true
	}

	declared := make(map[string]ColumnRule, len(t.Columns))
	for i, rule := range t.Columns {
		if rule.Column == "" {
			return tableErr(t.Name, fmt.Sprintf("columns[%d]", i), errors.New("column is required"))
		}
		if rule.columnTag != "" && rule.columnTag != "!!str" {
			return columnErr(t.Name, rule.Column, "column", fmt.Errorf("column must be named by a string, got %s", rule.columnTag))
		}
		if skipped[rule.Column] && rule.Kind != KindSkip {
			return columnErr(t.Name, rule.Column, "", errors.New("listed in skip and mapped by a rule"))
		}
		if prev, ok := declared[rule.Column]; ok && !sameRule(prev, rule) {
			return columnErr(t.Name, rule.Column, "", errors.New("declared twice with conflicting rules"))
		}
		declared[rule.Column] = rule
		if err := c.validateColumn(t.Name, rule); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSubject(t *TableConfig) error {
	s := t.Subject
	set := 0
	if s.Template != "" && s.Column == "" {
		set++
	}
	if s.Column != "" {
		set++
	}
	if len(s.Hash) > 0 {
		set++
	}
	if set != 1 {
		return tableErr(t.Name, "subject", errors.New("exactly one of template, column or hash is required"))
	}

	if s.Template != "" {
		tmpl, err := ParseTemplate(s.Template)
		if err != nil {
			return tableErr(t.Name, "subject.template", err)
		}
		for _, name := range tmpl.Placeholders() {
			if s.Column != "" && name != ValuePlaceholder {
				return tableErr(t.Name, "subject.template", fmt.Errorf("only {%s} is allowed with a subject column, got {%s}", ValuePlaceholder, name))
			}
		}
		if s.Namespace != "" {
			return tableErr(t.Name, "subject.namespace", errors.New("not allowed together with a template"))
		}
	}
	if s.Extract != "" {
		if s.Column == "" {
			return tableErr(t.Name, "subject.extract", errors.New("requires subject.column"))
		}
		if _, err := vocabulary.CompileIdentifierPattern(s.Extract); err != nil {
			return tableErr(t.Name, "subject.extract", err)
		}
	}
	if (s.Column != "" || len(s.Hash) > 0) && s.Template == "" {
		if s.Namespace == "" {
			return tableErr(t.Name, "subject.namespace", errors.New("is required without a template"))
		}
		ns, err := vocabulary.Expand(s.Namespace, c.Prefixes)
		if err != nil {
			return tableErr(t.Name, "subject.namespace", err)
		}
		if !vocabulary.IsAbsoluteIRI(ns) {
			return tableErr(t.Name, "subject.namespace", fmt.Errorf("%q is not an absolute IRI", ns))
		}
	}
	if len(s.Hash) > 0 && s.Template != "" {
		return tableErr(t.Name, "subject", errors.New("hash cannot be combined with a template"))
	}
	return nil
}

func (c *Config) validateColumn(table string, rule ColumnRule) error {
	fail := func(field string, err error) error { return columnErr(table, rule.Column, field, err) }

	if rule.Kind == "" {
		return fail("kind", errors.New("is required"))
	}
	if !rule.Kind.Valid() {
		return fail("kind", fmt.Errorf("unsupported kind %q", rule.Kind))
	}
	if rule.Kind == KindSkip {
		if rule.Predicate != "" || rule.Datatype != "" || rule.Lang != "" || rule.Template != "" ||
			rule.Extract != "" || rule.Lookup != "" || rule.Separator != "" || rule.Default != nil || rule.All {
			return fail("kind", errors.New("a skip rule takes no other fields"))
		}
		return nil
	}

	if rule.Predicate == "" {
		return fail("predicate", errors.New("is required"))
	}
	if _, err := vocabulary.Expand(rule.Predicate, c.Prefixes); err != nil {
		return fail("predicate", err)
	}

	if rule.Kind == KindTyped {
		if rule.Datatype == "" {
			return fail("datatype", errors.New("is required for typed literals"))
		}
		if _, ok := vocabulary.LookupDatatype(rule.Datatype); !ok {
			return fail("datatype", fmt.Errorf("unsupported datatype %q (supported: %s)", rule.Datatype, strings.Join(vocabulary.DatatypeNames(), ", ")))
		}
	} else if rule.Datatype != "" {
		return fail("datatype", fmt.Errorf("only allowed with kind %q", KindTyped))
	}

	if rule.Kind == KindLang {
		if !langTagPattern.MatchString(rule.Lang) {
			return fail("lang", fmt.Errorf("invalid language tag %q", rule.Lang))
		}
	} else if rule.Lang != "" {
		return fail("lang", fmt.Errorf("only allowed with kind %q", KindLang))
	}

	if rule.Template != "" {
		if rule.Kind != KindURI {
			return fail("template", fmt.Errorf("only allowed with kind %q", KindURI))
		}
		tmpl, err := ParseTemplate(rule.Template)
		if err != nil {
			return fail("template", err)
		}
		for _, name := range tmpl.Placeholders() {
			if name != ValuePlaceholder {
				return fail("template", fmt.Errorf("only {%s} is allowed, got {%s}", ValuePlaceholder, name))
			}
		}
	}

	if rule.Extract != "" {
		if _, err := vocabulary.CompileIdentifierPattern(rule.Extract); err != nil {
			return fail("extract", err)
		}
	} else if rule.All {
		return fail("all", errors.New("requires extract"))
	}

	if rule.Lookup != "" {
		if _, ok := c.Lookups[rule.Lookup]; !ok {
			return fail("lookup", fmt.Errorf("unknown lookup %q", rule.Lookup))
		}
	}
	return nil
}
