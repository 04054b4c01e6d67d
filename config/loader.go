package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/semmap/source"
	"github.com/c360studio/semmap/vocabulary"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// Loader reads mapping documents and compiles them against the headers of the
// tables they name.
type Loader struct {
	fs     afs.Service
	logger *slog.Logger
}

// NewLoader creates a loader. A nil fs uses the default afs service and a nil
// logger uses slog.Default().
func NewLoader(fs afs.Service, logger *slog.Logger) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, logger: logger}
}

// Load reads the document at location, applies overrides and validates it.
// Relative paths in the document resolve against the document's directory.
// Every error is a *ConfigurationError. Load writes nothing.
func (l *Loader) Load(ctx context.Context, location string, overrides Overrides) (*Mapping, error) {
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, &ConfigurationError{Field: "document", Err: fmt.Errorf("read %s: %w", location, err)}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base := baseDir(location)
	if cfg.Output != "" {
		cfg.Output = resolvePath(base, cfg.Output)
	}
	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Mapping{
		Location:   location,
		Output:     cfg.Output,
		Format:     cfg.Format,
		Strict:     cfg.Strict,
		SplitBytes: cfg.SplitBytes,
		Prefixes:   make(map[string]string, len(cfg.Prefixes)),
		Lookups:    make(map[string]*Lookup, len(cfg.Lookups)),
	}
	for k, v := range cfg.Prefixes {
		m.Prefixes[k] = v
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Lookups)) {
		lookup, err := l.loadLookup(ctx, base, name, cfg.Lookups[name])
		if err != nil {
			return nil, err
		}
		m.Lookups[name] = lookup
	}

	for i := range cfg.Tables {
		table, err := l.compileTable(ctx, base, cfg, &cfg.Tables[i], m.Lookups)
		if err != nil {
			return nil, err
		}
		m.Tables = append(m.Tables, table)
	}

	l.logger.Debug("Loaded mapping",
		slog.String("path", location),
		slog.Int("tables", len(m.Tables)),
		slog.Int("lookups", len(m.Lookups)))
	return m, nil
}

func (l *Loader) compileTable(ctx context.Context, base string, cfg *Config, tc *TableConfig, lookups map[string]*Lookup) (*Table, error) {
	files, err := l.expandFiles(ctx, base, tc.Path)
	if err != nil {
		return nil, tableErr(tc.Name, "path", err)
	}
	delimiter, _ := parseDelimiter(tc.Delimiter)
	header, err := source.ReadHeader(ctx, l.fs, files[0], delimiter)
	if err != nil {
		return nil, tableErr(tc.Name, "path", err)
	}
	typeIRI, _ := vocabulary.Expand(tc.Type, cfg.Prefixes)

	t := &Table{
		Name:      tc.Name,
		Files:     files,
		Delimiter: delimiter,
		Type:      typeIRI,
		Header:    header,
	}
	inHeader := make(map[string]bool, len(header))
	for _, name := range header {
		inHeader[name] = true
	}

	subject, err := compileSubject(tc, cfg.Prefixes, inHeader)
	if err != nil {
		return nil, err
	}
	t.Subject = subject

	covered := make(map[string]bool, len(header))
	for _, name := range tc.Skip {
		if !inHeader[name] {
			return nil, columnErr(tc.Name, name, "skip", errors.New("not in header"))
		}
		if !covered[name] {
			covered[name] = true
			t.Skipped = append(t.Skipped, name)
		}
	}
	compiled := make(map[string]bool, len(tc.Columns))
	for _, rule := range tc.Columns {
		if !inHeader[rule.Column] {
			return nil, columnErr(tc.Name, rule.Column, "column", errors.New("not in header"))
		}
		if compiled[rule.Column] {
			continue
		}
		compiled[rule.Column] = true
		if rule.Kind == KindSkip {
			if !covered[rule.Column] {
				t.Skipped = append(t.Skipped, rule.Column)
			}
			covered[rule.Column] = true
			continue
		}
		covered[rule.Column] = true
		t.Columns = append(t.Columns, compileColumn(rule, cfg.Prefixes, lookups))
	}
	for _, name := range header {
		if !covered[name] {
			return nil, columnErr(tc.Name, name, "", errors.New("header column has no rule and no skip"))
		}
	}

	l.logger.Debug("Compiled table",
		slog.String("table", t.Name),
		slog.Int("files", len(t.Files)),
		slog.Int("columns", len(t.Columns)),
		slog.Int("skipped", len(t.Skipped)))
	return t, nil
}

func compileSubject(tc *TableConfig, prefixes map[string]string, inHeader map[string]bool) (Subject, error) {
	rule := tc.Subject
	var s Subject
	if rule.Template != "" {
		tmpl, err := ParseTemplate(rule.Template)
		if err != nil {
			return s, tableErr(tc.Name, "subject.template", err)
		}
		s.Template = tmpl
	}
	if rule.Namespace != "" {
		s.Namespace, _ = vocabulary.Expand(rule.Namespace, prefixes)
	}

	switch {
	case rule.Column != "":
		s.Kind = SubjectColumn
		if !inHeader[rule.Column] {
			return s, columnErr(tc.Name, rule.Column, "subject.column", errors.New("not in header"))
		}
		s.Column = rule.Column
		if rule.Extract != "" {
			s.Extract, _ = vocabulary.CompileIdentifierPattern(rule.Extract)
		}
	case len(rule.Hash) > 0:
		s.Kind = SubjectHash
		for _, name := range rule.Hash {
			if !inHeader[name] {
				return s, columnErr(tc.Name, name, "subject.hash", errors.New("not in header"))
			}
		}
		s.Hash = append([]string(nil), rule.Hash...)
	default:
		s.Kind = SubjectTemplate
		for _, name := range s.Template.Placeholders() {
			if !inHeader[name] {
				return s, columnErr(tc.Name, name, "subject.template", errors.New("placeholder references a column absent from the header"))
			}
		}
	}
	return s, nil
}

func compileColumn(rule ColumnRule, prefixes map[string]string, lookups map[string]*Lookup) Column {
	c := Column{
		Name:      rule.Column,
		Kind:      rule.Kind,
		Lang:      rule.Lang,
		Default:   rule.Default,
		All:       rule.All,
		Separator: rule.Separator,
	}
	// Validate already rejected anything that fails to compile here.
	c.Predicate, _ = vocabulary.Expand(rule.Predicate, prefixes)
	if rule.Datatype != "" {
		c.Datatype, _ = vocabulary.LookupDatatype(rule.Datatype)
	}
	if rule.Template != "" {
		c.Template, _ = ParseTemplate(rule.Template)
	}
	if rule.Extract != "" {
		c.Extract, _ = vocabulary.CompileIdentifierPattern(rule.Extract)
	}
	if rule.Lookup != "" {
		c.Lookup = lookups[rule.Lookup]
	}
	return c
}

// expandFiles resolves a table path into the ordered list of files it names.
func (l *Loader) expandFiles(ctx context.Context, base, pattern string) ([]string, error) {
	location := resolvePath(base, pattern)
	if !isURL(location) && hasGlobMeta(location) {
		matches, err := doublestar.FilepathGlob(location, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", pattern)
		}
		slices.Sort(matches)
		return matches, nil
	}
	ok, err := l.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", location, err)
	}
	if !ok {
		return nil, fmt.Errorf("file not found: %s", location)
	}
	return []string{location}, nil
}

func (l *Loader) loadLookup(ctx context.Context, base, name string, lc LookupConfig) (*Lookup, error) {
	if lc.Path == "" {
		return NewLookup(name, lc.Entries), nil
	}
	field := "lookups." + name
	location := resolvePath(base, lc.Path)
	delimiter, _ := parseDelimiter(lc.Delimiter)
	r, err := source.Open(ctx, l.fs, source.Spec{Name: name, Files: []string{location}, Delimiter: delimiter})
	if err != nil {
		return nil, &ConfigurationError{Field: field, Err: err}
	}
	defer r.Close()

	header := r.Header()
	key, value := lc.Key, lc.Value
	if key == "" || value == "" {
		if len(header) < 2 {
			return nil, &ConfigurationError{Field: field, Err: errors.New("lookup file needs a key and a value column")}
		}
		if key == "" {
			key = header[0]
		}
		if value == "" {
			value = header[1]
		}
	}
	for _, column := range []string{key, value} {
		if !slices.Contains(header, column) {
			return nil, &ConfigurationError{Field: field, Err: fmt.Errorf("column %q not in header", column)}
		}
	}

	entries := make(map[string]string)
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ConfigurationError{Field: field, Err: err}
		}
		k := strings.TrimSpace(row.Values[key])
		if k == "" {
			continue
		}
		v := strings.TrimSpace(row.Values[value])
		if prev, ok := entries[k]; ok && prev != v {
			return nil, &ConfigurationError{Field: field, Err: fmt.Errorf("key %q maps to both %q and %q", k, prev, v)}
		}
		entries[k] = v
	}

	lookup := NewLookup(name, entries)
	lookup.Path = location
	l.logger.Debug("Loaded lookup", slog.String("lookup", name), slog.String("path", location), slog.Int("entries", lookup.Len()))
	return lookup, nil
}

func isURL(location string) bool {
	return strings.Contains(location, "://")
}

func hasGlobMeta(location string) bool {
	return strings.ContainsAny(location, "*?[{")
}

func baseDir(location string) string {
	if isURL(location) {
		if idx := strings.LastIndex(location, "/"); idx > strings.Index(location, "://")+2 {
			return location[:idx]
		}
		return location
	}
	return filepath.Dir(location)
}

func resolvePath(base, location string) string {
	if isURL(location) || filepath.IsAbs(location) {
		return location
	}
	if isURL(base) {
		return url.Join(base, location)
	}
	return filepath.Join(base, location)
}
