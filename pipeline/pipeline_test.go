package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/export"
	"github.com/c360studio/semmap/mapping"
	"github.com/c360studio/semmap/source"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleDoc = `
output: out/graph.nt
prefixes:
  schema: https://schema.org/
tables:
  - name: people
    path: people.csv
    type: schema:Person
    subject:
      template: https://example.org/entity/{id}
    skip: [id]
    columns:
      - column: name
        predicate: schema:name
        kind: literal
      - column: born
        predicate: schema:birthDate
        kind: typed
        datatype: xsd:date
`

const peopleCSV = `id,name,born
1,Douglas Adams,1952-03-11
2,Terry Pratchett,1948-04-28
3,Broken row
4,Ursula K. Le Guin,1929-13-21
5,,
`

type fixture struct {
	dir  string
	path string
}

func newFixture(t *testing.T, doc string, files map[string]string) fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return fixture{dir: dir, path: path}
}

func (f fixture) load(t *testing.T, o config.Overrides) *config.Mapping {
	t.Helper()
	m, err := config.NewLoader(nil, nil).Load(context.Background(), f.path, o)
	require.NoError(t, err)
	return m
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_MalformedRowsAreIsolated(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	m := f.load(t, config.Overrides{})

	summary, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
	require.NoError(t, err)

	out := filepath.Join(f.dir, "out", "graph.nt")
	assert.Equal(t, []string{out}, summary.Outputs)
	assert.Equal(t, export.FormatNTriples, summary.Format)
	require.Len(t, summary.Tables, 1)
	ts := summary.Tables[0]
	assert.Equal(t, 1, ts.Malformed)
	assert.Equal(t, 4, ts.Rows)
	assert.Equal(t, 1, ts.EmptyContributions)
	assert.Equal(t, 1, ts.Warnings[mapping.WarnInvalidLexical])
	assert.NotEmpty(t, summary.RunID)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `<https://example.org/entity/4> <https://schema.org/birthDate> "1929-13-21" .`)
	assert.Contains(t, text, `"1952-03-11"^^<http://www.w3.org/2001/XMLSchema#date>`)
	assert.NotContains(t, text, "entity/3>")
	assert.Equal(t, summary.Triples, strings.Count(text, "\n"))
}

func TestRun_StrictAbortsWithoutOutput(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	m := f.load(t, config.Overrides{Strict: true})

	_, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
	require.Error(t, err)
	var fatal *source.FatalInputError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "people", fatal.Table)
	var malformed *source.MalformedRowError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 3, malformed.Row)

	entries, err := os.ReadDir(filepath.Join(f.dir, "out"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_AbortLogsPartialSummary(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	m := f.load(t, config.Overrides{Strict: true})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	summary, err := NewRunner(nil, logger, nil).Run(context.Background(), m)
	require.Error(t, err)

	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Malformed)
	assert.Empty(t, summary.Outputs)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"Run aborted"`)
	assert.Contains(t, logs, `"msg":"Table summary"`)
	assert.Contains(t, logs, `"msg":"Partial run summary"`)
	assert.Contains(t, logs, `"malformed_rows":1`)
	assert.NotContains(t, logs, `"msg":"Run complete"`)
}

func TestRun_DeduplicatesAcrossTables(t *testing.T) {
	doc := `
prefixes:
  schema: https://schema.org/
tables:
  - name: authors
    path: authors.csv
    type: schema:Person
    subject:
      template: https://example.org/entity/{id}
    skip: [id]
    columns:
      - column: name
        predicate: schema:name
        kind: literal
  - name: people
    path: people.csv
    type: schema:Person
    subject:
      template: https://example.org/entity/{id}
    skip: [id]
    columns:
      - column: label
        predicate: schema:name
        kind: literal
`
	f := newFixture(t, doc, map[string]string{
		"authors.csv": "id,name\n1,Douglas Adams\n",
		"people.csv":  "id,label\n1,Douglas Adams\n2,Ada Lovelace\n",
	})
	m := f.load(t, config.Overrides{Output: filepath.Join(f.dir, "out", "graph.nt")})

	summary, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Triples)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 2, summary.Tables[0].Triples)
	assert.Equal(t, 2, summary.Tables[1].Triples)
	assert.Equal(t, 2, summary.Tables[1].Duplicates)

	data, err := os.ReadFile(summary.Outputs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `<https://example.org/entity/1> <https://schema.org/name> "Douglas Adams" .`))
}

func TestRun_IsDeterministic(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	var outputs []string
	for _, format := range []string{"turtle", "turtle", "jsonld", "jsonld"} {
		m := f.load(t, config.Overrides{Format: format, Output: filepath.Join(f.dir, "out", "graph."+format)})
		summary, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
		require.NoError(t, err)
		data, err := os.ReadFile(summary.Outputs[0])
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[2], outputs[3])
	assert.Contains(t, outputs[0], "a schema:Person")
}

func TestRun_OneTypeAssertionPerSubject(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	m := f.load(t, config.Overrides{})

	summary, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
	require.NoError(t, err)
	data, err := os.ReadFile(summary.Outputs[0])
	require.NoError(t, err)

	types := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.Contains(line, "22-rdf-syntax-ns#type") {
			types[strings.Fields(line)[0]]++
		}
	}
	assert.Len(t, types, 4)
	for subject, n := range types {
		assert.Equal(t, 1, n, subject)
	}
}

func TestRun_SplitOutput(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	m := f.load(t, config.Overrides{SplitBytes: 1})

	summary, err := NewRunner(nil, discard(), nil).Run(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, export.PartPaths(filepath.Join(f.dir, "out", "graph.nt"), 4), summary.Outputs)
}

func TestRun_Metrics(t *testing.T) {
	f := newFixture(t, peopleDoc, map[string]string{"people.csv": peopleCSV})
	metrics := NewMetrics()
	runner := NewRunner(nil, discard(), metrics)

	_, err := runner.Run(context.Background(), f.load(t, config.Overrides{}))
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), f.load(t, config.Overrides{Strict: true}))
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("fatal")))
	assert.Equal(t, float64(6), testutil.ToFloat64(metrics.rows.WithLabelValues("people")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.malformed.WithLabelValues("people")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.warnings.WithLabelValues("people", string(mapping.WarnInvalidLexical))))

	path := filepath.Join(f.dir, "semmap.prom")
	require.NoError(t, metrics.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "semmap_triples_total")
}

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		name       string
		mapping    config.Mapping
		wantPath   string
		wantFormat export.Format
		wantField  string
	}{
		{
			name:       "defaults beside the document",
			mapping:    config.Mapping{Location: "/data/music.yaml"},
			wantPath:   "/data/music.ttl",
			wantFormat: export.FormatTurtle,
		},
		{
			name:       "format sets the default extension",
			mapping:    config.Mapping{Location: "/data/music.yaml", Format: "jsonld"},
			wantPath:   "/data/music.jsonld",
			wantFormat: export.FormatJSONLD,
		},
		{
			name:       "format inferred from output",
			mapping:    config.Mapping{Location: "/data/music.yaml", Output: "/tmp/x.nt"},
			wantPath:   "/tmp/x.nt",
			wantFormat: export.FormatNTriples,
		},
		{
			name:       "explicit format wins over extension",
			mapping:    config.Mapping{Location: "/data/music.yaml", Output: "/tmp/x.txt", Format: "ttl"},
			wantPath:   "/tmp/x.txt",
			wantFormat: export.FormatTurtle,
		},
		{
			name:      "unknown format",
			mapping:   config.Mapping{Location: "/data/music.yaml", Format: "rdfxml"},
			wantField: "format",
		},
		{
			name:      "split jsonld",
			mapping:   config.Mapping{Location: "/data/music.yaml", Format: "jsonld", SplitBytes: 100},
			wantField: "split_bytes",
		},
		{
			name:      "remote document needs output",
			mapping:   config.Mapping{Location: "https://example.org/music.yaml"},
			wantField: "output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, format, err := ResolveOutput(&tt.mapping)
			if tt.wantField != "" {
				var cfgErr *config.ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}
