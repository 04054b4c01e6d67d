package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bandsDoc = `
prefixes:
  mo: http://purl.org/ontology/mo/
  foaf: http://xmlns.com/foaf/0.1/
tables:
  - name: bands
    path: bands.csv
    type: mo:MusicGroup
    subject:
      column: id
      namespace: https://example.org/band/
    skip: [id]
    columns:
      - column: name
        predicate: foaf:name
        kind: literal
`

const bandsCSV = `id,name
1,Can
2,Neu!
3,Faust,extra
`

func setup(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bands.csv"), []byte(bandsCSV), 0o644))
	path := filepath.Join(dir, "bands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"configuration", &config.ConfigurationError{Field: "format", Err: errors.New("bad")}, exitConfig},
		{"wrapped configuration", fmt.Errorf("load: %w", &config.ConfigurationError{Err: errors.New("bad")}), exitConfig},
		{"fatal input", &source.FatalInputError{Table: "bands", Err: errors.New("gone")}, exitFatalInput},
		{"strict abort", &source.FatalInputError{Table: "bands", Err: fmt.Errorf("strict mode: %w", &source.MalformedRowError{Row: 3})}, exitFatalInput},
		{"other", errors.New("disk full"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRun_WritesTurtleBesideDocument(t *testing.T) {
	path := setup(t, bandsDoc)

	_, err := execute(t, path, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(strings.TrimSuffix(path, ".yaml") + ".ttl")
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "@prefix foaf: <http://xmlns.com/foaf/0.1/> .\n@prefix mo: <http://purl.org/ontology/mo/> .\n"))
	assert.Contains(t, text, "<https://example.org/band/1>\n    a mo:MusicGroup ;\n    foaf:name \"Can\" .\n")
	assert.NotContains(t, text, "Faust")
}

func TestRun_OutputAndFormatFlags(t *testing.T) {
	path := setup(t, bandsDoc)
	out := filepath.Join(filepath.Dir(path), "graph.out")

	_, err := execute(t, path, "-o", out, "--format", "nt", "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<https://example.org/band/2> <http://xmlns.com/foaf/0.1/name> "Neu!" .`)
}

func TestRun_StrictExitsWithFatalInput(t *testing.T) {
	path := setup(t, bandsDoc)

	_, err := execute(t, path, "--strict", "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, exitFatalInput, exitCode(err))
	_, statErr := os.Stat(strings.TrimSuffix(path, ".yaml") + ".ttl")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ConfigurationErrorExitCode(t *testing.T) {
	path := setup(t, strings.Replace(bandsDoc, "kind: literal", "kind: number", 1))

	_, err := execute(t, path, "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestRun_MetricsFile(t *testing.T) {
	path := setup(t, bandsDoc)
	metrics := filepath.Join(filepath.Dir(path), "semmap.prom")

	_, err := execute(t, path, "--metrics-file", metrics, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `semmap_runs_total{status="ok"} 1`)
	assert.Contains(t, string(data), `semmap_malformed_rows_total{table="bands"} 1`)
}

func TestRun_RequiresOneArgument(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	path := setup(t, bandsDoc)

	out, err := execute(t, "validate", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, path+": ok")
	assert.Contains(t, out, "table bands: 1 file(s), 1 column rule(s), subject by column")
	assert.Contains(t, out, "(turtle)")

	_, statErr := os.Stat(strings.TrimSuffix(path, ".yaml") + ".ttl")
	assert.True(t, os.IsNotExist(statErr), "validate must not write output")
}

func TestValidateCommand_BadFormat(t *testing.T) {
	path := setup(t, bandsDoc)

	_, err := execute(t, "validate", path, "--format", "rdfxml", "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s version %s (build: %s)\n", appName, Version, BuildTime), out)
}

func TestRunWatch_RejectsRemoteDocument(t *testing.T) {
	err := runWatch(context.Background(), "https://example.org/m.yaml", &options{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestWatchPaths(t *testing.T) {
	assert.Equal(t, []string{"m.yaml"}, watchPaths("m.yaml", nil))
	m := &config.Mapping{Location: "m.yaml", Tables: []*config.Table{{Name: "t", Files: []string{"a.csv"}}}}
	assert.Equal(t, []string{"m.yaml", "a.csv"}, watchPaths("m.yaml", m))
}
