// Package pipeline runs a compiled mapping end to end: it reads every table
// in order, maps each row, accumulates the deduplicated graph and writes the
// artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/export"
	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/mapping"
	"github.com/c360studio/semmap/source"
	"github.com/google/uuid"
	"github.com/viant/afs"
)

// Runner executes mappings.
type Runner struct {
	fs      afs.Service
	logger  *slog.Logger
	metrics *Metrics
}

// NewRunner creates a runner. A nil fs uses the default afs service, a nil
// logger uses slog.Default(), and a nil metrics disables metrics.
func NewRunner(fs afs.Service, logger *slog.Logger, metrics *Metrics) *Runner {
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fs: fs, logger: logger, metrics: metrics}
}

// Run executes m. Malformed rows and coercion problems are logged and
// counted; a *source.FatalInputError aborts the run before anything is
// written. In strict mode the first malformed row is fatal.
func (r *Runner) Run(ctx context.Context, m *config.Mapping) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	output, format, err := ResolveOutput(m)
	if err != nil {
		r.metrics.observe(nil, "config_error")
		return nil, err
	}

	summary := &Summary{RunID: runID, Format: format}
	g := graph.New()
	proc := mapping.NewProcessor(m)

	for _, table := range m.Tables {
		ts, err := r.runTable(ctx, logger, m, table, proc, g)
		summary.Tables = append(summary.Tables, ts)
		if err != nil {
			summary.total(g)
			summary.Duration = time.Since(start)
			summary.Aborted = true
			r.metrics.observe(summary, "fatal")
			logger.Error("Run aborted", slog.String("table", table.Name), slog.String("error", err.Error()))
			summary.Log(logger)
			return summary, err
		}
	}
	summary.total(g)

	written, err := export.Write(output, g.Triples(), export.Options{
		Format:     format,
		Prefixes:   m.Prefixes,
		SplitBytes: m.SplitBytes,
		Logger:     logger,
	})
	summary.Duration = time.Since(start)
	if err != nil {
		summary.Aborted = true
		r.metrics.observe(summary, "write_error")
		summary.Log(logger)
		return summary, fmt.Errorf("write output: %w", err)
	}
	summary.Outputs = written
	r.metrics.observe(summary, "ok")
	summary.Log(logger)
	return summary, nil
}

func (r *Runner) runTable(ctx context.Context, logger *slog.Logger, m *config.Mapping, table *config.Table, proc *mapping.Processor, g *graph.Graph) (TableSummary, error) {
	ts := newTableSummary(table.Name, len(table.Files))
	logger = logger.With("table", table.Name)

	reader, err := source.Open(ctx, r.fs, table.Spec())
	if err != nil {
		return ts, err
	}
	defer reader.Close()

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var malformed *source.MalformedRowError
		if errors.As(err, &malformed) {
			ts.Malformed++
			if m.Strict {
				return ts, &source.FatalInputError{
					Table: malformed.Table,
					File:  malformed.File,
					Err:   fmt.Errorf("strict mode: %w", malformed),
				}
			}
			logger.Warn("Skipping malformed row",
				slog.Int("row", malformed.Row),
				slog.Int("line", malformed.Line),
				slog.String("file", malformed.File),
				slog.String("error", malformed.Err.Error()))
			continue
		}
		if err != nil {
			return ts, err
		}

		ts.Rows++
		res, err := proc.Process(table, row)
		if err != nil {
			var w *mapping.CoercionWarning
			if !errors.As(err, &w) {
				return ts, err
			}
			ts.Warnings[w.Kind]++
			ts.SkippedRows++
			logger.Warn("Skipping row without subject", slog.Int("row", w.Row), slog.Int("line", w.Line), slog.String("error", w.Err.Error()))
			continue
		}

		for _, w := range res.Warnings {
			ts.Warnings[w.Kind]++
			logger.Warn("Coercion warning",
				slog.Int("row", w.Row),
				slog.String("column", w.Column),
				slog.String("kind", string(w.Kind)),
				slog.String("value", w.Value),
				slog.String("error", errString(w.Err)))
		}
		for _, t := range res.Triples {
			if g.Add(t) {
				ts.Triples++
			} else {
				ts.Duplicates++
			}
		}
		if res.Empty() {
			ts.EmptyContributions++
			logger.Debug("Row contributed only its type", slog.Int("row", row.Index), slog.String("subject", res.Subject.Value))
		}
	}

	logger.Info("Table mapped",
		slog.Int("rows", ts.Rows),
		slog.Int("triples", ts.Triples),
		slog.Int("malformed", ts.Malformed),
		slog.Int("duplicates", ts.Duplicates))
	return ts, nil
}

// ResolveOutput picks the artifact path and format. The format comes from
// the mapping, or from the output extension when the mapping names none.
// Without an output path, the artifact is written beside the mapping
// document with the format's extension.
func ResolveOutput(m *config.Mapping) (string, export.Format, error) {
	var (
		format export.Format
		err    error
	)
	switch {
	case m.Format != "":
		format, err = export.ParseFormat(m.Format)
		if err != nil {
			return "", "", &config.ConfigurationError{Field: "format", Err: err}
		}
	case m.Output != "":
		f, ok := export.FormatForPath(m.Output)
		if !ok {
			f = export.FormatTurtle
		}
		format = f
	default:
		format = export.FormatTurtle
	}

	info, _ := export.GetFormatInfo(format)
	if m.SplitBytes > 0 && !info.Splittable {
		return "", "", &config.ConfigurationError{Field: "split_bytes", Err: fmt.Errorf("%w: %s", export.ErrSplitUnsupported, format)}
	}

	output := m.Output
	if output == "" {
		location := m.Location
		if strings.Contains(location, "://") {
			return "", "", &config.ConfigurationError{Field: "output", Err: errors.New("required when the mapping is not a local file")}
		}
		output = strings.TrimSuffix(location, filepath.Ext(location)) + info.Extension
	}
	return output, format, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
