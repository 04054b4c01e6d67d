package pipeline

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/c360studio/semmap/export"
	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/mapping"
)

// TableSummary counts what one table contributed.
type TableSummary struct {
	Name  string
	Files int
	// Rows counts well-formed rows.
	Rows      int
	Malformed int
	// SkippedRows counts rows dropped because no subject could be built.
	SkippedRows int
	// Triples counts triples first added by this table.
	Triples    int
	Duplicates int
	// EmptyContributions counts rows that produced only a type assertion.
	EmptyContributions int
	Warnings           map[mapping.WarningKind]int
}

func newTableSummary(name string, files int) TableSummary {
	return TableSummary{Name: name, Files: files, Warnings: make(map[mapping.WarningKind]int)}
}

// Summary describes a finished or aborted run.
type Summary struct {
	RunID  string
	Format export.Format
	Tables []TableSummary
	// Outputs lists the written files; empty when the run aborted.
	Outputs []string
	// Triples is the number of distinct triples in the graph.
	Triples            int
	Rows               int
	Malformed          int
	SkippedRows        int
	Duplicates         int
	EmptyContributions int
	Warnings           map[mapping.WarningKind]int
	Duration           time.Duration
	// Aborted is set when a fatal error stopped the run before output.
	Aborted bool
}

func (s *Summary) total(g *graph.Graph) {
	s.Triples = g.Len()
	s.Warnings = make(map[mapping.WarningKind]int)
	for _, t := range s.Tables {
		s.Rows += t.Rows
		s.Malformed += t.Malformed
		s.SkippedRows += t.SkippedRows
		s.Duplicates += t.Duplicates
		s.EmptyContributions += t.EmptyContributions
		for kind, n := range t.Warnings {
			s.Warnings[kind] += n
		}
	}
}

// WarningCount returns the number of coercion warnings of every kind.
func (s *Summary) WarningCount() int {
	n := 0
	for _, c := range s.Warnings {
		n += c
	}
	return n
}

// Log writes the end-of-run summary: one line per table, then the totals.
// An aborted run logs the counts gathered up to the failure at warn level.
func (s *Summary) Log(logger *slog.Logger) {
	for _, t := range s.Tables {
		logger.Info("Table summary",
			slog.String("table", t.Name),
			slog.Int("files", t.Files),
			slog.Int("rows", t.Rows),
			slog.Int("malformed", t.Malformed),
			slog.Int("skipped_rows", t.SkippedRows),
			slog.Int("triples", t.Triples),
			slog.Int("duplicates", t.Duplicates),
			slog.Int("empty_contributions", t.EmptyContributions))
	}

	attrs := []any{
		slog.String("format", string(s.Format)),
		slog.Any("outputs", s.Outputs),
		slog.Int("rows", s.Rows),
		slog.Int("triples", s.Triples),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("malformed_rows", s.Malformed),
		slog.Int("empty_contributions", s.EmptyContributions),
		slog.Int("coercion_warnings", s.WarningCount()),
		slog.Duration("duration", s.Duration),
	}
	for _, kind := range slices.Sorted(maps.Keys(s.Warnings)) {
		attrs = append(attrs, slog.Int("warnings."+string(kind), s.Warnings[kind]))
	}
	if s.Aborted {
		logger.Warn("Partial run summary", attrs...)
		return
	}
	logger.Info("Run complete", attrs...)
}
