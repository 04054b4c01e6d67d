package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/pipeline"
	"github.com/c360studio/semmap/watch"
)

// runWatch runs the mapping, then re-runs it whenever the document or one of
// its inputs changes. Failed runs are logged and watching continues. It
// returns when ctx is cancelled.
func runWatch(ctx context.Context, location string, opts *options, logger *slog.Logger, metrics *pipeline.Metrics) error {
	if strings.Contains(location, "://") {
		return &config.ConfigurationError{Field: "document", Err: errors.New("watch needs a local mapping document")}
	}

	m, err := runOnce(ctx, location, opts, logger, metrics)
	logRunResult(logger, err)

	w, err := watch.New(watchPaths(location, m), opts.debounce, logger)
	if err != nil {
		return err
	}
	defer w.Stop()
	w.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case changed, ok := <-w.Changes():
			if !ok {
				return nil
			}
			logger.Info("Inputs changed, re-running", "files", changed)
			next, err := runOnce(ctx, location, opts, logger, metrics)
			logRunResult(logger, err)
			if next != nil {
				m = next
			}
			if err := w.Update(watchPaths(location, m)); err != nil {
				logger.Warn("Failed to update watched files", "error", err)
			}
		}
	}
}

// watchPaths is every input of m, or only the document when it failed to load.
func watchPaths(location string, m *config.Mapping) []string {
	if m == nil {
		return []string{location}
	}
	return m.Inputs()
}

func logRunResult(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("Run failed", "error", err, "exit_code", exitCode(err))
	}
}
