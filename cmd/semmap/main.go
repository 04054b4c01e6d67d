// Package main provides the semmap binary entry point.
// Semmap maps delimited tables to an RDF graph as described by a YAML
// mapping document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/logging"
	"github.com/c360studio/semmap/pipeline"
	"github.com/c360studio/semmap/source"
	"github.com/c360studio/semmap/watch"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semmap"
)

// Exit codes.
const (
	exitOK = iota
	exitError
	exitPanic
	exitConfig
	exitFatalInput
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitPanic)
		}
	}()

	if err := rootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	var (
		fatal  *source.FatalInputError
		cfgErr *config.ConfigurationError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &fatal):
		return exitFatalInput
	case errors.As(err, &cfgErr):
		return exitConfig
	default:
		return exitError
	}
}

type options struct {
	strict      bool
	output      string
	format      string
	splitBytes  int64
	logLevel    string
	logFormat   string
	metricsFile string
	watch       bool
	debounce    time.Duration
}

func (o *options) overrides() config.Overrides {
	return config.Overrides{
		Output:     o.output,
		Format:     o.format,
		Strict:     o.strict,
		SplitBytes: o.splitBytes,
	}
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "semmap <mapping>",
		Short: "Map delimited tables to RDF",
		Long: `Semmap reads the CSV or TSV tables named by a YAML mapping document,
turns every row into RDF triples and writes one deduplicated graph as
Turtle, N-Triples or JSON-LD.

Malformed rows and values that cannot be coerced are logged and skipped.
With --strict the first malformed row aborts the run and nothing is written.

Exit codes: 0 success, 1 other error, 3 configuration error,
4 unreadable input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(stderr, opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var metrics *pipeline.Metrics
			if opts.metricsFile != "" {
				metrics = pipeline.NewMetrics()
			}
			if opts.watch {
				return runWatch(ctx, args[0], opts, logger, metrics)
			}
			_, err = runOnce(ctx, args[0], opts, logger, metrics)
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.strict, "strict", false, "Abort on the first malformed row")
	flags.StringVarP(&opts.output, "output", "o", "", "Output path (default: beside the mapping document)")
	flags.StringVar(&opts.format, "format", "", "Output format: turtle, ntriples or jsonld (default: from output extension)")
	flags.Int64Var(&opts.splitBytes, "split-bytes", 0, "Split the output into parts of about this many bytes")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format (text, json, pretty)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-run whenever the mapping or an input changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a watched change triggers a run")

	cmd.AddCommand(validateCmd(stdout, stderr, opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func validateCmd(stdout, stderr io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <mapping>",
		Short: "Check a mapping document against its tables without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(stderr, opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			m, err := config.NewLoader(nil, logger).Load(cmd.Context(), args[0], opts.overrides())
			if err != nil {
				return err
			}
			output, format, err := pipeline.ResolveOutput(m)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "%s: ok\n", m.Location)
			for _, t := range m.Tables {
				fmt.Fprintf(stdout, "  table %s: %d file(s), %d column rule(s), subject by %s\n",
					t.Name, len(t.Files), len(t.Columns), t.Subject.Kind)
			}
			fmt.Fprintf(stdout, "  output: %s (%s)\n", output, format)
			return nil
		},
	}
}

// runOnce loads and runs the mapping once. The loaded mapping is returned
// even when the run fails.
func runOnce(ctx context.Context, location string, opts *options, logger *slog.Logger, metrics *pipeline.Metrics) (*config.Mapping, error) {
	m, err := config.NewLoader(nil, logger).Load(ctx, location, opts.overrides())
	if err != nil {
		return nil, err
	}

	_, runErr := pipeline.NewRunner(nil, logger, metrics).Run(ctx, m)
	if metrics != nil {
		if err := metrics.WriteFile(opts.metricsFile); err != nil {
			logger.Warn("Failed to write metrics", "path", opts.metricsFile, "error", err)
		}
	}
	return m, runErr
}
