package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/semmap/graph"
)

// Options control how a graph is written.
type Options struct {
	Format   Format
	Prefixes map[string]string
	// SplitBytes, when positive, splits output into parts of at most this
	// many bytes. A single subject block larger than the limit gets a part of
	// its own.
	SplitBytes int64
	// Logger reports removed stale outputs; nil uses slog.Default().
	Logger *slog.Logger
}

// Write serializes triples to path and returns the files it created. Every
// file is written to a temporary name in the destination directory and only
// renamed into place once all files were written, so a failed write leaves
// no partial artifact and the previous output untouched. After a successful
// write, outputs of earlier runs that this run did not produce (the unsplit
// path or numbered parts) are removed.
func Write(path string, triples []graph.Triple, opts Options) ([]string, error) {
	enc, err := NewEncoder(opts.Format, opts.Prefixes)
	if err != nil {
		return nil, err
	}

	var parts [][]byte
	if opts.SplitBytes > 0 {
		benc, ok := enc.(blockEncoder)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSplitUnsupported, opts.Format)
		}
		parts = splitBlocks(benc, triples, opts.SplitBytes)
	} else {
		var buf bytes.Buffer
		if err := enc.Encode(&buf, triples); err != nil {
			return nil, err
		}
		parts = [][]byte{buf.Bytes()}
	}

	targets := []string{path}
	if len(parts) > 1 {
		targets = PartPaths(path, len(parts))
	}
	if err := commit(targets, parts); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stale, err := staleOutputs(path, targets)
	if err != nil {
		logger.Warn("Failed to list earlier outputs", "path", path, "error", err)
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			logger.Warn("Failed to remove stale output", "path", p, "error", err)
			continue
		}
		logger.Info("Removed stale output", "path", p)
	}
	return targets, nil
}

// staleOutputs lists the files beside path that an earlier run may have
// written (path itself or any "stem.part-NNN.ext") and that are not targets.
func staleOutputs(path string, targets []string) ([]string, error) {
	path = filepath.Clean(path)
	keep := make(map[string]bool, len(targets))
	for _, t := range targets {
		keep[filepath.Clean(t)] = true
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	partPrefix := strings.TrimSuffix(filepath.Base(path), ext) + ".part-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		candidate := filepath.Join(dir, name)
		if keep[candidate] {
			continue
		}
		if candidate == path || isPartName(name, partPrefix, ext) {
			stale = append(stale, candidate)
		}
	}
	return stale, nil
}

func isPartName(name, prefix, ext string) bool {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return false
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
	if len(num) < 3 {
		return false
	}
	for _, c := range num {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// PartPaths returns the names of n numbered parts of path:
// "out.ttl" becomes "out.part-001.ttl", "out.part-002.ttl" and so on.
func PartPaths(path string, n int) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s.part-%03d%s", stem, i+1, ext)
	}
	return paths
}

// splitBlocks packs subject blocks into parts that each repeat the header.
func splitBlocks(enc blockEncoder, triples []graph.Triple, limit int64) [][]byte {
	header := enc.header()
	var (
		parts   [][]byte
		current bytes.Buffer
		blocks  int
	)
	flush := func() {
		parts = append(parts, bytes.Clone(current.Bytes()))
		current.Reset()
		blocks = 0
	}

	current.Write(header)
	for _, run := range subjectRuns(triples) {
		block := enc.block(run)
		if blocks > 0 && int64(current.Len()+len(block)) > limit {
			flush()
			current.Write(header)
		}
		current.Write(block)
		blocks++
	}
	flush()
	return parts
}

// commit writes every part to a temporary file beside its target and then
// renames them all into place. Existing targets are moved aside first and
// restored if any step fails, so either every target is replaced or none is.
func commit(targets []string, parts [][]byte) error {
	temps := make([]string, 0, len(parts))
	for i, data := range parts {
		tmp, err := writeTemp(targets[i], data)
		if err != nil {
			removeAll(temps)
			return err
		}
		temps = append(temps, tmp)
	}

	// backups[i] is the moved-aside previous target, or "" if there was none.
	backups := make([]string, len(targets))
	installed := 0
	rollback := func() {
		for i := installed - 1; i >= 0; i-- {
			os.Remove(targets[i])
		}
		for i, b := range backups {
			if b != "" {
				os.Rename(b, targets[i])
			}
		}
		removeAll(temps)
	}

	for i, target := range targets {
		info, err := os.Lstat(target)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			rollback()
			return fmt.Errorf("stat %s: %w", target, err)
		}
		if info.IsDir() {
			rollback()
			return fmt.Errorf("output %s is a directory", target)
		}
		backup := temps[i] + ".prev"
		if err := os.Rename(target, backup); err != nil {
			rollback()
			return fmt.Errorf("move aside %s: %w", target, err)
		}
		backups[i] = backup
	}

	for i, tmp := range temps {
		if err := os.Rename(tmp, targets[i]); err != nil {
			rollback()
			return fmt.Errorf("rename %s: %w", targets[i], err)
		}
		installed++
	}
	removeAll(backups)
	return nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}

func writeTemp(target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", target, err)
	}
	name := f.Name()
	merr := f.Chmod(0o644)
	_, werr := f.Write(data)
	serr := f.Sync()
	cerr := f.Close()
	if err := errors.Join(merr, werr, serr, cerr); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return name, nil
}
