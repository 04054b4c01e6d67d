// Package source reads tabular datasets row by row.
//
// A table is one or more delimited text files sharing a header row. Readers
// are pull-style and restartable: opening the same files again yields the
// same rows in the same order.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/viant/afs"
)

const utf8BOM = "\ufeff"

// Spec identifies the files of one table.
type Spec struct {
	// Name is the table name used in diagnostics.
	Name string
	// Files are read in order; every file must start with the same header.
	Files []string
	// Delimiter separates fields; zero means ','.
	Delimiter rune
}

// Row is one record of a table. Rows are values; nothing mutates them after
// the reader returns them.
type Row struct {
	Table string
	File  string
	// Index is the 1-based data row index across all files of the table.
	Index int
	// Line is the 1-based line where the record starts.
	Line   int
	Values map[string]string
}

// Get returns the raw value of column and whether the column exists.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Reader iterates over the rows of a table.
type Reader struct {
	ctx    context.Context
	fs     afs.Service
	spec   Spec
	header []string

	fileIdx int
	file    io.ReadCloser
	lines   *lineBuffer
	csv     *csv.Reader
	// offset is added to csv line numbers once parsing restarted mid-file.
	offset int
	index  int
	err    error
}

// Open opens the first file of spec and reads its header.
func Open(ctx context.Context, fs afs.Service, spec Spec) (*Reader, error) {
	if len(spec.Files) == 0 {
		return nil, &FatalInputError{Table: spec.Name, Err: errors.New("no files")}
	}
	if fs == nil {
		fs = afs.New()
	}
	r := &Reader{ctx: ctx, fs: fs, spec: spec, fileIdx: -1}
	if err := r.nextFile(); err != nil {
		return nil, err
	}
	return r, nil
}

// Header returns the column names of the table.
func (r *Reader) Header() []string { return r.header }

// Next returns the next row. It returns io.EOF after the last row, a
// *MalformedRowError for a row that could not be parsed (iteration may
// continue), and a *FatalInputError when the input became unreadable
// (iteration ends).
func (r *Reader) Next() (Row, error) {
	if r.err != nil {
		return Row{}, r.err
	}
	for {
		if err := r.ctx.Err(); err != nil {
			return Row{}, r.fail(err)
		}
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			if r.fileIdx+1 >= len(r.spec.Files) {
				r.closeFile()
				r.err = io.EOF
				return Row{}, io.EOF
			}
			if err := r.nextFile(); err != nil {
				return Row{}, err
			}
			continue
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.index++
				malformed := &MalformedRowError{
					Table: r.spec.Name,
					File:  r.currentFile(),
					Row:   r.index,
					Line:  parseErr.StartLine + r.offset,
					Err:   parseErr.Err,
				}
				if r.quoteRanToEOF(parseErr) {
					r.restartAfter(parseErr.StartLine + r.offset)
				}
				return Row{}, malformed
			}
			return Row{}, r.fail(err)
		}

		r.index++
		line, _ := r.csv.FieldPos(0)
		line += r.offset
		r.lines.discardBefore(line)
		values := make(map[string]string, len(r.header))
		for i, column := range r.header {
			if !utf8.ValidString(record[i]) {
				return Row{}, &MalformedRowError{
					Table: r.spec.Name,
					File:  r.currentFile(),
					Row:   r.index,
					Line:  line,
					Err:   fmt.Errorf("column %s: %w", column, ErrInvalidUTF8),
				}
			}
			values[column] = record[i]
		}
		return Row{
			Table:  r.spec.Name,
			File:   r.currentFile(),
			Index:  r.index,
			Line:   line,
			Values: values,
		}, nil
	}
}

// Close releases the open file.
func (r *Reader) Close() error {
	if r.err == nil {
		r.err = errors.New("source: reader closed")
	}
	return r.closeFile()
}

func (r *Reader) currentFile() string {
	if r.fileIdx < 0 || r.fileIdx >= len(r.spec.Files) {
		return ""
	}
	return r.spec.Files[r.fileIdx]
}

func (r *Reader) fail(err error) error {
	r.closeFile()
	var fatal *FatalInputError
	if errors.As(err, &fatal) {
		r.err = fatal
		return fatal
	}
	r.err = &FatalInputError{Table: r.spec.Name, File: r.currentFile(), Err: err}
	return r.err
}

func (r *Reader) closeFile() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) nextFile() error {
	r.closeFile()
	r.fileIdx++
	location := r.spec.Files[r.fileIdx]

	rc, err := r.fs.OpenURL(r.ctx, location)
	if err != nil {
		return r.fail(fmt.Errorf("open: %w", err))
	}
	r.file = rc
	r.lines = &lineBuffer{r: rc, first: 1}
	r.csv = newCSVReader(r.lines, r.spec.Delimiter)
	r.offset = 0

	header, err := readHeader(r.csv)
	if err != nil {
		return r.fail(err)
	}
	if r.header == nil {
		r.header = header
		return nil
	}
	if !equalHeaders(r.header, header) {
		return r.fail(fmt.Errorf("header %v differs from %v", header, r.header))
	}
	return nil
}

// quoteRanToEOF reports whether err is an opening quote that was never
// closed, so the csv reader consumed every remaining line of the file.
func (r *Reader) quoteRanToEOF(err *csv.ParseError) bool {
	return errors.Is(err.Err, csv.ErrQuote) &&
		err.Line > err.StartLine &&
		r.lines.eof &&
		err.Line+r.offset >= r.lines.lastLine()
}

// restartAfter resumes parsing at the physical line following line.
func (r *Reader) restartAfter(line int) {
	rest := r.lines.from(line + 1)
	r.lines = &lineBuffer{r: bytes.NewReader(rest), first: line + 1}
	r.csv = newCSVReader(r.lines, r.spec.Delimiter)
	r.csv.FieldsPerRecord = len(r.header)
	r.offset = line
}

// lineBuffer keeps the raw bytes read from a file, starting at line first,
// so parsing can resume after a record that swallowed the rest of the file.
type lineBuffer struct {
	r     io.Reader
	buf   []byte
	first int
	eof   bool
}

func (b *lineBuffer) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.buf = append(b.buf, p[:n]...)
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

// discardBefore drops buffered lines numbered below line.
func (b *lineBuffer) discardBefore(line int) {
	for b.first < line {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			return
		}
		b.buf = b.buf[i+1:]
		b.first++
	}
}

// from returns the buffered bytes starting at line.
func (b *lineBuffer) from(line int) []byte {
	data := b.buf
	for n := b.first; n < line; n++ {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return nil
		}
		data = data[i+1:]
	}
	return data
}

// lastLine is the number of the last line holding any byte.
func (b *lineBuffer) lastLine() int {
	return b.first + bytes.Count(bytes.TrimSuffix(b.buf, []byte("\n")), []byte("\n"))
}

// ReadHeader opens location and returns its header row.
func ReadHeader(ctx context.Context, fs afs.Service, location string, delimiter rune) ([]string, error) {
	if fs == nil {
		fs = afs.New()
	}
	rc, err := fs.OpenURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	defer rc.Close()
	return readHeader(newCSVReader(rc, delimiter))
}

func newCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	cr := csv.NewReader(bufio.NewReader(r))
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	// The header fixes the field count for every following record.
	cr.FieldsPerRecord = 0
	return cr
}

func readHeader(cr *csv.Reader) ([]string, error) {
	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if !utf8.ValidString(name) {
			return nil, fmt.Errorf("header column %d: %w", i+1, ErrInvalidUTF8)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = true
		header[i] = name
	}
	return header, nil
}

func equalHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
