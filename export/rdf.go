// Package export serializes mapped graphs as Turtle, N-Triples or JSON-LD.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semmap/graph"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format name.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrSplitUnsupported is returned when split output is requested for a
	// format that cannot be split into self-contained parts.
	ErrSplitUnsupported = errors.New("format cannot be split")
)

var formatAliases = map[string]Format{
	"turtle":    FormatTurtle,
	"ttl":       FormatTurtle,
	"ntriples":  FormatNTriples,
	"n-triples": FormatNTriples,
	"nt":        FormatNTriples,
	"jsonld":    FormatJSONLD,
	"json-ld":   FormatJSONLD,
}

// ParseFormat resolves a format name or common alias.
func ParseFormat(name string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Encoder serializes triples in graph order.
type Encoder interface {
	Encode(w io.Writer, triples []graph.Triple) error
}

// blockEncoder is implemented by line-oriented formats whose output is a
// header followed by independent subject blocks. Such output can be split at
// block boundaries.
type blockEncoder interface {
	Encoder
	header() []byte
	block(run []graph.Triple) []byte
}

// NewEncoder returns the encoder for format. Prefixes are used for compact
// names where the format supports them.
func NewEncoder(format Format, prefixes map[string]string) (Encoder, error) {
	switch format {
	case FormatTurtle:
		return NewTurtleEncoder(prefixes), nil
	case FormatNTriples:
		return NewNTriplesEncoder(), nil
	case FormatJSONLD:
		return NewJSONLDEncoder(prefixes), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// subjectRuns groups consecutive triples sharing a subject.
func subjectRuns(triples []graph.Triple) [][]graph.Triple {
	var runs [][]graph.Triple
	start := 0
	for i := 1; i <= len(triples); i++ {
		if i == len(triples) || triples[i].S != triples[start].S {
			runs = append(runs, triples[start:i])
			start = i
		}
	}
	return runs
}

func encodeBlocks(w io.Writer, enc blockEncoder, triples []graph.Triple) error {
	if _, err := w.Write(enc.header()); err != nil {
		return err
	}
	for _, run := range subjectRuns(triples) {
		if _, err := w.Write(enc.block(run)); err != nil {
			return err
		}
	}
	return nil
}
