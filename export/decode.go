package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/c360studio/semmap/graph"
	"github.com/geoknoesis/rdf-go/rdf"
)

var decodeFormats = map[Format]rdf.Format{
	FormatTurtle:   rdf.FormatTurtle,
	FormatNTriples: rdf.FormatNTriples,
	FormatJSONLD:   rdf.FormatJSONLD,
}

// Decode parses a serialized graph back into triples in document order.
// It reads output written by this package, or any IRI and literal only
// graph in a supported format.
func Decode(ctx context.Context, r io.Reader, format Format) ([]graph.Triple, error) {
	rf, ok := decodeFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	reader, err := rdf.NewReader(r, rf, rdf.OptContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	defer reader.Close()

	var triples []graph.Triple
	for {
		stmt, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return triples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
		t, err := graph.FromRDF(rdf.Triple{S: stmt.S, P: stmt.P, O: stmt.O})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
		triples = append(triples, t)
	}
}
