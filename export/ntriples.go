package export

import (
	"bytes"
	"io"

	"github.com/c360studio/semmap/graph"
)

// NTriplesEncoder writes one canonical statement per line.
type NTriplesEncoder struct{}

// NewNTriplesEncoder creates a new N-Triples encoder.
func NewNTriplesEncoder() *NTriplesEncoder {
	return &NTriplesEncoder{}
}

// Encode writes every triple in order.
func (e *NTriplesEncoder) Encode(w io.Writer, triples []graph.Triple) error {
	return encodeBlocks(w, e, triples)
}

func (e *NTriplesEncoder) header() []byte { return nil }

func (e *NTriplesEncoder) block(run []graph.Triple) []byte {
	var buf bytes.Buffer
	for _, t := range run {
		buf.WriteString(t.String())
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
