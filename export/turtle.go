package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/vocabulary"
)

// TurtleEncoder writes Turtle. Consecutive triples sharing a subject form one
// block, rdf:type is written as "a", and IRIs under a declared prefix are
// written as prefixed names when the local part needs no escaping.
type TurtleEncoder struct {
	prefixes map[string]string
}

// NewTurtleEncoder creates a Turtle encoder declaring prefixes.
func NewTurtleEncoder(prefixes map[string]string) *TurtleEncoder {
	return &TurtleEncoder{prefixes: prefixes}
}

// Encode writes the prefix declarations followed by every subject block.
func (e *TurtleEncoder) Encode(w io.Writer, triples []graph.Triple) error {
	return encodeBlocks(w, e, triples)
}

func (e *TurtleEncoder) header() []byte {
	if len(e.prefixes) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, prefix := range vocabulary.SortedPrefixes(e.prefixes) {
		fmt.Fprintf(&buf, "@prefix %s: <%s> .\n", prefix, graph.EscapeIRI(e.prefixes[prefix]))
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func (e *TurtleEncoder) block(run []graph.Triple) []byte {
	var buf bytes.Buffer
	buf.WriteString(e.iri(run[0].S.Value))
	buf.WriteString("\n")
	for i, t := range run {
		buf.WriteString("    ")
		if t.P.Value == vocabulary.RDFType {
			buf.WriteString("a")
		} else {
			buf.WriteString(e.iri(t.P.Value))
		}
		buf.WriteString(" ")
		buf.WriteString(e.term(t.O))
		if i == len(run)-1 {
			buf.WriteString(" .\n")
		} else {
			buf.WriteString(" ;\n")
		}
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func (e *TurtleEncoder) iri(value string) string {
	if name, ok := vocabulary.Compact(value, e.prefixes); ok {
		return name
	}
	return "<" + graph.EscapeIRI(value) + ">"
}

func (e *TurtleEncoder) term(t graph.Term) string {
	switch v := t.(type) {
	case graph.IRI:
		return e.iri(v.Value)
	case graph.Literal:
		quoted := `"` + graph.EscapeString(v.Lexical) + `"`
		switch {
		case v.Lang != "":
			return quoted + "@" + v.Lang
		case v.Datatype != "":
			return quoted + "^^" + e.iri(v.Datatype)
		default:
			return quoted
		}
	default:
		return t.String()
	}
}
