package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semmap/graph"
	"github.com/piprate/json-gold/ld"
)

// JSONLDEncoder writes a compacted JSON-LD document. The graph is converted
// from N-Quads and compacted against a context holding the declared prefixes.
type JSONLDEncoder struct {
	prefixes map[string]string
}

// NewJSONLDEncoder creates a JSON-LD encoder.
func NewJSONLDEncoder(prefixes map[string]string) *JSONLDEncoder {
	return &JSONLDEncoder{prefixes: prefixes}
}

// Encode writes the compacted document, indented, followed by a newline.
func (e *JSONLDEncoder) Encode(w io.Writer, triples []graph.Triple) error {
	var nquads strings.Builder
	for _, t := range triples {
		nquads.WriteString(t.String())
		nquads.WriteString("\n")
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	expanded, err := proc.FromRDF(nquads.String(), opts)
	if err != nil {
		return fmt.Errorf("jsonld: from rdf: %w", err)
	}

	context := make(map[string]any, len(e.prefixes))
	for prefix, ns := range e.prefixes {
		// JSON-LD has no empty term; such IRIs stay absolute.
		if prefix == "" {
			continue
		}
		context[prefix] = ns
	}
	compacted, err := proc.Compact(expanded, map[string]any{"@context": context}, ld.NewJsonLdOptions(""))
	if err != nil {
		return fmt.Errorf("jsonld: compact: %w", err)
	}

	data, err := json.MarshalIndent(compacted, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonld: marshal: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
