package mapping

import (
	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/source"
	"github.com/c360studio/semmap/vocabulary"
)

var rdfType = graph.NewIRI(vocabulary.RDFType)

// Result is what one row contributes.
type Result struct {
	Subject graph.IRI
	// Triples starts with the type assertion, followed by column triples in
	// rule order.
	Triples  []graph.Triple
	Warnings []*CoercionWarning
}

// Empty reports whether the row produced nothing beyond its type assertion.
func (r Result) Empty() bool { return len(r.Triples) <= 1 }

// Processor applies a mapping's table rules to rows.
type Processor struct {
	resolver *Resolver
}

// NewProcessor creates a processor for m.
func NewProcessor(m *config.Mapping) *Processor {
	return &Processor{resolver: NewResolver(m.Prefixes)}
}

// Process maps one row of table. When the subject cannot be built it returns
// a *CoercionWarning of kind WarnSubject and the row contributes nothing.
func (p *Processor) Process(table *config.Table, row source.Row) (Result, error) {
	subject, err := BuildSubject(table.Subject, row)
	if err != nil {
		return Result{}, &CoercionWarning{
			Kind:  WarnSubject,
			Table: table.Name,
			Row:   row.Index,
			Line:  row.Line,
			Err:   err,
		}
	}

	res := Result{Subject: subject}
	res.Triples = append(res.Triples, graph.NewTriple(subject, rdfType, graph.NewIRI(table.Type)))
	for _, col := range table.Columns {
		raw, _ := row.Get(col.Name)
		terms, warnings := p.resolver.Resolve(col, raw)
		for _, w := range warnings {
			w.Table = table.Name
			w.Row = row.Index
			w.Line = row.Line
		}
		res.Warnings = append(res.Warnings, warnings...)

		predicate := graph.NewIRI(col.Predicate)
		for _, term := range terms {
			res.Triples = append(res.Triples, graph.NewTriple(subject, predicate, term))
		}
	}
	return res, nil
}
