package graph

import (
	"fmt"

	"github.com/geoknoesis/rdf-go/rdf"
)

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

// RDF returns the term as an rdf-go IRI.
func (i IRI) RDF() rdf.IRI { return rdf.IRI{Value: i.Value} }

// RDF returns the term as an rdf-go literal.
func (l Literal) RDF() rdf.Literal {
	return rdf.Literal{Lexical: l.Lexical, Datatype: rdf.IRI{Value: l.Datatype}, Lang: l.Lang}
}

// RDF returns the triple in rdf-go's model.
func (t Triple) RDF() rdf.Triple {
	out := rdf.Triple{S: t.S.RDF(), P: t.P.RDF()}
	switch o := t.O.(type) {
	case IRI:
		out.O = o.RDF()
	case Literal:
		out.O = o.RDF()
	}
	return out
}

// FromRDF converts an rdf-go triple. Blank nodes and quoted triples have
// no counterpart in mapped output and are rejected. A literal typed
// xsd:string becomes a plain literal.
func FromRDF(t rdf.Triple) (Triple, error) {
	s, ok := t.S.(rdf.IRI)
	if !ok {
		return Triple{}, fmt.Errorf("graph: unsupported subject %s", termString(t.S))
	}
	out := Triple{S: IRI{Value: s.Value}, P: IRI{Value: t.P.Value}}
	switch o := t.O.(type) {
	case rdf.IRI:
		out.O = IRI{Value: o.Value}
	case rdf.Literal:
		switch {
		case o.Lang != "":
			out.O = LangLiteral(o.Lexical, o.Lang)
		case o.Datatype.Value == "" || o.Datatype.Value == xsdString:
			out.O = PlainLiteral(o.Lexical)
		default:
			out.O = TypedLiteral(o.Lexical, o.Datatype.Value)
		}
	default:
		return Triple{}, fmt.Errorf("graph: unsupported object %s", termString(t.O))
	}
	return out, nil
}

func termString(t rdf.Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
