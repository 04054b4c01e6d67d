package graph

import (
	"errors"
)

// Triple is an RDF statement. Subjects are always IRIs in mapped output.
type Triple struct {
	S IRI
	P IRI
	O Term
}

// NewTriple returns a triple.
func NewTriple(subject, predicate IRI, object Term) Triple {
	return Triple{S: subject, P: predicate, O: object}
}

// Validate reports missing statement fields.
func (t Triple) Validate() error {
	if t.S.Value == "" || t.P.Value == "" || t.O == nil {
		return errors.New("graph: missing statement fields")
	}
	return nil
}

// Key returns the canonical N-Triples form without the terminating dot.
// Two triples are equal exactly when their keys are equal.
func (t Triple) Key() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String()
}

// String returns the N-Triples statement.
func (t Triple) String() string {
	return t.Key() + " ."
}
