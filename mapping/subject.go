package mapping

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/c360studio/semmap/config"
	"github.com/c360studio/semmap/graph"
	"github.com/c360studio/semmap/source"
	"github.com/c360studio/semmap/vocabulary"
	"github.com/google/uuid"
)

// hashSeparator joins the values of hash subject columns. It cannot occur in
// a well-formed CSV value without quoting.
const hashSeparator = "\x1f"

// BuildSubject derives the subject IRI of row. The result depends on row
// content only, so re-running a mapping yields the same subjects.
func BuildSubject(rule config.Subject, row source.Row) (graph.IRI, error) {
	var (
		iri string
		err error
	)
	switch rule.Kind {
	case config.SubjectTemplate:
		iri, err = rule.Template.Expand(row.Get)
	case config.SubjectColumn:
		iri, err = columnSubject(rule, row)
	case config.SubjectHash:
		iri, err = hashSubject(rule, row)
	default:
		err = fmt.Errorf("unknown subject rule %s", rule.Kind)
	}
	if err != nil {
		return graph.IRI{}, err
	}
	if err := graph.ValidateIRI(iri); err != nil {
		return graph.IRI{}, err
	}
	return graph.NewIRI(iri), nil
}

func columnSubject(rule config.Subject, row source.Row) (string, error) {
	raw, _ := row.Get(rule.Column)
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("subject column %s is empty", rule.Column)
	}
	if rule.Extract != nil {
		id, ok := vocabulary.LastIdentifier(rule.Extract, value)
		if !ok {
			return "", fmt.Errorf("no identifier in subject column %s", rule.Column)
		}
		value = id
	}
	if err := graph.ValidateFragment(value); err != nil {
		return "", err
	}
	if rule.Template != nil {
		return rule.Template.Expand(func(string) (string, bool) { return value, true })
	}
	return rule.Namespace + url.PathEscape(value), nil
}

// hashSubject names the row by a version 5 UUID over the hash column values,
// scoped to the rule's namespace.
func hashSubject(rule config.Subject, row source.Row) (string, error) {
	values := make([]string, len(rule.Hash))
	empty := true
	for i, column := range rule.Hash {
		raw, _ := row.Get(column)
		values[i] = strings.TrimSpace(raw)
		if values[i] != "" {
			empty = false
		}
	}
	if empty {
		return "", errors.New("every hash column is empty")
	}
	scope := uuid.NewSHA1(uuid.NameSpaceURL, []byte(rule.Namespace))
	id := uuid.NewSHA1(scope, []byte(strings.Join(values, hashSeparator)))
	return rule.Namespace + id.String(), nil
}
