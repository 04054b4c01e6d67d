package config

import (
	"errors"
	"strings"
)

// ErrNoTables is returned for a document that declares no tables.
var ErrNoTables = errors.New("no tables declared")

// ConfigurationError reports a malformed or self-contradictory mapping
// document. Table, Column and Field locate the problem when known.
type ConfigurationError struct {
	Table  string
	Column string
	Field  string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration")
	if e.Table != "" {
		sb.WriteString(": table ")
		sb.WriteString(e.Table)
	}
	if e.Column != "" {
		sb.WriteString(": column ")
		sb.WriteString(e.Column)
	}
	if e.Field != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Field)
	}
	sb.WriteString(": ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func tableErr(table, field string, err error) error {
	return &ConfigurationError{Table: table, Field: field, Err: err}
}

func columnErr(table, column, field string, err error) error {
	return &ConfigurationError{Table: table, Column: column, Field: field, Err: err}
}
