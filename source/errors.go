package source

import (
	"errors"
	"fmt"
)

// ErrInvalidUTF8 marks a row whose cells are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 encoding")

// MalformedRowError reports a row that could not be parsed against its
// table's header. It is recoverable: the reader has already moved past the
// row.
type MalformedRowError struct {
	Table string
	File  string
	// Row is the 1-based data row index within the table.
	Row int
	// Line is the 1-based line in File where the row starts.
	Line int
	Err  error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("table %s: malformed row %d (%s:%d): %v", e.Table, e.Row, e.File, e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// FatalInputError reports a table that became unreadable. The run cannot
// continue.
type FatalInputError struct {
	Table string
	File  string
	Err   error
}

func (e *FatalInputError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s: %s: %v", e.Table, e.File, e.Err)
}

func (e *FatalInputError) Unwrap() error { return e.Err }
