package vocabulary

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Datatype is a supported literal datatype with its lexical validator.
type Datatype struct {
	// Name is the short name used in mapping documents ("date").
	Name string
	// IRI is the full datatype IRI.
	IRI string

	validate func(string) error
}

// Validate checks lexical against the datatype's lexical space.
func (d *Datatype) Validate(lexical string) error {
	if d.validate == nil {
		return nil
	}
	if err := d.validate(lexical); err != nil {
		return fmt.Errorf("%q is not a valid xsd:%s: %w", lexical, d.Name, err)
	}
	return nil
}

var (
	integerPattern    = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalPattern    = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	doublePattern     = regexp.MustCompile(`^([+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?|[+-]?INF|NaN)$`)
	gYearPattern      = regexp.MustCompile(`^-?[0-9]{4,}(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	gYearMonthPattern = regexp.MustCompile(`^-?[0-9]{4,}-(0[1-9]|1[0-2])(Z|[+-][0-9]{2}:[0-9]{2})?$`)
)

var (
	dateLayouts     = []string{"2006-01-02", "2006-01-02Z07:00"}
	dateTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04:05Z07:00"}
	timeLayouts     = []string{"15:04:05", "15:04:05Z07:00"}
)

func patternValidator(re *regexp.Regexp) func(string) error {
	return func(s string) error {
		if !re.MatchString(s) {
			return fmt.Errorf("does not match %s", re.String())
		}
		return nil
	}
}

func layoutValidator(layouts []string) func(string) error {
	return func(s string) error {
		var lastErr error
		for _, layout := range layouts {
			_, err := time.Parse(layout, s)
			if err == nil {
				return nil
			}
			lastErr = err
		}
		return lastErr
	}
}

func validateBoolean(s string) error {
	switch s {
	case "true", "false", "1", "0":
		return nil
	}
	return fmt.Errorf("expected true, false, 1 or 0")
}

func validateAnyURI(s string) error {
	_, err := url.Parse(s)
	return err
}

var datatypes = []*Datatype{
	{Name: "string", IRI: XSD + "string"},
	{Name: "integer", IRI: XSD + "integer", validate: patternValidator(integerPattern)},
	{Name: "decimal", IRI: XSD + "decimal", validate: patternValidator(decimalPattern)},
	{Name: "double", IRI: XSD + "double", validate: patternValidator(doublePattern)},
	{Name: "boolean", IRI: XSD + "boolean", validate: validateBoolean},
	{Name: "date", IRI: XSD + "date", validate: layoutValidator(dateLayouts)},
	{Name: "dateTime", IRI: XSD + "dateTime", validate: layoutValidator(dateTimeLayouts)},
	{Name: "time", IRI: XSD + "time", validate: layoutValidator(timeLayouts)},
	{Name: "gYear", IRI: XSD + "gYear", validate: patternValidator(gYearPattern)},
	{Name: "gYearMonth", IRI: XSD + "gYearMonth", validate: patternValidator(gYearMonthPattern)},
	{Name: "anyURI", IRI: XSD + "anyURI", validate: validateAnyURI},
}

// LookupDatatype resolves a datatype tag given as short name, "xsd:" compact
// name or full IRI. It reports false for unsupported tags.
func LookupDatatype(tag string) (*Datatype, bool) {
	tag = strings.TrimSpace(tag)
	name := strings.TrimPrefix(tag, "xsd:")
	name = strings.TrimPrefix(name, XSD)
	for _, dt := range datatypes {
		if dt.Name == name {
			return dt, true
		}
	}
	return nil, false
}

// DatatypeNames lists the supported short names in declaration order.
func DatatypeNames() []string {
	names := make([]string, len(datatypes))
	for i, dt := range datatypes {
		names[i] = dt.Name
	}
	return names
}
