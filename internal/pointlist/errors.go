package pointlist

import (
	"fmt"
	"strings"
)

// ValidationError reports unusable input: an empty selection, a parameter out
// of range, or nothing to write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ParseError reports a malformed or incomplete point list document.
type ParseError struct {
	Source  string // file or upload name, may be empty
	Element string // offending element, e.g. "Point00003"
	Field   string // offending field, e.g. "dXPosition"
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse")
	if e.Source != "" {
		b.WriteString(" ")
		b.WriteString(e.Source)
	}
	if e.Element != "" {
		b.WriteString(": ")
		b.WriteString(e.Element)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// GeometryError reports that points could not be placed in a well within the
// candidate draw budget.
type GeometryError struct {
	Well        string
	Points      int
	MinDistance float64
	Diameter    float64
	Accepted    int
	Draws       int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: well %s: placed %d of %d points (min distance %g um, well %g um) after %d draws",
		e.Well, e.Accepted, e.Points, e.MinDistance, e.Diameter, e.Draws)
}
