package filter

import "fmt"

// InvalidShapeError reports a node that matches neither the AttributeFilter,
// EntityFilter, nor Group shape. Path locates the offending node within the
// raw input ("" for the root).
type InvalidShapeError struct {
	Path   string
	Detail string
}

func (e *InvalidShapeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid filter shape: %s", e.Detail)
	}
	return fmt.Sprintf("invalid filter shape at %q: %s", e.Path, e.Detail)
}

// InvalidOperatorError reports an operator string that normalizes to nothing
// in the core set.
type InvalidOperatorError struct {
	Attribute string
	Operator  string
}

func (e *InvalidOperatorError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("invalid operator %q", e.Operator)
	}
	return fmt.Sprintf("invalid operator %q on attribute %q", e.Operator, e.Attribute)
}

// InvalidRangeError reports a range value that is neither a two-element
// sequence nor a {from, to} object.
type InvalidRangeError struct {
	Value any
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range value %v: want a two-element sequence or a {from, to} object", e.Value)
}
