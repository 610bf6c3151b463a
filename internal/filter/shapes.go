package filter

// Shape detection over raw input is an ordered sequence of structural
// predicates. Callers must check in this order:
//
//  1. IsAttributeFilterShape
//  2. IsGroupShape
//  3. IsEntityFilterShape
//
// The predicates are mutually exclusive when evaluated in that order; a raw
// object that survives all three is not a filter at all.

// Metadata keys (filterId/filterLabel/logicalOp) are carried through
// untouched and never treated as attribute names. Groups additionally accept
// the short id/label spellings; entity filters do not, since "id" and
// "label" are ordinary attribute names there.

// groupKeys are the branch names of a Group.
var groupKeys = map[string]bool{
	"and": true,
	"or":  true,
	"not": true,
}

// IsAttributeFilterShape reports whether raw is an AttributeFilter: an object
// with an "attribute" string key.
func IsAttributeFilterShape(raw map[string]any) bool {
	attr, ok := raw["attribute"]
	if !ok {
		return false
	}
	_, isString := attr.(string)
	return isString
}

// IsGroupShape reports whether raw is a Group: an object exposing at least
// one of the and/or/not branch keys.
func IsGroupShape(raw map[string]any) bool {
	for k := range raw {
		if groupKeys[k] {
			return true
		}
	}
	return false
}

// IsEntityFilterShape reports whether raw is an EntityFilter: any object that
// is neither an AttributeFilter nor a Group. Every non-metadata key is then
// an attribute name.
func IsEntityFilterShape(raw map[string]any) bool {
	return !IsAttributeFilterShape(raw) && !IsGroupShape(raw)
}
