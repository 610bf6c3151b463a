// Package operator defines the core comparison/membership operator vocabulary
// and the alias table that maps every accepted input spelling onto it.
//
// The table is populated at package load and never mutated afterwards, so all
// functions in this package are safe for concurrent use without coordination.
// Request-scoped code must never register operators; the vocabulary is closed.
package operator

// Core operators. These are the only names the expression compiler
// understands; everything else is an alias resolved by Normalize.
const (
	Eq           = "eq"
	Neq          = "neq"
	Gt           = "gt"
	Gte          = "gte"
	Lt           = "lt"
	Lte          = "lte"
	In           = "in"
	Nin          = "nin"
	Bt           = "bt"
	IsNull       = "isNull"
	IsEmpty      = "isEmpty"
	Contains     = "contains"
	NotContains  = "notContains"
	ContainsSome = "containsSome"
	Like         = "like"
	StartsWith   = "startsWith"
	EndsWith     = "endsWith"
)

// core is the closed set of operators the compiler dispatches on.
var core = map[string]bool{
	Eq: true, Neq: true, Gt: true, Gte: true, Lt: true, Lte: true,
	In: true, Nin: true, Bt: true, IsNull: true, IsEmpty: true,
	Contains: true, NotContains: true, ContainsSome: true,
	Like: true, StartsWith: true, EndsWith: true,
}

// aliases maps every accepted spelling to its core operator.
// Core names are deliberately absent: Normalize passes them through.
var aliases = map[string]string{
	// eq
	"equalTo": Eq, "equals": Eq, "equal": Eq, "is": Eq, "==": Eq, "===": Eq, "=": Eq,
	// neq
	"notEqualTo": Neq, "notEquals": Neq, "notEqual": Neq, "isNot": Neq, "ne": Neq, "!=": Neq, "!==": Neq, "<>": Neq,
	// gt / gte
	"greaterThan": Gt, "moreThan": Gt, ">": Gt,
	"greaterThanOrEqualTo": Gte, "greaterOrEqual": Gte, "atLeast": Gte, ">=": Gte,
	// lt / lte
	"lessThan": Lt, "<": Lt,
	"lessThanOrEqualTo": Lte, "lessOrEqual": Lte, "atMost": Lte, "<=": Lte,
	// in / nin
	"anyOf": In, "oneOf": In, "includedIn": In,
	"noneOf": Nin, "notIn": Nin, "excludedFrom": Nin,
	// bt
	"between": Bt, "btw": Bt, "inRange": Bt,
	// isNull / isEmpty
	"null": IsNull, "isNil": IsNull,
	"empty": IsEmpty,
	// contains family
	"includes": Contains, "containsAll": Contains,
	"excludes": NotContains, "doesNotContain": NotContains,
	"containsAny": ContainsSome, "includesSome": ContainsSome,
	// string matching
	"matches": Like, "~": Like,
	"beginsWith": StartsWith, "prefix": StartsWith,
	"suffix": EndsWith,
}

// numeric operators trigger numeric coercion of string values.
var numeric = map[string]bool{
	Gt: true, Gte: true, Lt: true, Lte: true, Bt: true,
}

// arrayShaped operators consume a list of values and expand to one
// fragment per element at compile time.
var arrayShaped = map[string]bool{
	In: true, Nin: true, Contains: true, NotContains: true, ContainsSome: true,
}

// Normalize maps an alias to its core operator. Core operators map to
// themselves. Unrecognized strings pass through unchanged; callers that need
// a definitive answer must follow up with IsValid.
func Normalize(op string) string {
	if c, ok := aliases[op]; ok {
		return c
	}
	return op
}

// IsCore reports whether op is a core operator (no alias resolution).
func IsCore(op string) bool {
	return core[op]
}

// IsValid reports whether op is a core operator or a recognized alias.
func IsValid(op string) bool {
	return core[Normalize(op)]
}

// IsNumeric reports whether op (alias or core) compares numerically.
func IsNumeric(op string) bool {
	return numeric[Normalize(op)]
}

// IsArrayShaped reports whether op (alias or core) consumes a list of values.
func IsArrayShaped(op string) bool {
	return arrayShaped[Normalize(op)]
}

// Aliases returns every accepted spelling of a core operator, the core form
// included. Intended for validation and introspection, not the hot path.
// Returns nil when core is not a core operator.
func Aliases(coreOp string) []string {
	if !core[coreOp] {
		return nil
	}
	out := []string{coreOp}
	for alias, c := range aliases {
		if c == coreOp {
			out = append(out, alias)
		}
	}
	return out
}
