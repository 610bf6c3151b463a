// Package filter defines the canonical filter tree — the normalized
// representation every input notation (query strings, hand-authored objects)
// is reduced to before compilation — together with the value extraction and
// coercion rules that govern filter values.
//
// The tree is a closed variant set: AttributeFilter, EntityFilter, and Group
// are the only Node implementations. Shape detection over raw input is an
// ordered sequence of structural predicates (see shapes.go); nothing else in
// the engine guesses at shapes.
package filter

// Logical connectives for combining fragments within a filter.
const (
	LogicalAnd = "and"
	LogicalOr  = "or"
)

// Node is the sealed interface for canonical filter tree nodes.
// Only AttributeFilter, EntityFilter, and Group implement it.
type Node interface {
	filterNode()
}

// AttributeFilter holds one or more operator/value pairs scoped to a single
// attribute. Operator keys are always core operators (aliases are resolved
// by Build); values are already shaped (arrays for array operators, [from,to]
// pairs for ranges).
type AttributeFilter struct {
	Attribute string
	LogicalOp string // LogicalAnd (default) or LogicalOr
	Ops       map[string]any
}

func (*AttributeFilter) filterNode() {}

// EntityFilter maps attribute names to per-attribute operator sets. It is
// sugar for a group of AttributeFilters combined with LogicalOp.
//
// FilterID and FilterLabel are carried through untouched for UI
// round-tripping; they never participate in compilation.
type EntityFilter struct {
	LogicalOp   string
	FilterID    string
	FilterLabel string
	Attributes  map[string]map[string]any
}

func (*EntityFilter) filterNode() {}

// Group combines child nodes under and/or/not branches. A Group with no
// populated branch compiles to an empty expression (vacuously true).
type Group struct {
	FilterID    string
	FilterLabel string
	And         []Node
	Or          []Node
	Not         []Node
}

func (*Group) filterNode() {}

// Empty reports whether the group has no populated branch.
func (g *Group) Empty() bool {
	return len(g.And) == 0 && len(g.Or) == 0 && len(g.Not) == 0
}

// ValueType tags how a complex filter value's Val is resolved at compile
// time.
type ValueType string

const (
	// ValueLiteral resolves Val as a constant. This is the default.
	ValueLiteral ValueType = "literal"

	// ValuePropRef resolves Val as the name of another attribute of the
	// same record, producing a reference token instead of a literal.
	ValuePropRef ValueType = "propRef"

	// ValueExpression marks Val as an unevaluated expression token such as
	// now(). Expression tokens are not interpreted: they pass through
	// literally with a logged warning.
	ValueExpression ValueType = "expression"
)

// ComplexValue is a filter value carrying provenance metadata. Val is always
// present when this shape is used; the bare-value form skips the wrapper
// entirely.
type ComplexValue struct {
	Val     any       `json:"val"`
	ValType ValueType `json:"valType,omitempty"`
	Label   string    `json:"label,omitempty"`
}

// Pagination describes result paging. It is purely descriptive: the engine
// never interprets the cursor encoding, it only carries the struct through.
type Pagination struct {
	Limit  int    `json:"limit,omitempty" yaml:"limit,omitempty"`
	Count  int    `json:"count,omitempty" yaml:"count,omitempty"`
	Pages  string `json:"pages,omitempty" yaml:"pages,omitempty"` // a number, or "all"
	Order  string `json:"order,omitempty" yaml:"order,omitempty"` // "asc" | "desc"
	Cursor string `json:"cursor,omitempty" yaml:"cursor,omitempty"`
}
