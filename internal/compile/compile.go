// Package compile walks the canonical filter tree and emits a parenthesized
// boolean expression string.
//
// The compiler owns no persistence knowledge: attribute references and
// per-operator fragment functions are injected by the persistence
// collaborator at compile time, and the output expression is handed back
// verbatim. Compilation is a pure computation over its arguments; concurrent
// callers need no coordination.
package compile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/operator"
)

// AttrRefs maps attribute names to the opaque reference tokens the operator
// functions consume.
type AttrRefs map[string]any

// OpFunc produces one expression fragment for an attribute reference and its
// operand values. For array-shaped operators it is invoked once per element;
// for ranges it receives the from and to values.
type OpFunc func(ref any, values ...any) string

// OpFuncs maps core operator names to fragment producers.
type OpFuncs map[string]OpFunc

// UnknownAttributeError reports an attribute absent from the injected
// attribute-reference map.
type UnknownAttributeError struct {
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Attribute)
}

// UnsupportedOperatorError reports a core operator with no fragment function
// in the injected operator map.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported by the expression surface", e.Operator)
}

// Compiler compiles canonical filter trees against one attribute/operator
// surface. Safe for concurrent use; it holds only the injected read-only
// maps.
type Compiler struct {
	attrs AttrRefs
	ops   OpFuncs
}

// New creates a Compiler over the supplied expression surface.
func New(attrs AttrRefs, ops OpFuncs) *Compiler {
	return &Compiler{attrs: attrs, ops: ops}
}

// Compile emits the boolean expression for a canonical filter node. An
// entirely empty filter compiles to "", which callers must treat as "no
// filter", never as "match nothing".
func (c *Compiler) Compile(node filter.Node) (string, error) {
	switch n := node.(type) {
	case *filter.AttributeFilter:
		return c.compileAttribute(n.Attribute, n.Ops, n.LogicalOp)
	case *filter.EntityFilter:
		return c.compileEntity(n)
	case *filter.Group:
		return c.compileGroup(n)
	default:
		return "", &filter.InvalidShapeError{Detail: fmt.Sprintf("unsupported node type %T", node)}
	}
}

// compileAttribute emits one fragment per operator key and joins them with
// the filter's logical operator. A single fragment is returned bare; only
// multi-fragment results are parenthesized.
func (c *Compiler) compileAttribute(attr string, ops map[string]any, logicalOp string) (string, error) {
	ref, ok := c.attrs[attr]
	if !ok {
		return "", &UnknownAttributeError{Attribute: attr}
	}

	opKeys := make([]string, 0, len(ops))
	for op := range ops {
		opKeys = append(opKeys, op)
	}
	sort.Strings(opKeys)

	var fragments []string
	for _, op := range opKeys {
		frag, err := c.compileOperator(ref, op, ops[op])
		if err != nil {
			return "", err
		}
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}

	return joinFragments(fragments, logicalToken(logicalOp)), nil
}

// compileOperator emits the fragment(s) for one operator/value pair.
func (c *Compiler) compileOperator(ref any, op string, value any) (string, error) {
	fn, ok := c.ops[op]
	if !ok {
		return "", &UnsupportedOperatorError{Operator: op}
	}

	switch {
	case operator.IsArrayShaped(op):
		return c.compileArrayOperator(ref, op, fn, value)

	case op == operator.Bt:
		pair, err := filter.NormalizeRange(value)
		if err != nil {
			return "", err
		}
		from, err := c.extract(pair[0])
		if err != nil {
			return "", err
		}
		to, err := c.extract(pair[1])
		if err != nil {
			return "", err
		}
		return fn(ref, filter.Coerce(from, op), filter.Coerce(to, op)), nil

	case op == operator.IsNull, op == operator.IsEmpty:
		v, err := c.extract(value)
		if err != nil {
			return "", err
		}
		return fn(ref, truthy(v)), nil

	default:
		v, err := c.extract(value)
		if err != nil {
			return "", err
		}
		return fn(ref, filter.Coerce(v, op)), nil
	}
}

// compileArrayOperator expands an array-shaped operator to one fragment per
// element. Inclusion checks (in, containsSome) are satisfied by any match
// and join with OR; exclusion and all-of checks (nin, notContains, contains)
// must hold for every element and join with AND.
func (c *Compiler) compileArrayOperator(ref any, op string, fn OpFunc, value any) (string, error) {
	elems := filter.ToArray(value)
	if len(elems) == 0 {
		return "", nil
	}

	token := "AND"
	if op == operator.In || op == operator.ContainsSome {
		token = "OR"
	}

	fragments := make([]string, 0, len(elems))
	for _, elem := range elems {
		v, err := c.extract(elem)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, fn(ref, v))
	}

	return joinFragments(fragments, token), nil
}

// compileEntity compiles each attribute's operator map and joins the
// per-attribute fragments with the entity's logical operator. An entity with
// no attribute maps (metadata only) compiles to "".
func (c *Compiler) compileEntity(ef *filter.EntityFilter) (string, error) {
	attrs := make([]string, 0, len(ef.Attributes))
	for attr := range ef.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	var fragments []string
	for _, attr := range attrs {
		frag, err := c.compileAttribute(attr, ef.Attributes[attr], filter.LogicalAnd)
		if err != nil {
			return "", err
		}
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}

	return joinFragments(fragments, logicalToken(ef.LogicalOp)), nil
}

// compileGroup compiles each branch, drops empty results, and joins the
// surviving branch fragments with AND. The not branch negates each of its
// fragments conjunctively.
func (c *Compiler) compileGroup(g *filter.Group) (string, error) {
	var branches []string

	andFrag, err := c.compileBranch(g.And, "AND", false)
	if err != nil {
		return "", err
	}
	if andFrag != "" {
		branches = append(branches, andFrag)
	}

	orFrag, err := c.compileBranch(g.Or, "OR", false)
	if err != nil {
		return "", err
	}
	if orFrag != "" {
		branches = append(branches, orFrag)
	}

	notFrag, err := c.compileBranch(g.Not, "AND", true)
	if err != nil {
		return "", err
	}
	if notFrag != "" {
		branches = append(branches, notFrag)
	}

	return joinFragments(branches, "AND"), nil
}

func (c *Compiler) compileBranch(nodes []filter.Node, token string, negate bool) (string, error) {
	var fragments []string
	for _, n := range nodes {
		frag, err := c.Compile(n)
		if err != nil {
			return "", err
		}
		if frag == "" {
			continue
		}
		if negate {
			frag = "NOT " + frag
		}
		fragments = append(fragments, frag)
	}
	return joinFragments(fragments, token), nil
}

// extract resolves complex values against the attribute-reference map.
func (c *Compiler) extract(value any) (any, error) {
	return filter.ExtractValue(value, func(name string) (any, error) {
		ref, ok := c.attrs[name]
		if !ok {
			return nil, &UnknownAttributeError{Attribute: name}
		}
		return ref, nil
	})
}

// joinFragments joins with the token, parenthesizing only when more than one
// fragment exists. A single fragment is returned bare.
func joinFragments(fragments []string, token string) string {
	switch len(fragments) {
	case 0:
		return ""
	case 1:
		return fragments[0]
	default:
		return "( " + strings.Join(fragments, " "+token+" ") + " )"
	}
}

func logicalToken(logicalOp string) string {
	if logicalOp == filter.LogicalOr {
		return "OR"
	}
	return "AND"
}

// truthy resolves the permissive truthiness used by isNull and isEmpty
// values, which may arrive as booleans or as query-string text.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "", "false", "0":
			return false
		default:
			return true
		}
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
