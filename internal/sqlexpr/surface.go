// Package sqlexpr provides a reference persistence expression surface for
// SQLite: quoted attribute references and per-operator fragment functions
// that the expression compiler invokes.
//
// Attribute references are gated on the entity schema so a filter can never
// name a column the schema does not declare. Fragments embed quoted literals
// rather than bind parameters because the engine's contract is a standalone
// boolean expression string.
package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/roach88/sift/internal/compile"
	"github.com/roach88/sift/internal/operator"
	"github.com/roach88/sift/internal/schema"
)

// Surface builds the attribute and operator maps for one entity.
type Surface struct {
	ent schema.Entity
}

// New creates a Surface over an entity schema.
func New(ent schema.Entity) *Surface {
	return &Surface{ent: ent}
}

// Compiler returns an expression compiler bound to this surface.
func (s *Surface) Compiler() *compile.Compiler {
	return compile.New(s.AttrRefs(), OpFuncs())
}

// AttrRefs returns quoted column references for every scalar attribute of
// the entity. Relation attributes are not directly filterable.
func (s *Surface) AttrRefs() compile.AttrRefs {
	refs := make(compile.AttrRefs, len(s.ent.Attributes))
	for name, attr := range s.ent.Attributes {
		if attr.Relation != nil {
			continue
		}
		refs[name] = QuoteIdent(name)
	}
	return refs
}

// OpFuncs returns the fragment producers for every core operator.
func OpFuncs() compile.OpFuncs {
	return compile.OpFuncs{
		operator.Eq:  binary("="),
		operator.Neq: binary("<>"),
		operator.Gt:  binary(">"),
		operator.Gte: binary(">="),
		operator.Lt:  binary("<"),
		operator.Lte: binary("<="),

		// Array-shaped operators receive one element per invocation; the
		// compiler joins the fragments.
		operator.In:  binary("="),
		operator.Nin: binary("<>"),

		operator.Bt: func(ref any, values ...any) string {
			return fmt.Sprintf("%v BETWEEN %s AND %s", ref, QuoteValue(values[0]), QuoteValue(values[1]))
		},

		operator.IsNull: func(ref any, values ...any) string {
			if boolArg(values) {
				return fmt.Sprintf("%v IS NULL", ref)
			}
			return fmt.Sprintf("%v IS NOT NULL", ref)
		},
		operator.IsEmpty: func(ref any, values ...any) string {
			if boolArg(values) {
				return fmt.Sprintf("%v = ''", ref)
			}
			return fmt.Sprintf("%v <> ''", ref)
		},

		operator.Contains:     like("%%%s%%", false),
		operator.ContainsSome: like("%%%s%%", false),
		operator.NotContains:  like("%%%s%%", true),
		operator.StartsWith:   like("%s%%", false),
		operator.EndsWith:     like("%%%s", false),

		operator.Like: func(ref any, values ...any) string {
			return fmt.Sprintf("%v LIKE %s", ref, QuoteValue(values[0]))
		},
	}
}

// QuoteIdent quotes an identifier for SQLite: "na""me".
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteValue renders a literal: strings single-quoted with '' doubling,
// numbers bare, booleans as 1/0, nil as NULL.
func QuoteValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int, int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%v", val)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

func binary(op string) compile.OpFunc {
	return func(ref any, values ...any) string {
		return fmt.Sprintf("%v %s %s", ref, op, QuoteValue(values[0]))
	}
}

// like builds a LIKE fragment with the value spliced into the given pattern.
// LIKE metacharacters in the value are escaped so user input matches
// literally.
func like(pattern string, negate bool) compile.OpFunc {
	return func(ref any, values ...any) string {
		text := escapeLike(fmt.Sprintf("%v", values[0]))
		frag := fmt.Sprintf("%v LIKE %s ESCAPE '\\'", ref, QuoteValue(fmt.Sprintf(pattern, text)))
		if negate {
			return strings.Replace(frag, " LIKE ", " NOT LIKE ", 1)
		}
		return frag
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func boolArg(values []any) bool {
	if len(values) == 0 {
		return true
	}
	b, ok := values[0].(bool)
	return !ok || b
}
