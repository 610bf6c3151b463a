// Package selection expands flat dotted attribute-selection paths (e.g.
// "admin.tenant.firstName") into the nested selection tree the
// record-hydration collaborator consumes, resolving cross-entity relation
// metadata along the way.
//
// Schema graphs can legitimately contain cycles (User references Group,
// Group references User), so expansion carries a per-descent-path visited
// set plus a hard depth ceiling. Cycle truncation is per-path, never a
// global abort: a branch that revisits an entity is marked and stopped,
// while sibling branches keep expanding.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sift/internal/schema"
)

// DefaultMaxDepth bounds relation expansion when the caller does not choose
// a ceiling. Deep enough for realistic hydration graphs, bounded enough
// that a cyclic registry can never blow the stack.
const DefaultMaxDepth = 5

// Registry is the read-only schema lookup the resolver consumes. The
// concrete schema.Registry satisfies it; tests use fakes.
type Registry interface {
	Has(entity string) bool
	Get(entity string) (schema.Entity, bool)
}

// Node is the sealed interface for selection tree nodes: either a Leaf
// (include this scalar attribute) or a Relation.
type Node interface {
	selectionNode()
}

// Leaf marks a scalar attribute for inclusion. It serializes as true.
type Leaf struct{}

func (Leaf) selectionNode() {}

// MarshalJSON implements json.Marshaler for Leaf.
func (Leaf) MarshalJSON() ([]byte, error) {
	return []byte("true"), nil
}

// Relation is a selection node that crosses into another entity's schema.
// SkippedDueToCycle marks nodes where expansion stopped because the target
// entity was already on the current descent path or the depth ceiling was
// reached.
type Relation struct {
	Entity            string                  `json:"entityName"`
	RelationType      schema.RelationType     `json:"relationType,omitempty"`
	Identifiers       []schema.IdentifierPair `json:"identifiers,omitempty"`
	Attributes        Tree                    `json:"attributes,omitempty"`
	SkippedDueToCycle bool                    `json:"skippedDueToCycle,omitempty"`
}

func (*Relation) selectionNode() {}

// Tree maps attribute names to their selection nodes.
type Tree map[string]Node

// RelatedEntityNotFoundError reports a relation whose target entity is
// missing from the schema registry.
type RelatedEntityNotFoundError struct {
	Entity    string
	Attribute string
}

func (e *RelatedEntityNotFoundError) Error() string {
	return fmt.Sprintf("related entity %q (via attribute %q) not found in schema registry", e.Entity, e.Attribute)
}

// Resolve expands paths against the origin entity's schema using
// DefaultMaxDepth.
func Resolve(reg Registry, origin string, paths []string) (Tree, error) {
	return ResolveDepth(reg, origin, paths, DefaultMaxDepth)
}

// ResolveDepth expands paths with an explicit relation-depth ceiling.
func ResolveDepth(reg Registry, origin string, paths []string, maxDepth int) (Tree, error) {
	ent, ok := reg.Get(origin)
	if !ok {
		return nil, &RelatedEntityNotFoundError{Entity: origin}
	}
	return resolveEntity(reg, ent, GroupPaths(paths), map[string]bool{}, 0, maxDepth)
}

// GroupPaths collapses dotted paths into a nested boolean tree: sibling
// paths sharing a prefix share one node. An "[]" suffix on a segment (array
// notation) is stripped; it selects the same attribute.
func GroupPaths(paths []string) map[string]any {
	tree := make(map[string]any)
	for _, path := range paths {
		node := tree
		segs := strings.Split(path, ".")
		for i, seg := range segs {
			seg = strings.TrimSuffix(seg, "[]")
			if seg == "" {
				continue
			}
			if i == len(segs)-1 {
				if _, ok := node[seg]; !ok {
					node[seg] = true
				}
				continue
			}
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
	}
	return tree
}

// resolveEntity expands one level of the boolean tree against ent. visited
// holds the entities encountered along the current descent only, and is
// copied per branch so sibling recursion is never pruned by an unrelated
// branch's cycle.
func resolveEntity(reg Registry, ent schema.Entity, sub map[string]any, visited map[string]bool, depth, maxDepth int) (Tree, error) {
	tree := make(Tree, len(sub))

	for _, key := range sortedKeys(sub) {
		attr, ok := ent.Attributes[key]
		if !ok || attr.Relation == nil {
			// Scalar attribute (or one this registry does not describe):
			// include it and let the hydrator decide.
			tree[key] = Leaf{}
			continue
		}

		rel := attr.Relation
		if visited[rel.Entity] || depth+1 >= maxDepth {
			tree[key] = &Relation{Entity: rel.Entity, SkippedDueToCycle: true}
			continue
		}

		target, ok := reg.Get(rel.Entity)
		if !ok {
			return nil, &RelatedEntityNotFoundError{Entity: rel.Entity, Attribute: key}
		}

		childSub, _ := sub[key].(map[string]any)
		if len(childSub) == 0 {
			// Path ends at the relation itself: select every scalar
			// attribute of the target.
			childSub = scalarAttributes(target)
		}

		branchVisited := make(map[string]bool, len(visited)+1)
		for k := range visited {
			branchVisited[k] = true
		}
		branchVisited[rel.Entity] = true

		attrs, err := resolveEntity(reg, target, childSub, branchVisited, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}

		tree[key] = &Relation{
			Entity:       rel.Entity,
			RelationType: rel.Type,
			Identifiers:  rel.ResolveIdentifiers(),
			Attributes:   attrs,
		}
	}

	return tree, nil
}

func scalarAttributes(ent schema.Entity) map[string]any {
	out := make(map[string]any)
	for name, attr := range ent.Attributes {
		if attr.Relation == nil {
			out[name] = true
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
