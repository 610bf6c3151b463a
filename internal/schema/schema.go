// Package schema defines entity schemas, relation metadata, and the
// read-only registry the selection resolver looks entities up in.
//
// The registry is populated once at startup (programmatically or from CUE
// definition files) and treated as immutable afterwards; the engine never
// mutates it.
package schema

import "sort"

// RelationType distinguishes the two relation cardinalities the selection
// resolver understands.
type RelationType string

const (
	OneToMany RelationType = "one-to-many"
	ManyToOne RelationType = "many-to-one"
)

// IdentifierPair joins a source attribute on the owning entity to a target
// attribute on the related entity.
type IdentifierPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IdentifierResolver lazily produces the join identifiers for a relation.
// Used when identifiers depend on state not known at registration time.
type IdentifierResolver func() []IdentifierPair

// Relation is the optional relation metadata attached to an attribute.
type Relation struct {
	Entity      string           `json:"entityName"`
	Type        RelationType     `json:"type"`
	Identifiers []IdentifierPair `json:"identifiers,omitempty"`
	Resolver    IdentifierResolver `json:"-"`
}

// ResolveIdentifiers returns the relation's identifier pairs, invoking the
// resolver when one is set.
func (r *Relation) ResolveIdentifiers() []IdentifierPair {
	if r.Resolver != nil {
		return r.Resolver()
	}
	return r.Identifiers
}

// Attribute describes one attribute of an entity schema.
type Attribute struct {
	Type     string    `json:"type"`
	Relation *Relation `json:"relation,omitempty"`
}

// Entity is one entity schema: a named set of attribute definitions.
type Entity struct {
	Name       string               `json:"name"`
	Attributes map[string]Attribute `json:"attributes"`
}

// Registry is a read-only lookup of entity schemas by name. Populate it
// fully before handing it to the engine; the engine only reads.
type Registry struct {
	entities map[string]Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]Entity)}
}

// Register adds or replaces an entity schema.
func (r *Registry) Register(e Entity) {
	r.entities[e.Name] = e
}

// Has reports whether an entity schema is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.entities[name]
	return ok
}

// Get returns the entity schema registered under name.
func (r *Registry) Get(name string) (Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
