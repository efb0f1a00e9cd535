package toolpick

import "fmt"

type registryKey struct {
	kind Kind
	name string
}

// TypeRegistry deduplicates named types (classes and enums) for one compilation
// session. Asking twice for the same (kind, name) returns the same *Type, which
// lets identical schemas referenced from many places collapse into one node and
// lets self-referential schemas terminate.
//
// A TypeRegistry is not safe for concurrent use.
type TypeRegistry struct {
	types map[registryKey]*Type
	order []*Type
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[registryKey]*Type)}
}

// GetOrCreate returns the named type of the given kind, creating an empty one on
// first use. created is true only for the call that created it; callers fill in
// Fields or Values then. Only KindClass and KindEnum are accepted, and name must
// be non-empty; anything else is a programming error and panics.
func (r *TypeRegistry) GetOrCreate(kind Kind, name string) (t *Type, created bool) {
	if kind != KindClass && kind != KindEnum {
		panic(fmt.Sprintf("toolpick: registry holds classes and enums only, got %s", kind))
	}
	if name == "" {
		panic("toolpick: registry name must be non-empty")
	}
	key := registryKey{kind: kind, name: name}
	if t, ok := r.types[key]; ok {
		return t, false
	}
	t = &Type{Kind: kind, Name: name}
	r.types[key] = t
	r.order = append(r.order, t)
	return t, true
}

// Lookup returns the named type if it was registered.
func (r *TypeRegistry) Lookup(kind Kind, name string) (*Type, bool) {
	t, ok := r.types[registryKey{kind: kind, name: name}]
	return t, ok
}

// Types returns every registered type in registration order.
func (r *TypeRegistry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int { return len(r.order) }

// truncate forgets every type registered after the first n.
func (r *TypeRegistry) truncate(n int) {
	for _, t := range r.order[n:] {
		delete(r.types, registryKey{kind: t.Kind, name: t.Name})
	}
	clear(r.order[n:])
	r.order = r.order[:n]
}
