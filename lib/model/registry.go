package model

import (
	"fmt"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry is a table of model types by name
type Registry struct {
	types *xsync.MapOf[string, *Type]
}

// DefaultRegistry is the registry used by the package level Define
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{types: xsync.NewMapOf[string, *Type]()}
}

// TypeOption configures a type at definition
type TypeOption func(*Type)

// Extends makes the defined type inherit all fields of parent
func Extends(parent *Type) TypeOption {
	return func(t *Type) {
		t.parent = parent
	}
}

// Define registers a new model type. Types are meant to be defined in package
// level variables, so defining a name twice is a programming error and panics.
func (r *Registry) Define(name string, opts ...TypeOption) *Type {
	t := &Type{name: name}
	for _, opt := range opts {
		opt(t)
	}
	if _, loaded := r.types.LoadOrStore(name, t); loaded {
		panic(fmt.Sprintf("model: type %q is already defined", name))
	}
	return t
}

// Lookup returns the type registered under name
func (r *Registry) Lookup(name string) (*Type, bool) {
	return r.types.Load(name)
}

// Names returns the sorted names of all registered types
func (r *Registry) Names() []string {
	names := make([]string, 0, r.types.Size())
	r.types.Range(func(name string, _ *Type) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Define registers a new model type in the DefaultRegistry
func Define(name string, opts ...TypeOption) *Type {
	return DefaultRegistry.Define(name, opts...)
}

// --------------------------------------------------------------------------
// Type
// --------------------------------------------------------------------------

// Type is a model type: a name, an optional parent and the fields declared on it.
// The effective field list is resolved on first use, after that the type is sealed.
type Type struct {
	name   string
	parent *Type

	mu       sync.Mutex
	declared []FieldSpec
	sealed   bool

	resolveOnce sync.Once
	resolved    []FieldSpec
	byName      map[string]int
}

// Name returns the name the type was defined with
func (t *Type) Name() string {
	return t.name
}

// Parent returns the type t extends, or nil
func (t *Type) Parent() *Type {
	return t.parent
}

// declare adds a field to the type. Panics when the type is sealed
// or a field of that name was already declared on this type.
func (t *Type) declare(spec FieldSpec) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		panic(fmt.Sprintf("model: cannot declare field %q, type %q is already in use", spec.Name(), t.name))
	}
	for _, f := range t.declared {
		if f.Name() == spec.Name() {
			panic(fmt.Sprintf("model: field %q is declared twice on type %q", spec.Name(), t.name))
		}
	}
	t.declared = append(t.declared, spec)
}

// Fields returns the effective fields of the type in order: inherited fields first,
// where a field redeclared by t replaces the inherited one in place, then the new fields of t.
//
// Thread-safety: This method is thread-safe, the list is resolved exactly once.
func (t *Type) Fields() []FieldSpec {
	t.resolveOnce.Do(t.resolve)
	return slices.Clone(t.resolved)
}

// Field returns the effective field called name
func (t *Type) Field(name string) (FieldSpec, bool) {
	t.resolveOnce.Do(t.resolve)
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.resolved[i], true
}

// IsA reports whether t is other or extends it
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (t *Type) resolve() {
	var fields []FieldSpec
	if t.parent != nil {
		fields = t.parent.Fields()
	}

	t.mu.Lock()
	t.sealed = true
	declared := slices.Clone(t.declared)
	t.mu.Unlock()

	byName := make(map[string]int, len(fields)+len(declared))
	for i, f := range fields {
		byName[f.Name()] = i
	}
	for _, f := range declared {
		if i, ok := byName[f.Name()]; ok {
			fields[i] = f
			continue
		}
		byName[f.Name()] = len(fields)
		fields = append(fields, f)
	}

	type location struct {
		scope Scope
		key   string
	}
	seen := make(map[location]string, len(fields))
	for _, f := range fields {
		loc := location{f.Scope(), f.Key()}
		if other, ok := seen[loc]; ok {
			log.Warningf("type %q: fields %q and %q share the %s key %q", t.name, other, f.Name(), f.Scope(), f.Key())
			continue
		}
		seen[loc] = f.Name()
	}

	t.resolved = fields
	t.byName = byName
}
