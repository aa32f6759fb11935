package federation

import (
	"github.com/hanpama/plugraph/internal/core"
)

// AsEntity declares the object behind ref an entity. The declaration may
// come before the object is registered; it takes effect under whatever name
// the ref ends up with.
func AsEntity(b *core.SchemaBuilder, ref core.ObjectRef, opts EntityOptions) {
	p := Of(b)
	err := b.Store().OnTypeConfig(ref.Ref, func(tc *core.TypeConfig) error {
		p.entities[tc.Name] = opts
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// ExternalEntityRef is an entity owned by another subgraph. It can be used
// as a field type right away; Implement registers the local part of it.
type ExternalEntityRef struct {
	core.ObjectRef
	b       *core.SchemaBuilder
	name    string
	key     []Selection
	resolve ReferenceResolver
}

// ExternalRef returns a reference to the entity name of another subgraph.
func ExternalRef(b *core.SchemaBuilder, name string, key []Selection, resolve ReferenceResolver) *ExternalEntityRef {
	return &ExternalEntityRef{ObjectRef: b.ObjectRef(name), b: b, name: name, key: key, resolve: resolve}
}

// Name returns the entity type name.
func (e *ExternalEntityRef) Name() string { return e.name }

// ExternalObjectOptions describes the local part of an external entity.
type ExternalObjectOptions struct {
	Description string
	Interfaces  []core.InterfaceRef
	IsTypeOf    func(value any) bool
	// ExternalFields are resolved by the owning subgraph and marked @external.
	ExternalFields core.FieldsFunc
	// Fields are contributed by this subgraph. Names must not repeat those
	// of ExternalFields.
	Fields     core.FieldsFunc
	Extensions map[string]any
}

// Implement registers the entity object and declares it an entity with the
// key given to ExternalRef.
func (e *ExternalEntityRef) Implement(opts ExternalObjectOptions) core.ObjectRef {
	external, own := opts.ExternalFields, opts.Fields
	ref := e.b.ImplementObject(e.ObjectRef, e.name, core.ObjectOptions{
		Description: opts.Description,
		Interfaces:  opts.Interfaces,
		IsTypeOf:    opts.IsTypeOf,
		Extensions:  opts.Extensions,
		Fields: func(t *core.FieldBuilder) core.Fields {
			out := core.Fields{}
			if own != nil {
				out = own(t)
			}
			if external == nil {
				return out
			}
			for name, f := range external(t) {
				err := t.Builder().Store().OnFieldUse(f, func(fc *core.FieldConfig) error {
					fc.Extensions = core.AppendDirective(fc.Extensions, "external")
					return nil
				})
				if err != nil {
					panic(err)
				}
				out[name] = f
			}
			return out
		},
	})
	AsEntity(e.b, ref, EntityOptions{Key: e.key, ResolveReference: e.resolve})
	return ref
}
