package core

import (
	"context"

	"github.com/hanpama/plugraph/internal/schema"
)

type (
	// Resolver produces a field value. It may block; composition of pending
	// work is the executor's concern.
	Resolver = schema.ResolveFunc
	// Subscriber produces the event stream of a subscription field.
	Subscriber = schema.SubscribeFunc
	// ResolveInfo describes the field being resolved.
	ResolveInfo = schema.ResolveInfo
)

// FieldKind tells which kind of parent a field is attached to.
type FieldKind string

const (
	FieldKindObject       FieldKind = "Object"
	FieldKindInterface    FieldKind = "Interface"
	FieldKindQuery        FieldKind = "Query"
	FieldKindMutation     FieldKind = "Mutation"
	FieldKindSubscription FieldKind = "Subscription"
)

// InputFieldKind tells whether an input value is a field argument or an input object field.
type InputFieldKind string

const (
	InputFieldKindArg   InputFieldKind = "Arg"
	InputFieldKindInput InputFieldKind = "InputObject"
)

// Fields maps field names to the refs returned by a FieldBuilder.
type Fields map[string]FieldRef

// InputFields maps input field or argument names to refs returned by an InputFieldBuilder.
type InputFields map[string]InputFieldRef

// FieldsFunc defines the fields of an object or interface. It is called
// during the build, once the parent type's name is known.
type FieldsFunc func(t *FieldBuilder) Fields

// InputFieldsFunc defines the fields of an input object.
type InputFieldsFunc func(t *InputFieldBuilder) InputFields

// TypeConfig is the pending description of a named type.
type TypeConfig struct {
	Ref         Ref
	Kind        schema.TypeKind
	Name        string
	Description string
	// Root is set on the query, mutation and subscription types.
	Root FieldKind

	Interfaces     []InterfaceRef // objects and interfaces
	Members        []ObjectRef    // unions
	Values         []EnumValue    // enums
	SpecifiedByURL string         // scalars
	OneOf          bool           // input objects

	IsTypeOf    func(value any) bool
	ResolveType func(ctx context.Context, value any) (string, error)
	Serialize   func(value any) (any, error)
	ParseValue  func(value any) (any, error)

	Extensions map[string]any

	fields      []FieldsFunc
	inputFields []InputFieldsFunc
}

// EnumValue describes one value of an enum type.
type EnumValue struct {
	Name              string
	Value             any
	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// FieldConfig is the pending description of an output field.
type FieldConfig struct {
	Ref        FieldRef
	Kind       FieldKind
	Name       string
	ParentType string
	Type       TypeSpec
	Args       []*InputFieldConfig

	Resolve   Resolver
	Subscribe Subscriber
	// Async is false only for fields served by the default property resolver.
	Async bool

	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// Arg returns the argument config with the given name, or nil.
func (fc *FieldConfig) Arg(name string) *InputFieldConfig {
	for _, a := range fc.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// InputFieldConfig is the pending description of an argument or input object field.
type InputFieldConfig struct {
	Ref         InputFieldRef
	Kind        InputFieldKind
	Name        string
	ParentType  string
	ParentField string // set for arguments
	Type        TypeSpec

	DefaultValue      any
	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// Extension returns the value stored under key, or nil.
func (tc *TypeConfig) Extension(key string) any { return tc.Extensions[key] }

// Extension returns the value stored under key, or nil.
func (fc *FieldConfig) Extension(key string) any { return fc.Extensions[key] }

// Extension returns the value stored under key, or nil.
func (ic *InputFieldConfig) Extension(key string) any { return ic.Extensions[key] }

// SetExtension stores value under key, allocating the map when needed.
func SetExtension(ext map[string]any, key string, value any) map[string]any {
	if ext == nil {
		ext = make(map[string]any)
	}
	ext[key] = value
	return ext
}

// DirectivesExtension is the extension key holding directives applied to a
// type, field or input value.
const DirectivesExtension = "directives"

// AppendDirective adds an applied directive to the "directives" extension of ext.
func AppendDirective(ext map[string]any, name string, args ...*schema.DirectiveArgument) map[string]any {
	d := schema.NewAppliedDirective(name, args...)
	current, _ := ext[DirectivesExtension].([]*schema.AppliedDirective)
	return SetExtension(ext, DirectivesExtension, append(append([]*schema.AppliedDirective(nil), current...), d))
}

func cloneExtensions(ext map[string]any) map[string]any {
	if ext == nil {
		return nil
	}
	out := make(map[string]any, len(ext))
	for k, v := range ext {
		out[k] = v
	}
	return out
}
