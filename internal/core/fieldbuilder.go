package core

import "github.com/hanpama/plugraph/internal/schema"

// FieldOptions describes an output field.
type FieldOptions struct {
	Type          OutputType
	List          bool
	Nullable      bool
	NullableItems bool
	Args          InputFields

	Resolve   Resolver
	Subscribe Subscriber

	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// InputFieldOptions describes an argument or input object field.
type InputFieldOptions struct {
	Type          InputType
	List          bool
	Required      bool
	NullableItems bool
	DefaultValue  any

	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// FieldBuilder creates the fields of one object, interface or root type.
type FieldBuilder struct {
	store    *ConfigStore
	kind     FieldKind
	typeName string
	typeRef  Ref

	// Arg creates arguments for the fields built by this builder.
	Arg *InputFieldBuilder
}

func newFieldBuilder(s *ConfigStore, tc *TypeConfig) *FieldBuilder {
	kind := tc.Root
	if kind == "" {
		kind = FieldKindObject
		if tc.Kind == schema.TypeKindInterface {
			kind = FieldKindInterface
		}
	}
	return &FieldBuilder{
		store:    s,
		kind:     kind,
		typeName: tc.Name,
		typeRef:  tc.Ref,
		Arg:      newInputFieldBuilder(s, InputFieldKindArg, tc.Name),
	}
}

// Kind reports the kind of parent the fields are created for.
func (t *FieldBuilder) Kind() FieldKind { return t.kind }

// TypeName is the schema name of the parent type.
func (t *FieldBuilder) TypeName() string { return t.typeName }

// TypeRef is the ref of the parent type.
func (t *FieldBuilder) TypeRef() Ref { return t.typeRef }

// Builder returns the schema builder the fields belong to.
func (t *FieldBuilder) Builder() *SchemaBuilder { return t.store.builder }

// Field creates a field. Without a resolver the field reads the property of
// the parent value named like the field.
func (t *FieldBuilder) Field(opts FieldOptions) FieldRef {
	if opts.Type == nil {
		t.store.fail(errMismatch(t.typeName, "field without type"))
	}
	fc := &FieldConfig{
		Kind:              t.kind,
		Type:              outputSpec(opts.Type, opts.List, opts.Nullable, opts.NullableItems),
		Resolve:           opts.Resolve,
		Subscribe:         opts.Subscribe,
		Async:             opts.Resolve != nil,
		Description:       opts.Description,
		DeprecationReason: opts.DeprecationReason,
		Extensions:        cloneExtensions(opts.Extensions),
	}
	return t.store.newField(fc, opts.Args)
}

// Expose creates a field reading property from the parent value.
func (t *FieldBuilder) Expose(property string, opts FieldOptions) FieldRef {
	opts.Resolve = nil
	ref := t.Field(opts)
	t.store.pendingFields[ref.Ref].Resolve = PropertyResolver(property)
	return ref
}

func (t *FieldBuilder) expose(property, typeName string, list bool, opts []FieldOptions) FieldRef {
	o := first(opts)
	o.Type = Name(typeName)
	o.List = list
	return t.Expose(property, o)
}

func (t *FieldBuilder) scalar(typeName string, list bool, opts []FieldOptions) FieldRef {
	o := first(opts)
	o.Type = Name(typeName)
	o.List = list
	return t.Field(o)
}

func (t *FieldBuilder) ExposeString(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "String", false, opts)
}

func (t *FieldBuilder) ExposeInt(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Int", false, opts)
}

func (t *FieldBuilder) ExposeFloat(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Float", false, opts)
}

func (t *FieldBuilder) ExposeBoolean(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Boolean", false, opts)
}

func (t *FieldBuilder) ExposeID(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "ID", false, opts)
}

func (t *FieldBuilder) ExposeStringList(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "String", true, opts)
}

func (t *FieldBuilder) ExposeIntList(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Int", true, opts)
}

func (t *FieldBuilder) ExposeFloatList(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Float", true, opts)
}

func (t *FieldBuilder) ExposeBooleanList(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "Boolean", true, opts)
}

func (t *FieldBuilder) ExposeIDList(property string, opts ...FieldOptions) FieldRef {
	return t.expose(property, "ID", true, opts)
}

func (t *FieldBuilder) String(opts ...FieldOptions) FieldRef { return t.scalar("String", false, opts) }
func (t *FieldBuilder) Int(opts ...FieldOptions) FieldRef    { return t.scalar("Int", false, opts) }
func (t *FieldBuilder) Float(opts ...FieldOptions) FieldRef  { return t.scalar("Float", false, opts) }
func (t *FieldBuilder) Boolean(opts ...FieldOptions) FieldRef {
	return t.scalar("Boolean", false, opts)
}
func (t *FieldBuilder) ID(opts ...FieldOptions) FieldRef { return t.scalar("ID", false, opts) }

func (t *FieldBuilder) StringList(opts ...FieldOptions) FieldRef {
	return t.scalar("String", true, opts)
}

func (t *FieldBuilder) IntList(opts ...FieldOptions) FieldRef { return t.scalar("Int", true, opts) }

func (t *FieldBuilder) FloatList(opts ...FieldOptions) FieldRef {
	return t.scalar("Float", true, opts)
}

func (t *FieldBuilder) BooleanList(opts ...FieldOptions) FieldRef {
	return t.scalar("Boolean", true, opts)
}

func (t *FieldBuilder) IDList(opts ...FieldOptions) FieldRef { return t.scalar("ID", true, opts) }

// InputFieldBuilder creates arguments or input object fields.
type InputFieldBuilder struct {
	store    *ConfigStore
	kind     InputFieldKind
	typeName string
}

func newInputFieldBuilder(s *ConfigStore, kind InputFieldKind, typeName string) *InputFieldBuilder {
	return &InputFieldBuilder{store: s, kind: kind, typeName: typeName}
}

// Kind reports whether the builder creates arguments or input object fields.
func (t *InputFieldBuilder) Kind() InputFieldKind { return t.kind }

// TypeName is the schema name of the type owning the created values.
func (t *InputFieldBuilder) TypeName() string { return t.typeName }

// Builder returns the schema builder the fields belong to.
func (t *InputFieldBuilder) Builder() *SchemaBuilder { return t.store.builder }

// Field creates an input value. Input values are nullable unless Required.
func (t *InputFieldBuilder) Field(opts InputFieldOptions) InputFieldRef {
	if opts.Type == nil {
		t.store.fail(errMismatch(t.typeName, "input field without type"))
	}
	ic := &InputFieldConfig{
		Kind:              t.kind,
		Type:              inputSpec(opts.Type, opts.List, opts.Required, opts.NullableItems),
		DefaultValue:      opts.DefaultValue,
		Description:       opts.Description,
		DeprecationReason: opts.DeprecationReason,
		Extensions:        cloneExtensions(opts.Extensions),
	}
	return t.store.newInputField(ic)
}

func (t *InputFieldBuilder) scalar(typeName string, list bool, opts []InputFieldOptions) InputFieldRef {
	var o InputFieldOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Type = Name(typeName)
	o.List = list
	return t.Field(o)
}

func (t *InputFieldBuilder) String(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("String", false, opts)
}

func (t *InputFieldBuilder) Int(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Int", false, opts)
}

func (t *InputFieldBuilder) Float(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Float", false, opts)
}

func (t *InputFieldBuilder) Boolean(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Boolean", false, opts)
}

func (t *InputFieldBuilder) ID(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("ID", false, opts)
}

func (t *InputFieldBuilder) StringList(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("String", true, opts)
}

func (t *InputFieldBuilder) IntList(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Int", true, opts)
}

func (t *InputFieldBuilder) FloatList(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Float", true, opts)
}

func (t *InputFieldBuilder) BooleanList(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("Boolean", true, opts)
}

func (t *InputFieldBuilder) IDList(opts ...InputFieldOptions) InputFieldRef {
	return t.scalar("ID", true, opts)
}

func first(opts []FieldOptions) FieldOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return FieldOptions{}
}
