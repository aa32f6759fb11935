package core

import "strconv"

// RefKind identifies what a Ref stands for.
type RefKind string

const (
	KindObject     RefKind = "Object"
	KindInterface  RefKind = "Interface"
	KindUnion      RefKind = "Union"
	KindInput      RefKind = "InputObject"
	KindEnum       RefKind = "Enum"
	KindScalar     RefKind = "Scalar"
	KindField      RefKind = "Field"
	KindInputField RefKind = "InputField"
)

// Ref is an opaque handle for a type or field that has not been built yet.
// It is an index into the config store's arena plus the kind it was created
// with; two refs are the same entity exactly when they compare equal.
type Ref struct {
	id   int
	kind RefKind
}

// Kind reports what the ref stands for.
func (r Ref) Kind() RefKind { return r.kind }

// IsZero reports whether r was never issued by a store.
func (r Ref) IsZero() bool { return r.id == 0 }

func (r Ref) String() string {
	if r.IsZero() {
		return "<nil ref>"
	}
	return string(r.kind) + "#" + strconv.Itoa(r.id)
}

type (
	ObjectRef     struct{ Ref }
	InterfaceRef  struct{ Ref }
	UnionRef      struct{ Ref }
	InputRef      struct{ Ref }
	EnumRef       struct{ Ref }
	ScalarRef     struct{ Ref }
	FieldRef      struct{ Ref }
	InputFieldRef struct{ Ref }
)

// OutputType is anything usable as the type of an output field.
type OutputType interface {
	outputType() (Ref, string)
}

// InputType is anything usable as the type of an argument or input field.
type InputType interface {
	inputType() (Ref, string)
}

// Name references a type by its schema name. Builtin scalars ("String",
// "Int", "Float", "Boolean", "ID") are always available; any other name must
// be registered before the build finishes.
type Name string

func (n Name) outputType() (Ref, string) { return Ref{}, string(n) }
func (n Name) inputType() (Ref, string)  { return Ref{}, string(n) }

func (r ObjectRef) outputType() (Ref, string)    { return r.Ref, "" }
func (r InterfaceRef) outputType() (Ref, string) { return r.Ref, "" }
func (r UnionRef) outputType() (Ref, string)     { return r.Ref, "" }
func (r EnumRef) outputType() (Ref, string)      { return r.Ref, "" }
func (r ScalarRef) outputType() (Ref, string)    { return r.Ref, "" }

func (r InputRef) inputType() (Ref, string)  { return r.Ref, "" }
func (r EnumRef) inputType() (Ref, string)   { return r.Ref, "" }
func (r ScalarRef) inputType() (Ref, string) { return r.Ref, "" }

// TypeSpec is a possibly wrapped type reference as stored in field configs.
// Exactly one of Ref and Name is set.
type TypeSpec struct {
	Ref           Ref
	Name          string
	List          bool
	Nullable      bool
	NullableItems bool
}

func (s TypeSpec) String() string {
	base := s.Name
	if base == "" {
		base = s.Ref.String()
	}
	if s.List {
		if !s.NullableItems {
			base += "!"
		}
		base = "[" + base + "]"
	}
	if !s.Nullable {
		base += "!"
	}
	return base
}

func outputSpec(t OutputType, list, nullable, nullableItems bool) TypeSpec {
	spec := TypeSpec{List: list, Nullable: nullable, NullableItems: nullableItems}
	if t != nil {
		spec.Ref, spec.Name = t.outputType()
	}
	return spec
}

func inputSpec(t InputType, list, required, nullableItems bool) TypeSpec {
	spec := TypeSpec{List: list, Nullable: !required, NullableItems: nullableItems}
	if t != nil {
		spec.Ref, spec.Name = t.inputType()
	}
	return spec
}
