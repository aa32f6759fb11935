package schema

import "context"

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// AppliedDirectives are directives applied to the schema definition itself
	// (for example @link on a federation subgraph).
	AppliedDirectives []*AppliedDirective
	Extensions        map[string]any `json:"-"`
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool
	Directives     []*AppliedDirective

	IsTypeOf    func(value any) bool                                 `json:"-"`
	ResolveType func(ctx context.Context, value any) (string, error) `json:"-"`
	Serialize   func(value any) (any, error)                         `json:"-"`
	ParseValue  func(value any) (any, error)                         `json:"-"`
	Extensions  map[string]any                                       `json:"-"`
}

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field with the given name, or nil.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasDirective reports whether a directive with the given name is applied to the type.
func (t *Type) HasDirective(name string) bool {
	for _, d := range t.Directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue // formerly ArgumentDefinitionMap
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
	Directives        []*AppliedDirective

	Resolve    ResolveFunc    `json:"-"`
	Subscribe  SubscribeFunc  `json:"-"`
	Extensions map[string]any `json:"-"`
}

// Argument returns the argument with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	ParentType string
	FieldName  string
	ReturnType *TypeRef
	Schema     *Schema
}

// ResolveFunc produces the value of a field. Implementations may block; the
// executor owns scheduling.
type ResolveFunc func(ctx context.Context, source any, args map[string]any, info *ResolveInfo) (any, error)

// SubscribeFunc produces the event stream of a subscription field.
type SubscribeFunc func(ctx context.Context, source any, args map[string]any, info *ResolveInfo) (<-chan any, error)

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// IsInput reports whether values of this kind may appear in input positions.
func (k TypeKind) IsInput() bool {
	return k == TypeKindScalar || k == TypeKindEnum || k == TypeKindInputObject
}

// IsOutput reports whether values of this kind may appear in output positions.
func (k TypeKind) IsOutput() bool { return k != TypeKindInputObject }

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Helper functions for TypeRef
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[Point!]!".
func (t *TypeRef) String() string { return renderTypeRef(t) }

type EnumValue struct {
	Name              string
	Description       string
	Value             any `json:"-"`
	IsDeprecated      bool
	DeprecationReason string
	Directives        []*AppliedDirective
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
	Directives        []*AppliedDirective
	Extensions        map[string]any `json:"-"`
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue // formerly ArgumentDefinitionMap
	IsRepeatable bool
}

// AppliedDirective is a use of a directive on a schema element.
type AppliedDirective struct {
	Name string
	Args []*DirectiveArgument
}

// DirectiveArgument is a named argument value of an applied directive.
type DirectiveArgument struct {
	Name  string
	Value any
}

// Arg returns the value of the named argument and whether it was present.
func (d *AppliedDirective) Arg(name string) (any, bool) {
	for _, a := range d.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
