package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/schema"
)

// State is the lifecycle state of a SchemaBuilder.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateResolving
	StateBuilt
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateAccumulating:
		return "Accumulating"
	case StateResolving:
		return "Resolving"
	case StateBuilt:
		return "Built"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a SchemaBuilder.
type Options struct {
	Plugins []PluginFactory
	Logger  *zap.Logger
	Events  *eventbus.Bus
}

// SchemaBuilder accumulates type definitions and turns them into one
// immutable schema. It is not safe for concurrent use.
type SchemaBuilder struct {
	opts    Options
	log     *zap.Logger
	store   *ConfigStore
	plugins []Plugin
	byName  map[string]Plugin

	state        State
	materialized bool
	roots        map[FieldKind]ObjectRef
	directives   []*schema.Directive

	ctx     context.Context
	buildID string
	schema  *schema.Schema
	err     error
}

// NewSchemaBuilder creates a builder and its plugin instances, in the order
// the factories are listed.
func NewSchemaBuilder(opts Options) *SchemaBuilder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b := &SchemaBuilder{
		opts:   opts,
		log:    log,
		byName: make(map[string]Plugin),
		roots:  make(map[FieldKind]ObjectRef),
		ctx:    context.Background(),
	}
	b.store = newConfigStore(b)
	for _, factory := range opts.Plugins {
		p := factory(b)
		if p == nil {
			continue
		}
		if _, dup := b.byName[p.Name()]; dup {
			b.store.fail(&RefError{Kind: ErrDuplicateRegistration, Name: p.Name(), Detail: "plugin registered twice"})
			continue
		}
		b.plugins = append(b.plugins, p)
		b.byName[p.Name()] = p
	}
	return b
}

// Plugin returns the plugin instance registered under name, or nil.
func (b *SchemaBuilder) Plugin(name string) Plugin { return b.byName[name] }

// Plugins returns the plugin instances in registration order.
func (b *SchemaBuilder) Plugins() []Plugin { return append([]Plugin(nil), b.plugins...) }

// Store exposes the config store to plugins.
func (b *SchemaBuilder) Store() *ConfigStore { return b.store }

// State reports the current lifecycle state.
func (b *SchemaBuilder) State() State { return b.state }

// Logger returns the builder's logger.
func (b *SchemaBuilder) Logger() *zap.Logger { return b.log }

// Context returns the context of the running or last build.
func (b *SchemaBuilder) Context() context.Context { return b.ctx }

// touch guards every registration: it moves an empty builder to
// Accumulating and panics once the schema is built or the build failed.
func (b *SchemaBuilder) touch() {
	if b.state == StateBuilt || b.state == StateFailed || b.materialized {
		panic(ErrBuilderSealed)
	}
	if b.state == StateEmpty {
		b.state = StateAccumulating
	}
}

func (b *SchemaBuilder) register(tc *TypeConfig) {
	b.touch()
	b.store.fail(b.store.RegisterType(tc))
}

// RootOptions describes the query, mutation or subscription type.
type RootOptions struct {
	Name        string
	Description string
	Fields      FieldsFunc
	Extensions  map[string]any
}

// ObjectOptions describes an object type.
type ObjectOptions struct {
	Description string
	Interfaces  []InterfaceRef
	IsTypeOf    func(value any) bool
	Fields      FieldsFunc
	Extensions  map[string]any
}

// InterfaceOptions describes an interface type.
type InterfaceOptions struct {
	Description string
	Interfaces  []InterfaceRef
	ResolveType func(ctx context.Context, value any) (string, error)
	Fields      FieldsFunc
	Extensions  map[string]any
}

// UnionOptions describes a union type.
type UnionOptions struct {
	Description string
	Members     []ObjectRef
	ResolveType func(ctx context.Context, value any) (string, error)
	Extensions  map[string]any
}

// EnumOptions describes an enum type.
type EnumOptions struct {
	Description string
	Values      []EnumValue
	Extensions  map[string]any
}

// InputObjectOptions describes an input object type.
type InputObjectOptions struct {
	Description string
	OneOf       bool
	Fields      InputFieldsFunc
	Extensions  map[string]any
}

// ScalarOptions describes a custom scalar.
type ScalarOptions struct {
	Description    string
	SpecifiedByURL string
	Serialize      func(value any) (any, error)
	ParseValue     func(value any) (any, error)
	Extensions     map[string]any
}

// ScalarDefinition is a scalar implemented outside of the builder.
type ScalarDefinition interface {
	Serialize(value any) (any, error)
	ParseValue(value any) (any, error)
}

// EnumValues lists enum values whose internal value is their name.
func EnumValues(names ...string) []EnumValue {
	out := make([]EnumValue, len(names))
	for i, n := range names {
		out[i] = EnumValue{Name: n, Value: n}
	}
	return out
}

var defaultRootNames = map[FieldKind]string{
	FieldKindQuery:        "Query",
	FieldKindMutation:     "Mutation",
	FieldKindSubscription: "Subscription",
}

func (b *SchemaBuilder) rootRef(kind FieldKind) ObjectRef {
	ref, ok := b.roots[kind]
	if !ok {
		ref = ObjectRef{b.store.NewRef(KindObject, "")}
		b.roots[kind] = ref
	}
	return ref
}

func (b *SchemaBuilder) rootType(kind FieldKind, opts RootOptions) ObjectRef {
	ref := b.rootRef(kind)
	name := opts.Name
	if name == "" {
		name = defaultRootNames[kind]
	}
	tc := &TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindObject,
		Name:        name,
		Description: opts.Description,
		Root:        kind,
		Extensions:  cloneExtensions(opts.Extensions),
	}
	if opts.Fields != nil {
		tc.fields = append(tc.fields, opts.Fields)
	}
	b.register(tc)
	return ref
}

func (b *SchemaBuilder) QueryType(opts RootOptions) ObjectRef {
	return b.rootType(FieldKindQuery, opts)
}

func (b *SchemaBuilder) MutationType(opts RootOptions) ObjectRef {
	return b.rootType(FieldKindMutation, opts)
}

func (b *SchemaBuilder) SubscriptionType(opts RootOptions) ObjectRef {
	return b.rootType(FieldKindSubscription, opts)
}

// QueryRef returns the ref of the query type, whether or not it is defined yet.
func (b *SchemaBuilder) QueryRef() ObjectRef { return b.rootRef(FieldKindQuery) }

// MutationRef returns the ref of the mutation type.
func (b *SchemaBuilder) MutationRef() ObjectRef { return b.rootRef(FieldKindMutation) }

// SubscriptionRef returns the ref of the subscription type.
func (b *SchemaBuilder) SubscriptionRef() ObjectRef { return b.rootRef(FieldKindSubscription) }

func (b *SchemaBuilder) addFields(ref Ref, fn FieldsFunc) {
	b.touch()
	b.store.fail(b.store.AddFields(ref, fn))
}

func single(name string, fn func(t *FieldBuilder) FieldRef) FieldsFunc {
	return func(t *FieldBuilder) Fields { return Fields{name: fn(t)} }
}

func (b *SchemaBuilder) QueryFields(fn FieldsFunc) { b.addFields(b.QueryRef().Ref, fn) }

func (b *SchemaBuilder) QueryField(name string, fn func(t *FieldBuilder) FieldRef) {
	b.QueryFields(single(name, fn))
}

func (b *SchemaBuilder) MutationFields(fn FieldsFunc) { b.addFields(b.MutationRef().Ref, fn) }

func (b *SchemaBuilder) MutationField(name string, fn func(t *FieldBuilder) FieldRef) {
	b.MutationFields(single(name, fn))
}

func (b *SchemaBuilder) SubscriptionFields(fn FieldsFunc) {
	b.addFields(b.SubscriptionRef().Ref, fn)
}

func (b *SchemaBuilder) SubscriptionField(name string, fn func(t *FieldBuilder) FieldRef) {
	b.SubscriptionFields(single(name, fn))
}

func (b *SchemaBuilder) ObjectFields(ref ObjectRef, fn FieldsFunc) { b.addFields(ref.Ref, fn) }

func (b *SchemaBuilder) ObjectField(ref ObjectRef, name string, fn func(t *FieldBuilder) FieldRef) {
	b.ObjectFields(ref, single(name, fn))
}

func (b *SchemaBuilder) InterfaceFields(ref InterfaceRef, fn FieldsFunc) { b.addFields(ref.Ref, fn) }

func (b *SchemaBuilder) InterfaceField(ref InterfaceRef, name string, fn func(t *FieldBuilder) FieldRef) {
	b.InterfaceFields(ref, single(name, fn))
}

// InputFields adds fields to an input object type.
func (b *SchemaBuilder) InputFields(ref InputRef, fn InputFieldsFunc) {
	b.touch()
	b.store.fail(b.store.AddInputFields(ref.Ref, fn))
}

// ObjectRef returns a ref for the object type called name, which may be
// registered later with ImplementObject or ObjectType. An empty name
// creates a placeholder that is named when it is implemented.
func (b *SchemaBuilder) ObjectRef(name string) ObjectRef {
	b.touch()
	return ObjectRef{b.store.NewRef(KindObject, name)}
}

func (b *SchemaBuilder) InterfaceRef(name string) InterfaceRef {
	b.touch()
	return InterfaceRef{b.store.NewRef(KindInterface, name)}
}

func (b *SchemaBuilder) UnionRef(name string) UnionRef {
	b.touch()
	return UnionRef{b.store.NewRef(KindUnion, name)}
}

func (b *SchemaBuilder) EnumRef(name string) EnumRef {
	b.touch()
	return EnumRef{b.store.NewRef(KindEnum, name)}
}

func (b *SchemaBuilder) InputRef(name string) InputRef {
	b.touch()
	return InputRef{b.store.NewRef(KindInput, name)}
}

func (b *SchemaBuilder) ScalarRef(name string) ScalarRef {
	b.touch()
	return ScalarRef{b.store.NewRef(KindScalar, name)}
}

func (b *SchemaBuilder) ObjectType(name string, opts ObjectOptions) ObjectRef {
	return b.ImplementObject(b.ObjectRef(""), name, opts)
}

// ImplementObject registers the config of a ref obtained from ObjectRef.
// An empty name keeps the name the ref was created with.
func (b *SchemaBuilder) ImplementObject(ref ObjectRef, name string, opts ObjectOptions) ObjectRef {
	tc := &TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindObject,
		Name:        name,
		Description: opts.Description,
		Interfaces:  opts.Interfaces,
		IsTypeOf:    opts.IsTypeOf,
		Extensions:  cloneExtensions(opts.Extensions),
	}
	if opts.Fields != nil {
		tc.fields = append(tc.fields, opts.Fields)
	}
	b.register(tc)
	return ref
}

func (b *SchemaBuilder) InterfaceType(name string, opts InterfaceOptions) InterfaceRef {
	return b.ImplementInterface(b.InterfaceRef(""), name, opts)
}

func (b *SchemaBuilder) ImplementInterface(ref InterfaceRef, name string, opts InterfaceOptions) InterfaceRef {
	tc := &TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindInterface,
		Name:        name,
		Description: opts.Description,
		Interfaces:  opts.Interfaces,
		ResolveType: opts.ResolveType,
		Extensions:  cloneExtensions(opts.Extensions),
	}
	if opts.Fields != nil {
		tc.fields = append(tc.fields, opts.Fields)
	}
	b.register(tc)
	return ref
}

func (b *SchemaBuilder) UnionType(name string, opts UnionOptions) UnionRef {
	ref := b.UnionRef("")
	b.register(&TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindUnion,
		Name:        name,
		Description: opts.Description,
		Members:     opts.Members,
		ResolveType: opts.ResolveType,
		Extensions:  cloneExtensions(opts.Extensions),
	})
	return ref
}

func (b *SchemaBuilder) EnumType(name string, opts EnumOptions) EnumRef {
	ref := b.EnumRef("")
	b.register(&TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindEnum,
		Name:        name,
		Description: opts.Description,
		Values:      append([]EnumValue(nil), opts.Values...),
		Extensions:  cloneExtensions(opts.Extensions),
	})
	return ref
}

func (b *SchemaBuilder) InputType(name string, opts InputObjectOptions) InputRef {
	return b.ImplementInput(b.InputRef(""), name, opts)
}

func (b *SchemaBuilder) ImplementInput(ref InputRef, name string, opts InputObjectOptions) InputRef {
	tc := &TypeConfig{
		Ref:         ref.Ref,
		Kind:        schema.TypeKindInputObject,
		Name:        name,
		Description: opts.Description,
		OneOf:       opts.OneOf,
		Extensions:  cloneExtensions(opts.Extensions),
	}
	if opts.Fields != nil {
		tc.inputFields = append(tc.inputFields, opts.Fields)
	}
	b.register(tc)
	return ref
}

func (b *SchemaBuilder) ScalarType(name string, opts ScalarOptions) ScalarRef {
	ref := b.ScalarRef("")
	b.register(&TypeConfig{
		Ref:            ref.Ref,
		Kind:           schema.TypeKindScalar,
		Name:           name,
		Description:    opts.Description,
		SpecifiedByURL: opts.SpecifiedByURL,
		Serialize:      opts.Serialize,
		ParseValue:     opts.ParseValue,
		Extensions:     cloneExtensions(opts.Extensions),
	})
	return ref
}

// AddScalarType registers a scalar implemented by def. Functions set in opts
// take precedence over the definition's.
func (b *SchemaBuilder) AddScalarType(name string, def ScalarDefinition, opts ScalarOptions) ScalarRef {
	if opts.Serialize == nil {
		opts.Serialize = def.Serialize
	}
	if opts.ParseValue == nil {
		opts.ParseValue = def.ParseValue
	}
	return b.ScalarType(name, opts)
}

// AddDirective adds a directive definition to the built schema.
func (b *SchemaBuilder) AddDirective(d *schema.Directive) {
	b.touch()
	for _, existing := range b.directives {
		if existing.Name == d.Name {
			b.store.fail(&RefError{Kind: ErrDuplicateRegistration, Name: "@" + d.Name, Detail: "directive defined more than once"})
			return
		}
	}
	b.directives = append(b.directives, d)
}

// HasDirective reports whether a directive definition named name was added.
func (b *SchemaBuilder) HasDirective(name string) bool {
	for _, d := range b.directives {
		if d.Name == name {
			return true
		}
	}
	return false
}
