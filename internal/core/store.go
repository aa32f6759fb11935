package core

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/schema"
)

// ConfigStore owns every pending type and field config of one schema builder.
// Refs index into its arena; configs are looked up by ref identity, or by
// name for refs that were only associated with a name.
type ConfigStore struct {
	builder *SchemaBuilder
	next    int // last issued ref id

	configs   map[Ref]*TypeConfig
	owners    map[string]Ref
	aliases   map[Ref]string
	aliasRefs map[string][]Ref
	queue     []*TypeConfig

	typeFutures  map[Ref]*future[*TypeConfig]
	fieldFutures map[Ref]*future[*FieldConfig]

	pendingFields map[Ref]*FieldConfig
	pendingArgs   map[Ref]InputFields
	pendingInputs map[Ref]*InputFieldConfig
	usedFields    map[Ref]string

	fields           map[Ref][]*FieldConfig
	inputFields      map[Ref][]*InputFieldConfig
	extraFields      map[Ref][]FieldsFunc
	extraInputFields map[Ref][]InputFieldsFunc
	processed        map[Ref]bool

	resolving bool
	resolved  bool
	errs      []error
}

func newConfigStore(b *SchemaBuilder) *ConfigStore {
	return &ConfigStore{
		builder:          b,
		configs:          make(map[Ref]*TypeConfig),
		owners:           make(map[string]Ref),
		aliases:          make(map[Ref]string),
		aliasRefs:        make(map[string][]Ref),
		typeFutures:      make(map[Ref]*future[*TypeConfig]),
		fieldFutures:     make(map[Ref]*future[*FieldConfig]),
		pendingFields:    make(map[Ref]*FieldConfig),
		pendingArgs:      make(map[Ref]InputFields),
		pendingInputs:    make(map[Ref]*InputFieldConfig),
		usedFields:       make(map[Ref]string),
		fields:           make(map[Ref][]*FieldConfig),
		inputFields:      make(map[Ref][]*InputFieldConfig),
		extraFields:      make(map[Ref][]FieldsFunc),
		extraInputFields: make(map[Ref][]InputFieldsFunc),
		processed:        make(map[Ref]bool),
	}
}

// NewRef issues a fresh ref. A non-empty name associates the ref with that
// schema name right away; an empty name leaves a placeholder to be named
// later with AssociateRefWithName or by registering a config for it.
func (s *ConfigStore) NewRef(kind RefKind, name string) Ref {
	s.next++
	ref := Ref{id: s.next, kind: kind}
	if name != "" {
		s.aliases[ref] = name
		s.aliasRefs[name] = append(s.aliasRefs[name], ref)
	}
	return ref
}

// RegisterType stores the config for tc.Ref and fires OnTypeConfig callbacks
// waiting on it or on any ref associated with its name.
func (s *ConfigStore) RegisterType(tc *TypeConfig) error {
	ref := tc.Ref
	if ref.IsZero() {
		return errUnresolved(ref, tc.Name, "type config without ref")
	}
	if prev, ok := s.configs[ref]; ok {
		return errDuplicateRef(ref, prev.Name)
	}
	if want := refKindOf(tc.Kind); want != ref.kind {
		return errMismatch(tc.Name, "ref of kind "+string(ref.kind)+" cannot hold a "+string(want)+" config")
	}
	if alias, ok := s.aliases[ref]; ok {
		if tc.Name == "" {
			tc.Name = alias
		} else if alias != tc.Name {
			return errRenamed(ref, alias, tc.Name)
		}
	}
	if tc.Name == "" {
		return errUnresolved(ref, "", "type config without name")
	}
	if owner, ok := s.owners[tc.Name]; ok {
		return errNameTaken(ref, owner, tc.Name)
	}

	s.configs[ref] = tc
	s.owners[tc.Name] = ref
	if _, ok := s.aliases[ref]; !ok {
		s.aliases[ref] = tc.Name
		s.aliasRefs[tc.Name] = append(s.aliasRefs[tc.Name], ref)
	}
	s.queue = append(s.queue, tc)

	for _, r := range s.aliasRefs[tc.Name] {
		if err := s.typeFuture(r).resolve(tc); err != nil {
			return err
		}
	}
	return nil
}

// AssociateRefWithName binds ref to a schema name. A ref keeps the first
// name it was bound to, and a name already owned by the config of another
// ref cannot be bound. Refs associated before any config claims the name
// resolve to the config registered under it later.
func (s *ConfigStore) AssociateRefWithName(ref Ref, name string) error {
	if current, ok := s.aliases[ref]; ok {
		if current == name {
			return nil
		}
		return errRenamed(ref, current, name)
	}
	if owner, ok := s.owners[name]; ok && owner != ref {
		return errNameTaken(ref, owner, name)
	}
	s.aliases[ref] = name
	s.aliasRefs[name] = append(s.aliasRefs[name], ref)
	if tc := s.lookup(ref); tc != nil {
		return s.typeFuture(ref).resolve(tc)
	}
	return nil
}

// GetTypeConfig returns the config registered for ref or for the name ref is
// associated with.
func (s *ConfigStore) GetTypeConfig(ref Ref) (*TypeConfig, error) {
	if tc := s.lookup(ref); tc != nil {
		return tc, nil
	}
	return nil, errUnresolved(ref, s.aliases[ref], "no type config registered")
}

// NameOf returns the schema name of an output type reference.
func (s *ConfigStore) NameOf(t OutputType) (string, error) {
	ref, name := t.outputType()
	if ref.IsZero() {
		return name, nil
	}
	tc, err := s.GetTypeConfig(ref)
	if err != nil {
		return "", err
	}
	return tc.Name, nil
}

// TypeConfigByName returns the config registered under name.
func (s *ConfigStore) TypeConfigByName(name string) (*TypeConfig, bool) {
	ref, ok := s.owners[name]
	if !ok {
		return nil, false
	}
	return s.configs[ref], true
}

// TypeConfigs returns all configs in registration order.
func (s *ConfigStore) TypeConfigs() []*TypeConfig {
	return append([]*TypeConfig(nil), s.queue...)
}

// OnTypeConfig runs cb once ref has a config; immediately if it already has one.
// Errors and panics of cb surface as a *PluginHookError.
func (s *ConfigStore) OnTypeConfig(ref Ref, cb func(*TypeConfig) error) error {
	return s.typeFuture(ref).subscribe(func(tc *TypeConfig) error {
		return s.callback("OnTypeConfig", tc.Name, func() error { return cb(tc) })
	})
}

// OnFieldUse runs cb once the field is attached to a parent type under its
// final name; immediately if that already happened.
func (s *ConfigStore) OnFieldUse(ref FieldRef, cb func(*FieldConfig) error) error {
	f, ok := s.fieldFutures[ref.Ref]
	if !ok {
		f = &future[*FieldConfig]{}
		s.fieldFutures[ref.Ref] = f
	}
	return f.subscribe(func(fc *FieldConfig) error {
		return s.callback("OnFieldUse", fc.ParentType+"."+fc.Name, func() error { return cb(fc) })
	})
}

// callback runs a deferred callback, turning its error or panic into a
// *PluginHookError located at the type or field it waited on. Errors of
// nested callbacks keep their own location.
func (s *ConfigStore) callback(hook, location string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
		if err == nil {
			return
		}
		var hookErr *PluginHookError
		if errors.As(err, &hookErr) {
			return
		}
		err = &PluginHookError{Hook: hook, Location: location, Err: err}
		s.builder.log.Error("deferred callback failed", zap.String("hook", hook), zap.String("location", location), zap.Error(err))
	}()
	return fn()
}

// AddFields queues fn to contribute fields to the object or interface ref.
// When the type was already processed by a running resolution, fn runs now.
func (s *ConfigStore) AddFields(ref Ref, fn FieldsFunc) error {
	if tc := s.lookup(ref); tc != nil && s.processed[tc.Ref] {
		return s.addFields(tc, fn)
	}
	s.extraFields[ref] = append(s.extraFields[ref], fn)
	return nil
}

// AddInputFields queues fn to contribute fields to the input object ref.
func (s *ConfigStore) AddInputFields(ref Ref, fn InputFieldsFunc) error {
	if tc := s.lookup(ref); tc != nil && s.processed[tc.Ref] {
		return s.addInputFields(tc, fn)
	}
	s.extraInputFields[ref] = append(s.extraInputFields[ref], fn)
	return nil
}

// Fields returns the attached fields of an object or interface. It is only
// complete once resolution finished.
func (s *ConfigStore) Fields(ref Ref) []*FieldConfig {
	if tc := s.lookup(ref); tc != nil {
		return s.fields[tc.Ref]
	}
	return nil
}

// InputFields returns the attached fields of an input object.
func (s *ConfigStore) InputFields(ref Ref) []*InputFieldConfig {
	if tc := s.lookup(ref); tc != nil {
		return s.inputFields[tc.Ref]
	}
	return nil
}

// Resolved reports whether the fixed-point resolution has completed.
func (s *ConfigStore) Resolved() bool { return s.resolved }

func (s *ConfigStore) lookup(ref Ref) *TypeConfig {
	if tc, ok := s.configs[ref]; ok {
		return tc
	}
	if name, ok := s.aliases[ref]; ok {
		if owner, ok := s.owners[name]; ok {
			return s.configs[owner]
		}
	}
	return nil
}

func (s *ConfigStore) typeFuture(ref Ref) *future[*TypeConfig] {
	f, ok := s.typeFutures[ref]
	if !ok {
		f = &future[*TypeConfig]{}
		s.typeFutures[ref] = f
		if tc := s.lookup(ref); tc != nil {
			f.resolved, f.value = true, tc
		}
	}
	return f
}

func (s *ConfigStore) fail(err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

func (s *ConfigStore) takeErrors() []error {
	errs := s.errs
	s.errs = nil
	return errs
}

func (s *ConfigStore) newField(fc *FieldConfig, args InputFields) FieldRef {
	ref := FieldRef{s.NewRef(KindField, "")}
	fc.Ref = ref
	s.pendingFields[ref.Ref] = fc
	if len(args) > 0 {
		s.pendingArgs[ref.Ref] = args
	}
	return ref
}

func (s *ConfigStore) newInputField(ic *InputFieldConfig) InputFieldRef {
	ref := InputFieldRef{s.NewRef(KindInputField, "")}
	ic.Ref = ref
	s.pendingInputs[ref.Ref] = ic
	return ref
}

// resolve runs the fixed-point pass: every queued type gets its fields
// attached, and types registered meanwhile are appended to the same queue.
func (s *ConfigStore) resolve() error {
	s.resolving = true
	defer func() { s.resolving = false }()

	for i := 0; i < len(s.queue); i++ {
		if err := s.processType(s.queue[i]); err != nil {
			return err
		}
	}
	s.resolved = true

	var errs []error
	for ref := range s.extraFields {
		errs = append(errs, errUnresolved(ref, s.aliases[ref], "fields added to a type that was never registered"))
	}
	for ref := range s.extraInputFields {
		errs = append(errs, errUnresolved(ref, s.aliases[ref], "input fields added to a type that was never registered"))
	}
	errs = append(errs, s.checkRefs()...)
	if len(errs) > 0 {
		return BuildError(errs)
	}
	return nil
}

func (s *ConfigStore) processType(tc *TypeConfig) error {
	s.processed[tc.Ref] = true
	refs := s.aliasRefs[tc.Name]
	switch tc.Kind {
	case schema.TypeKindObject, schema.TypeKindInterface:
		fns := append([]FieldsFunc(nil), tc.fields...)
		for _, r := range refs {
			fns = append(fns, s.extraFields[r]...)
			delete(s.extraFields, r)
		}
		for _, fn := range fns {
			if err := s.addFields(tc, fn); err != nil {
				return err
			}
		}
	case schema.TypeKindInputObject:
		fns := append([]InputFieldsFunc(nil), tc.inputFields...)
		for _, r := range refs {
			fns = append(fns, s.extraInputFields[r]...)
			delete(s.extraInputFields, r)
		}
		for _, fn := range fns {
			if err := s.addInputFields(tc, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ConfigStore) addFields(tc *TypeConfig, fn FieldsFunc) error {
	fields := fn(newFieldBuilder(s, tc))
	for _, name := range sortedKeys(fields) {
		if err := s.attachField(tc, name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConfigStore) addInputFields(tc *TypeConfig, fn InputFieldsFunc) error {
	fields := fn(newInputFieldBuilder(s, InputFieldKindInput, tc.Name))
	for _, name := range sortedKeys(fields) {
		ic, err := s.attachInput(fields[name], name, tc.Name, "")
		if err != nil {
			return err
		}
		for _, existing := range s.inputFields[tc.Ref] {
			if existing.Name == name {
				return errDuplicateField(tc.Name, name)
			}
		}
		s.inputFields[tc.Ref] = append(s.inputFields[tc.Ref], ic)
	}
	return nil
}

func (s *ConfigStore) attachField(tc *TypeConfig, name string, ref FieldRef) error {
	if prev, ok := s.usedFields[ref.Ref]; ok {
		return errFieldRefReused(ref.Ref, prev, tc.Name+"."+name)
	}
	fc, ok := s.pendingFields[ref.Ref]
	if !ok {
		return errUnresolved(ref.Ref, tc.Name+"."+name, "field ref was not created by this builder")
	}
	for _, existing := range s.fields[tc.Ref] {
		if existing.Name == name {
			return errDuplicateField(tc.Name, name)
		}
	}
	delete(s.pendingFields, ref.Ref)
	s.usedFields[ref.Ref] = tc.Name + "." + name

	fc.Name = name
	fc.ParentType = tc.Name
	if fc.Resolve == nil {
		if fc.Kind == FieldKindSubscription {
			fc.Resolve = identityResolver
		} else {
			fc.Resolve = PropertyResolver(name)
		}
	}
	args := s.pendingArgs[ref.Ref]
	delete(s.pendingArgs, ref.Ref)
	for _, argName := range sortedKeys(args) {
		ic, err := s.attachInput(args[argName], argName, tc.Name, name)
		if err != nil {
			return err
		}
		fc.Args = append(fc.Args, ic)
	}
	s.fields[tc.Ref] = append(s.fields[tc.Ref], fc)

	f, ok := s.fieldFutures[ref.Ref]
	if !ok {
		f = &future[*FieldConfig]{}
		s.fieldFutures[ref.Ref] = f
	}
	return f.resolve(fc)
}

func (s *ConfigStore) attachInput(ref InputFieldRef, name, parentType, parentField string) (*InputFieldConfig, error) {
	location := parentType + "." + name
	if parentField != "" {
		location = parentType + "." + parentField + "(" + name + ")"
	}
	if prev, ok := s.usedFields[ref.Ref]; ok {
		return nil, errFieldRefReused(ref.Ref, prev, location)
	}
	ic, ok := s.pendingInputs[ref.Ref]
	if !ok {
		return nil, errUnresolved(ref.Ref, location, "input field ref was not created by this builder")
	}
	delete(s.pendingInputs, ref.Ref)
	s.usedFields[ref.Ref] = location

	ic.Name = name
	ic.ParentType = parentType
	ic.ParentField = parentField
	if parentField != "" {
		ic.Kind = InputFieldKindArg
	} else {
		ic.Kind = InputFieldKindInput
	}
	return ic, nil
}

// typeOf resolves the named type behind spec. The config is nil for builtin scalars.
func (s *ConfigStore) typeOf(spec TypeSpec) (*TypeConfig, string, bool) {
	if !spec.Ref.IsZero() {
		tc := s.lookup(spec.Ref)
		if tc == nil {
			return nil, s.aliases[spec.Ref], false
		}
		return tc, tc.Name, true
	}
	if tc, ok := s.TypeConfigByName(spec.Name); ok {
		return tc, tc.Name, true
	}
	return nil, spec.Name, schema.IsBuiltinScalar(spec.Name)
}

func (s *ConfigStore) checkRefs() []error {
	var errs []error
	checkType := func(location string, spec TypeSpec, input bool) {
		tc, name, ok := s.typeOf(spec)
		if !ok {
			errs = append(errs, errUnresolved(spec.Ref, name, "referenced by "+location))
			return
		}
		if tc == nil {
			return
		}
		if input && !tc.Kind.IsInput() {
			errs = append(errs, errMismatch(tc.Name, location+" expects an input type, got "+string(tc.Kind)))
		}
		if !input && !tc.Kind.IsOutput() {
			errs = append(errs, errMismatch(tc.Name, location+" expects an output type, got "+string(tc.Kind)))
		}
	}
	checkKind := func(location string, ref Ref, kind schema.TypeKind) {
		tc := s.lookup(ref)
		if tc == nil {
			errs = append(errs, errUnresolved(ref, s.aliases[ref], "referenced by "+location))
			return
		}
		if tc.Kind != kind {
			errs = append(errs, errMismatch(tc.Name, location+" expects "+string(kind)+", got "+string(tc.Kind)))
		}
	}

	for _, tc := range s.queue {
		for _, iface := range tc.Interfaces {
			checkKind(tc.Name+" implements", iface.Ref, schema.TypeKindInterface)
		}
		for _, member := range tc.Members {
			checkKind(tc.Name+" member", member.Ref, schema.TypeKindObject)
		}
		for _, fc := range s.fields[tc.Ref] {
			checkType(tc.Name+"."+fc.Name, fc.Type, false)
			for _, arg := range fc.Args {
				checkType(tc.Name+"."+fc.Name+"("+arg.Name+")", arg.Type, true)
			}
		}
		for _, ic := range s.inputFields[tc.Ref] {
			checkType(tc.Name+"."+ic.Name, ic.Type, true)
		}
	}
	return errs
}

func refKindOf(kind schema.TypeKind) RefKind {
	switch kind {
	case schema.TypeKindObject:
		return KindObject
	case schema.TypeKindInterface:
		return KindInterface
	case schema.TypeKindUnion:
		return KindUnion
	case schema.TypeKindInputObject:
		return KindInput
	case schema.TypeKindEnum:
		return KindEnum
	default:
		return KindScalar
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
