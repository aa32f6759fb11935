package core

import (
	"sort"

	"github.com/hanpama/plugraph/internal/schema"
)

// materialize builds the schema in two phases: first one placeholder type per
// config indexed by ref id, then field maps wired by index lookup.
func (b *SchemaBuilder) materialize(opts BuildOptions) (*schema.Schema, error) {
	st := b.store
	s := schema.NewSchema(opts.Description)
	for _, d := range opts.Directives {
		s.ApplyDirective(d)
	}
	for _, d := range b.directives {
		s.AddDirective(d)
	}

	types := make([]*schema.Type, st.next+1)
	for _, tc := range st.queue {
		t := schema.NewType(tc.Name, tc.Kind, tc.Description)
		t.Directives = directivesOf(tc.Extensions)
		t.Extensions = cloneExtensions(tc.Extensions)
		t.IsTypeOf = tc.IsTypeOf
		t.ResolveType = tc.ResolveType
		t.Serialize = tc.Serialize
		t.ParseValue = tc.ParseValue
		t.SetOneOf(tc.OneOf).SetSpecifiedByURL(tc.SpecifiedByURL)
		for _, v := range tc.Values {
			ev := schema.NewEnumValue(v.Name, v.Description)
			ev.Value = v.Value
			ev.Directives = directivesOf(v.Extensions)
			if v.DeprecationReason != "" {
				ev.Deprecate(v.DeprecationReason)
			}
			t.AddEnumValue(ev)
		}
		types[tc.Ref.id] = t
		s.AddType(t)
		switch tc.Root {
		case FieldKindQuery:
			s.SetQueryType(tc.Name)
		case FieldKindMutation:
			s.SetMutationType(tc.Name)
		case FieldKindSubscription:
			s.SetSubscriptionType(tc.Name)
		}
	}

	var errs []error
	named := func(location string, ref Ref) *schema.Type {
		if tc := st.lookup(ref); tc != nil && tc.Ref.id < len(types) && types[tc.Ref.id] != nil {
			return types[tc.Ref.id]
		}
		errs = append(errs, errUnresolved(ref, st.aliases[ref], "referenced by "+location))
		return nil
	}
	typeRef := func(location string, spec TypeSpec) *schema.TypeRef {
		name := spec.Name
		if !spec.Ref.IsZero() {
			t := named(location, spec.Ref)
			if t == nil {
				return nil
			}
			name = t.Name
		}
		t := schema.NamedType(name)
		if spec.List {
			if !spec.NullableItems {
				t = schema.NonNullType(t)
			}
			t = schema.ListType(t)
		}
		if !spec.Nullable {
			t = schema.NonNullType(t)
		}
		return t
	}
	inputValue := func(location string, ic *InputFieldConfig) *schema.InputValue {
		v := schema.NewInputValue(ic.Name, ic.Description, typeRef(location, ic.Type)).SetDefault(ic.DefaultValue)
		if ic.DeprecationReason != "" {
			v.Deprecate(ic.DeprecationReason)
		}
		v.Directives = directivesOf(ic.Extensions)
		v.Extensions = cloneExtensions(ic.Extensions)
		return v
	}

	for _, tc := range st.queue {
		t := types[tc.Ref.id]
		for _, iface := range tc.Interfaces {
			target := named(tc.Name+" implements", iface.Ref)
			if target == nil {
				continue
			}
			t.AddInterface(target.Name)
			if tc.Kind == schema.TypeKindObject {
				target.AddPossibleType(t.Name)
			}
		}
		for _, member := range tc.Members {
			if target := named(tc.Name+" member", member.Ref); target != nil {
				t.AddPossibleType(target.Name)
			}
		}
		for _, fc := range st.fields[tc.Ref] {
			location := tc.Name + "." + fc.Name
			f := schema.NewField(fc.Name, fc.Description, typeRef(location, fc.Type)).SetAsync(fc.Async)
			for _, arg := range fc.Args {
				f.AddArgument(inputValue(location+"("+arg.Name+")", arg))
			}
			if fc.DeprecationReason != "" {
				f.Deprecate(fc.DeprecationReason)
			}
			f.Directives = directivesOf(fc.Extensions)
			f.Extensions = cloneExtensions(fc.Extensions)
			f.Resolve = fc.Resolve
			f.Subscribe = fc.Subscribe
			t.AddField(f)
		}
		for _, ic := range st.inputFields[tc.Ref] {
			t.AddInputField(inputValue(tc.Name+"."+ic.Name, ic))
		}
	}
	if len(errs) > 0 {
		return nil, BuildError(errs)
	}
	return s, nil
}

// directivesOf reads the "directives" extension. It accepts a list of applied
// directives or a map from directive name to an argument map; the map form is
// emitted in name order.
func directivesOf(ext map[string]any) []*schema.AppliedDirective {
	switch v := ext[DirectivesExtension].(type) {
	case []*schema.AppliedDirective:
		return append([]*schema.AppliedDirective(nil), v...)
	case map[string]map[string]any:
		out := make([]*schema.AppliedDirective, 0, len(v))
		for _, name := range sortedKeys(v) {
			out = append(out, appliedFromMap(name, v[name]))
		}
		return out
	case map[string]any:
		out := make([]*schema.AppliedDirective, 0, len(v))
		for _, name := range sortedKeys(v) {
			args, _ := v[name].(map[string]any)
			out = append(out, appliedFromMap(name, args))
		}
		return out
	}
	return nil
}

func appliedFromMap(name string, args map[string]any) *schema.AppliedDirective {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := schema.NewAppliedDirective(name)
	for _, k := range keys {
		d.Args = append(d.Args, schema.Arg(k, args[k]))
	}
	return d
}
