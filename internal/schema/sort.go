package schema

import "sort"

// SortLexicographic returns a copy of s in which fields, arguments, input
// fields, enum values, interfaces and union members are ordered by name.
// Resolver functions and extensions are carried over unchanged.
func SortLexicographic(s *Schema) *Schema {
	out := &Schema{
		QueryType:         s.QueryType,
		MutationType:      s.MutationType,
		SubscriptionType:  s.SubscriptionType,
		Types:             make(map[string]*Type, len(s.Types)),
		Directives:        make(map[string]*Directive, len(s.Directives)),
		Description:       s.Description,
		AppliedDirectives: s.AppliedDirectives,
		Extensions:        s.Extensions,
	}
	for name, t := range s.Types {
		if t.Kind == TypeKindScalar && IsBuiltinScalar(name) {
			out.Types[name] = t
			continue
		}
		out.Types[name] = sortType(t)
	}
	for name, d := range s.Directives {
		if isBuiltinDirective(d) {
			out.Directives[name] = d
			continue
		}
		cp := *d
		cp.Arguments = sortInputValues(d.Arguments)
		out.Directives[name] = &cp
	}
	return out
}

func sortType(t *Type) *Type {
	cp := *t
	cp.Interfaces = sortedStrings(t.Interfaces)
	cp.PossibleTypes = sortedStrings(t.PossibleTypes)
	cp.InputFields = sortInputValues(t.InputFields)

	if t.Fields != nil {
		cp.Fields = make([]*Field, len(t.Fields))
		for i, f := range t.Fields {
			fc := *f
			fc.Arguments = sortInputValues(f.Arguments)
			cp.Fields[i] = &fc
		}
		sort.SliceStable(cp.Fields, func(i, j int) bool { return cp.Fields[i].Name < cp.Fields[j].Name })
	}
	if t.EnumValues != nil {
		cp.EnumValues = append([]*EnumValue(nil), t.EnumValues...)
		sort.SliceStable(cp.EnumValues, func(i, j int) bool { return cp.EnumValues[i].Name < cp.EnumValues[j].Name })
	}
	return &cp
}

func sortInputValues(values []*InputValue) []*InputValue {
	if values == nil {
		return nil
	}
	out := append([]*InputValue(nil), values...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
