package core

import "github.com/hanpama/plugraph/internal/schema"

// InputFieldMapping marks the arguments or input fields a plugin cares about,
// following nested input object types. Mappings of recursive input types
// share the same *InputFieldMapping.
type InputFieldMapping struct {
	Fields map[string]*InputFieldMapEntry
}

// InputFieldMapEntry is one mapped input value.
type InputFieldMapEntry struct {
	Config *InputFieldConfig
	// Value is what the selector returned; nil when only nested fields are mapped.
	Value any
	// Nested is set for input object types.
	Nested *InputFieldMapping
}

// MapInputFields builds a mapping over fields using selector, which returns a
// value and true for every input value that should be mapped. Input object
// types are followed through the config store. Only valid once resolution
// finished.
func (b *SchemaBuilder) MapInputFields(fields []*InputFieldConfig, selector func(ic *InputFieldConfig) (any, bool)) *InputFieldMapping {
	memo := make(map[Ref]*InputFieldMapping)
	m := b.mapInputFields(fields, selector, memo)
	if !m.hasValues(make(map[*InputFieldMapping]bool)) {
		return nil
	}
	return m
}

func (b *SchemaBuilder) mapInputFields(fields []*InputFieldConfig, selector func(*InputFieldConfig) (any, bool), memo map[Ref]*InputFieldMapping) *InputFieldMapping {
	m := &InputFieldMapping{Fields: make(map[string]*InputFieldMapEntry)}
	for _, ic := range fields {
		entry := &InputFieldMapEntry{Config: ic}
		if v, ok := selector(ic); ok {
			entry.Value = v
		}
		if tc, _, ok := b.store.typeOf(ic.Type); ok && tc != nil && tc.Kind == schema.TypeKindInputObject {
			nested, seen := memo[tc.Ref]
			if !seen {
				nested = &InputFieldMapping{Fields: make(map[string]*InputFieldMapEntry)}
				memo[tc.Ref] = nested
				*nested = *b.mapInputFields(b.store.inputFields[tc.Ref], selector, memo)
			}
			entry.Nested = nested
		}
		if entry.Value != nil || entry.Nested != nil {
			m.Fields[ic.Name] = entry
		}
	}
	return m
}

func (m *InputFieldMapping) hasValues(seen map[*InputFieldMapping]bool) bool {
	if m == nil || seen[m] {
		return false
	}
	seen[m] = true
	for _, e := range m.Fields {
		if e.Value != nil || e.Nested.hasValues(seen) {
			return true
		}
	}
	return false
}

// MapInputValues returns a copy of values in which every mapped input value
// was passed through fn. Lists are mapped item by item and nested input
// objects recursively; values is never modified.
func MapInputValues(values map[string]any, m *InputFieldMapping, fn func(entry *InputFieldMapEntry, value any) (any, error)) (map[string]any, error) {
	if m == nil || values == nil {
		return values, nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	for name, entry := range m.Fields {
		v, ok := values[name]
		if !ok || v == nil {
			continue
		}
		mapped, err := mapInputValue(entry, v, entry.Config.Type.List, fn)
		if err != nil {
			return nil, err
		}
		out[name] = mapped
	}
	return out, nil
}

func mapInputValue(entry *InputFieldMapEntry, v any, list bool, fn func(*InputFieldMapEntry, any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	if list {
		items, ok := v.([]any)
		if !ok {
			return mapInputValue(entry, v, false, fn)
		}
		out := make([]any, len(items))
		for i, item := range items {
			mapped, err := mapInputValue(entry, item, false, fn)
			if err != nil {
				return nil, err
			}
			out[i] = mapped
		}
		return out, nil
	}
	if entry.Nested != nil && len(entry.Nested.Fields) > 0 {
		if obj, ok := v.(map[string]any); ok {
			mapped, err := MapInputValues(obj, entry.Nested, fn)
			if err != nil {
				return nil, err
			}
			v = mapped
		}
	}
	if entry.Value != nil {
		return fn(entry, v)
	}
	return v, nil
}
