package core

import (
	"context"
	"reflect"
	"strings"
)

// PropertyResolver returns a resolver reading property from the parent
// value. Maps are indexed by key; structs match an exported field by its
// json tag or, case-insensitively, by its Go name.
func PropertyResolver(property string) Resolver {
	return func(_ context.Context, source any, _ map[string]any, _ *ResolveInfo) (any, error) {
		return readProperty(source, property), nil
	}
}

func identityResolver(_ context.Context, source any, _ map[string]any, _ *ResolveInfo) (any, error) {
	return source, nil
}

func readProperty(source any, property string) any {
	switch v := source.(type) {
	case nil:
		return nil
	case map[string]any:
		return v[property]
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(property).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		var byName *reflect.StructField
		for _, f := range reflect.VisibleFields(rv.Type()) {
			if !f.IsExported() || f.Anonymous {
				continue
			}
			if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == property {
				return fieldValue(rv, f)
			}
			if byName == nil && strings.EqualFold(f.Name, property) {
				f := f
				byName = &f
			}
		}
		if byName != nil {
			return fieldValue(rv, *byName)
		}
	}
	return nil
}

func fieldValue(rv reflect.Value, f reflect.StructField) any {
	v, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return nil
	}
	return v.Interface()
}
