package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RenderOptions tunes SDL output.
type RenderOptions struct {
	// ExtendSchema prints schema-level directives as an `extend schema`
	// block, the form federation subgraph SDL uses.
	ExtendSchema bool
	// SkipType hides whole types from the output.
	SkipType func(t *Type) bool
	// SkipField hides single fields of object types.
	SkipField func(parent *Type, f *Field) bool
	// SkipDirective hides directive definitions.
	SkipDirective func(d *Directive) bool
}

// Render produces SDL from the Schema.
// Deterministic ordering: type/directive names sorted lexicographically.
func Render(s *Schema) string {
	return RenderWith(s, RenderOptions{})
}

// RenderWith produces SDL from the Schema using opts.
func RenderWith(s *Schema, opts RenderOptions) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	if opts.ExtendSchema {
		renderSchemaExtension(&b, s)
	} else {
		renderSchemaDefinition(&b, s)
	}
	renderTypes(&b, s, opts)
	renderDirectiveDefinitions(&b, s, opts)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderTypes writes every non-builtin type that opts does not skip.
func renderTypes(b *strings.Builder, s *Schema, opts RenderOptions) {
	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		if typ.Kind == TypeKindScalar && IsBuiltinScalar(name) {
			continue
		}
		if opts.SkipType != nil && opts.SkipType(typ) {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderScalar(b, typ)
		case TypeKindEnum:
			renderEnum(b, typ)
		case TypeKindInputObject:
			renderInputObject(b, typ)
		case TypeKindObject:
			renderObject(b, typ, opts.SkipField)
		case TypeKindInterface:
			renderInterface(b, typ)
		case TypeKindUnion:
			renderUnion(b, typ)
		}
	}
}

func renderDirectiveDefinitions(b *strings.Builder, s *Schema, opts RenderOptions) {
	directiveNames := make([]string, 0, len(s.Directives))
	for name, directive := range s.Directives {
		if isBuiltinDirective(directive) {
			continue
		}
		if opts.SkipDirective != nil && opts.SkipDirective(directive) {
			continue
		}
		directiveNames = append(directiveNames, name)
	}
	sort.Strings(directiveNames)
	for _, name := range directiveNames {
		renderDirective(b, s.Directives[name])
	}
}

// The schema block is only printed when it carries information: non-default
// root names or applied directives.
func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	conventional := (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
	if conventional && len(s.AppliedDirectives) == 0 {
		return
	}
	renderDescription(b, s.Description, "")
	b.WriteString("schema")
	renderAppliedDirectives(b, s.AppliedDirectives)
	b.WriteString(" {\n")
	if s.QueryType != "" {
		b.WriteString("  query: " + s.QueryType + "\n")
	}
	if s.MutationType != "" {
		b.WriteString("  mutation: " + s.MutationType + "\n")
	}
	if s.SubscriptionType != "" {
		b.WriteString("  subscription: " + s.SubscriptionType + "\n")
	}
	b.WriteString("}\n\n")
}

func renderSchemaExtension(b *strings.Builder, s *Schema) {
	if len(s.AppliedDirectives) == 0 {
		return
	}
	b.WriteString("extend schema\n")
	for _, d := range s.AppliedDirectives {
		b.WriteString(" ")
		renderAppliedDirectives(b, []*AppliedDirective{d})
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// ----- render helpers -----

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent + "\"\"\"\n")
	// Escape quotes in description
	escaped := strings.ReplaceAll(desc, "\"", "\\\"")
	for _, line := range strings.Split(escaped, "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + "\"\"\"\n")
}

func renderDeprecation(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: ")
		b.WriteString(strconv.Quote(reason))
		b.WriteString(")")
	}
}

func renderAppliedDirectives(b *strings.Builder, directives []*AppliedDirective) {
	for _, d := range directives {
		b.WriteString(" @")
		b.WriteString(d.Name)
		if len(d.Args) == 0 {
			continue
		}
		b.WriteString("(")
		for i, arg := range d.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Name)
			b.WriteString(": ")
			b.WriteString(renderValue(arg.Value))
		}
		b.WriteString(")")
	}
}

func renderScalar(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("scalar ")
	b.WriteString(typ.Name)
	if typ.SpecifiedByURL != nil {
		b.WriteString(" @specifiedBy(url: ")
		b.WriteString(strconv.Quote(*typ.SpecifiedByURL))
		b.WriteString(")")
	}
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("enum ")
	b.WriteString(typ.Name)
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString(" {\n")
	for _, val := range typ.EnumValues {
		renderDescription(b, val.Description, "  ")
		b.WriteString("  ")
		b.WriteString(val.Name)
		renderDeprecation(b, val.IsDeprecated, val.DeprecationReason)
		renderAppliedDirectives(b, val.Directives)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("input ")
	b.WriteString(typ.Name)
	if typ.OneOf {
		b.WriteString(" @oneOf")
	}
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString(" {\n")
	for _, field := range typ.InputFields {
		renderDescription(b, field.Description, "  ")
		b.WriteString("  ")
		renderInputValue(b, field)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputValue(b *strings.Builder, v *InputValue) {
	b.WriteString(v.Name)
	b.WriteString(": ")
	b.WriteString(renderTypeRef(v.Type))
	if v.DefaultValue != nil {
		b.WriteString(" = ")
		b.WriteString(renderValue(v.DefaultValue))
	}
	renderDeprecation(b, v.IsDeprecated, v.DeprecationReason)
	renderAppliedDirectives(b, v.Directives)
}

func renderImplements(b *strings.Builder, interfaces []string) {
	if len(interfaces) == 0 {
		return
	}
	b.WriteString(" implements ")
	b.WriteString(strings.Join(interfaces, " & "))
}

// renderObject writes an object type; fields accepted by skip are omitted.
func renderObject(b *strings.Builder, typ *Type, skip func(*Type, *Field) bool) {
	renderDescription(b, typ.Description, "")
	b.WriteString("type ")
	b.WriteString(typ.Name)
	renderImplements(b, typ.Interfaces)
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		if skip != nil && skip(typ, field) {
			continue
		}
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderInterface(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("interface ")
	b.WriteString(typ.Name)
	renderImplements(b, typ.Interfaces)
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("union ")
	b.WriteString(typ.Name)
	renderAppliedDirectives(b, typ.Directives)
	b.WriteString(" = ")
	b.WriteString(strings.Join(typ.PossibleTypes, " | "))
	b.WriteString("\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	renderDescription(b, field.Description, "  ")
	b.WriteString("  ")
	b.WriteString(field.Name)
	if len(field.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range field.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			renderInputValue(b, arg)
		}
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(renderTypeRef(field.Type))
	renderDeprecation(b, field.IsDeprecated, field.DeprecationReason)
	renderAppliedDirectives(b, field.Directives)
	b.WriteString("\n")
}

func renderDirective(b *strings.Builder, directive *Directive) {
	renderDescription(b, directive.Description, "")
	b.WriteString("directive @")
	b.WriteString(directive.Name)
	if len(directive.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range directive.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			renderInputValue(b, arg)
		}
		b.WriteString(")")
	}
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on ")
	b.WriteString(strings.Join(directive.Locations, " | "))
	b.WriteString("\n\n")
}

func renderTypeRef(typeRef *TypeRef) string {
	if typeRef == nil {
		return ""
	}

	switch typeRef.Kind {
	case TypeRefKindNamed:
		return typeRef.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(typeRef.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(typeRef.OfType) + "!"
	default:
		return ""
	}
}

// EnumLiteral is rendered without quotes in default values and directive arguments.
type EnumLiteral string

// renderValue renders a GraphQL value (for default values, directive arguments, etc.)
func renderValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case EnumLiteral:
		return string(v)
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = strconv.Quote(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+renderValue(v[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
