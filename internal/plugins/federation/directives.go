package federation

import (
	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/schema"
)

// Names of the directives imported through @link, in import order.
var linkImports = []string{
	"@key",
	"@shareable",
	"@inaccessible",
	"@tag",
	"@provides",
	"@requires",
	"@external",
	"@extends",
	"@override",
}

var everyLocation = []string{
	"FIELD_DEFINITION", "OBJECT", "INTERFACE", "UNION", "ARGUMENT_DEFINITION",
	"SCALAR", "ENUM", "ENUM_VALUE", "INPUT_OBJECT", "INPUT_FIELD_DEFINITION",
}

func nonNullString(name string) *schema.InputValue {
	return schema.NewInputValue(name, "", schema.NonNullType(schema.NamedType("String")))
}

func directiveDefinitions() []*schema.Directive {
	return []*schema.Directive{
		{Name: "link", Locations: []string{"SCHEMA"}, IsRepeatable: true, Arguments: []*schema.InputValue{
			nonNullString("url"),
			schema.NewInputValue("import", "", schema.ListType(schema.NamedType("String"))),
		}},
		{Name: "key", Locations: []string{"OBJECT", "INTERFACE"}, IsRepeatable: true, Arguments: []*schema.InputValue{
			nonNullString("fields"),
			schema.NewInputValue("resolvable", "", schema.NamedType("Boolean")).SetDefault(true),
		}},
		{Name: "requires", Locations: []string{"FIELD_DEFINITION"}, Arguments: []*schema.InputValue{nonNullString("fields")}},
		{Name: "provides", Locations: []string{"FIELD_DEFINITION"}, Arguments: []*schema.InputValue{nonNullString("fields")}},
		{Name: "external", Locations: []string{"OBJECT", "FIELD_DEFINITION"}},
		{Name: "extends", Locations: []string{"OBJECT", "INTERFACE"}},
		{Name: "shareable", Locations: []string{"OBJECT", "FIELD_DEFINITION"}, IsRepeatable: true},
		{Name: "inaccessible", Locations: everyLocation},
		{Name: "tag", Locations: everyLocation, IsRepeatable: true, Arguments: []*schema.InputValue{nonNullString("name")}},
		{Name: "override", Locations: []string{"FIELD_DEFINITION"}, Arguments: []*schema.InputValue{nonNullString("from")}},
		{Name: "composeDirective", Locations: []string{"SCHEMA"}, IsRepeatable: true, Arguments: []*schema.InputValue{nonNullString("name")}},
		{Name: "interfaceObject", Locations: []string{"OBJECT"}},
	}
}

func isFederationDirective(name string) bool {
	for _, d := range directiveDefinitions() {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Directives returns an extension map applying ds, for the Extensions
// option of types, fields and arguments.
func Directives(ds ...*schema.AppliedDirective) map[string]any {
	return map[string]any{core.DirectivesExtension: ds}
}

// External marks a field as owned by another subgraph.
func External() *schema.AppliedDirective { return schema.NewAppliedDirective("external") }

// Requires names the external fields a field's resolver needs.
func Requires(fields Selection) *schema.AppliedDirective {
	return schema.NewAppliedDirective("requires", schema.Arg("fields", fields.String()))
}

// Provides names the fields of the returned entity this subgraph can resolve.
func Provides(fields Selection) *schema.AppliedDirective {
	return schema.NewAppliedDirective("provides", schema.Arg("fields", fields.String()))
}

// Shareable allows several subgraphs to resolve a field or type.
func Shareable() *schema.AppliedDirective { return schema.NewAppliedDirective("shareable") }

// Inaccessible hides an element from the supergraph API.
func Inaccessible() *schema.AppliedDirective { return schema.NewAppliedDirective("inaccessible") }

// Tag attaches a metadata tag.
func Tag(name string) *schema.AppliedDirective {
	return schema.NewAppliedDirective("tag", schema.Arg("name", name))
}

// Override moves resolution of a field from the named subgraph to this one.
func Override(from string) *schema.AppliedDirective {
	return schema.NewAppliedDirective("override", schema.Arg("from", from))
}
