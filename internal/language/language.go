// Package language parses the GraphQL fragments schema builders deal with,
// on top of gqlparser.
package language

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseSelectionSet parses a bare field set such as "id owner { id }", the
// form federation key and requires selections take.
func ParseSelectionSet(fields string) (SelectionSet, error) {
	if strings.TrimSpace(fields) == "" {
		return nil, &Error{Message: "empty selection set"}
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "selection", Input: "{" + fields + "}"})
	if err != nil {
		return nil, err
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) != 0 {
		return nil, &Error{Message: "selection must be a plain field set"}
	}
	return doc.Operations[0].SelectionSet, nil
}

// SelectedFieldNames returns the top-level field names of a selection set in order.
func SelectedFieldNames(set SelectionSet) []string {
	var names []string
	for _, sel := range set {
		if f, ok := sel.(*Field); ok {
			names = append(names, f.Name)
		}
	}
	return names
}
