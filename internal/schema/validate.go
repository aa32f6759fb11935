package schema

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Validate renders s and loads the result with gqlparser, returning the
// first structural problem it reports (undefined types, bad interface
// implementations, invalid directive uses and so on).
func Validate(s *Schema) error {
	_, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: Render(s)})
	if err != nil {
		return err
	}
	return nil
}
