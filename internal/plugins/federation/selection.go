package federation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/plugraph/internal/language"
)

// ErrInvalidSelection is returned for key, requires and provides selections
// that do not parse as a GraphQL field set.
var ErrInvalidSelection = errors.New("invalid field selection")

// Selection is a parsed field set such as "id" or "id owner { id }".
type Selection struct {
	fields string
	set    language.SelectionSet
}

// ParseSelection parses fields as a field set.
func ParseSelection(fields string) (Selection, error) {
	set, err := language.ParseSelectionSet(fields)
	if err != nil {
		return Selection{}, fmt.Errorf("%w %q: %v", ErrInvalidSelection, fields, err)
	}
	if !fieldsOnly(set) {
		return Selection{}, fmt.Errorf("%w %q: fragments are not allowed", ErrInvalidSelection, fields)
	}
	return Selection{fields: strings.Join(strings.Fields(fields), " "), set: set}, nil
}

// MustSelection is like ParseSelection but panics on error.
func MustSelection(fields string) Selection {
	s, err := ParseSelection(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the field set with whitespace collapsed.
func (s Selection) String() string { return s.fields }

// IsZero reports whether s was never parsed.
func (s Selection) IsZero() bool { return s.set == nil }

// FieldNames returns the top-level fields of the selection.
func (s Selection) FieldNames() []string { return language.SelectedFieldNames(s.set) }

func fieldsOnly(set language.SelectionSet) bool {
	for _, sel := range set {
		f, ok := sel.(*language.Field)
		if !ok || !fieldsOnly(f.SelectionSet) {
			return false
		}
	}
	return true
}
