package federation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection("  id\n owner {  id }")
	require.NoError(t, err)
	require.Equal(t, "id owner { id }", sel.String())
	require.Equal(t, []string{"id", "owner"}, sel.FieldNames())
	require.False(t, sel.IsZero())

	for _, bad := range []string{"", "   ", "id {", "...on User { id }", "id }"} {
		_, err := ParseSelection(bad)
		require.ErrorIs(t, err, ErrInvalidSelection, bad)
	}
	require.Panics(t, func() { MustSelection("{") })
}
