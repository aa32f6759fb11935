package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/core"
)

func buildSignup(t *testing.T) core.Resolver {
	t.Helper()
	b := core.NewSchemaBuilder(core.Options{Plugins: []core.PluginFactory{New(Options{})}})
	profile := b.InputType("ProfileInput", core.InputObjectOptions{Fields: func(t *core.InputFieldBuilder) core.InputFields {
		return core.InputFields{"age": t.Int(core.InputFieldOptions{Extensions: Validate("gte=0,lte=150")})}
	}})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"signup": t.Boolean(core.FieldOptions{
			Args: core.InputFields{
				"name":    t.Arg.String(core.InputFieldOptions{Extensions: Validate("min=3")}),
				"email":   t.Arg.String(core.InputFieldOptions{Extensions: Validate("email")}),
				"tags":    t.Arg.StringList(core.InputFieldOptions{Extensions: Validate("alphanum")}),
				"profile": t.Arg.Field(core.InputFieldOptions{Type: profile}),
			},
			Resolve: func(context.Context, any, map[string]any, *core.ResolveInfo) (any, error) { return true, nil },
		})}
	}})
	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)
	return s.GetQueryType().Field("signup").Resolve
}

func TestArgumentsAreValidated(t *testing.T) {
	resolve := buildSignup(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantInput string
		wantTag   string
	}{
		{"valid", map[string]any{
			"name": "ada", "email": "ada@example.com", "tags": []any{"math", "engines"},
			"profile": map[string]any{"age": 36},
		}, "", ""},
		{"absent values are skipped", map[string]any{}, "", ""},
		{"too short", map[string]any{"name": "al"}, "name", "min"},
		{"bad email", map[string]any{"email": "ada-at-example"}, "email", "email"},
		{"bad list item", map[string]any{"tags": []any{"ok", "not ok"}}, "tags", "alphanum"},
		{"nested input field", map[string]any{"profile": map[string]any{"age": 200}}, "ProfileInput.age", "lte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(context.Background(), nil, tt.args, nil)
			if tt.wantInput == "" {
				require.NoError(t, err)
				require.Equal(t, true, got)
				return
			}
			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			require.Equal(t, "Query.signup", argErr.Field)
			require.Equal(t, tt.wantInput, argErr.Input)
			require.Equal(t, tt.wantTag, argErr.Tag)
		})
	}
}

func TestUnknownTagFailsBuild(t *testing.T) {
	b := core.NewSchemaBuilder(core.Options{Plugins: []core.PluginFactory{New(Options{})}})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"echo": t.String(core.FieldOptions{
			Args: core.InputFields{"text": t.Arg.String(core.InputFieldOptions{Extensions: Validate("shouty")})},
		})}
	}})
	_, err := b.ToSchema(context.Background(), core.BuildOptions{})
	require.ErrorIs(t, err, core.ErrPluginHook)
	require.ErrorContains(t, err, "Query.text")
}
