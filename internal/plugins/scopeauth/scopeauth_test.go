package scopeauth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/schema"
)

type scopesKey struct{}

func withScopes(scopes ...string) context.Context {
	granted := make(map[string]bool)
	for _, s := range scopes {
		granted[s] = true
	}
	return context.WithValue(context.Background(), scopesKey{}, granted)
}

func constant(v any) core.Resolver {
	return func(context.Context, any, map[string]any, *core.ResolveInfo) (any, error) { return v, nil }
}

func buildGuarded(t *testing.T, opts Options) *schema.Schema {
	t.Helper()
	if opts.AuthScopes == nil {
		opts.AuthScopes = func(ctx context.Context) (map[string]bool, error) {
			granted, _ := ctx.Value(scopesKey{}).(map[string]bool)
			return granted, nil
		}
	}
	b := core.NewSchemaBuilder(core.Options{Plugins: []core.PluginFactory{New(opts)}})
	secret := b.ObjectType("Secret", core.ObjectOptions{
		Extensions: Scopes("admin"),
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{"value": t.String(core.FieldOptions{Resolve: constant("s3cr3t")})}
		},
	})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"public": t.String(core.FieldOptions{Resolve: constant("hello")}),
			"staff":  t.String(core.FieldOptions{Resolve: constant("team"), Extensions: Scopes("admin", "editor")}),
			"secret": t.Field(core.FieldOptions{Type: secret, Resolve: constant(struct{}{}), Extensions: Scopes("member")}),
		}
	}})
	s, err := b.ToSchema(context.Background(), core.BuildOptions{})
	require.NoError(t, err)
	return s
}

func resolve(ctx context.Context, s *schema.Schema, typ, field string) (any, error) {
	return s.Types[typ].Field(field).Resolve(ctx, nil, nil, nil)
}

func TestScopesGuardFields(t *testing.T) {
	s := buildGuarded(t, Options{})

	tests := []struct {
		name   string
		ctx    context.Context
		typ    string
		field  string
		want   any
		denied bool
	}{
		{"unguarded field", withScopes(), "Query", "public", "hello", false},
		{"any of the field scopes", withScopes("editor"), "Query", "staff", "team", false},
		{"none of the field scopes", withScopes("member"), "Query", "staff", nil, true},
		{"field scope granted", withScopes("member"), "Query", "secret", struct{}{}, false},
		{"type scope missing", withScopes("member"), "Secret", "value", nil, true},
		{"type scope granted", withScopes("admin"), "Secret", "value", "s3cr3t", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(tt.ctx, s, tt.typ, tt.field)
			if tt.denied {
				require.ErrorIs(t, err, ErrNotAuthorized)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCustomUnauthorizedError(t *testing.T) {
	errForbidden := errors.New("forbidden")
	var denied []string
	s := buildGuarded(t, Options{UnauthorizedError: func(fc *core.FieldConfig, required []string) error {
		denied = append(denied, fc.ParentType+"."+fc.Name)
		return errForbidden
	}})

	_, err := resolve(withScopes(), s, "Query", "staff")
	require.ErrorIs(t, err, errForbidden)
	require.Equal(t, []string{"Query.staff"}, denied)
}

func TestScopeLoaderFailure(t *testing.T) {
	errDown := errors.New("session store down")
	s := buildGuarded(t, Options{AuthScopes: func(context.Context) (map[string]bool, error) { return nil, errDown }})

	_, err := resolve(context.Background(), s, "Query", "staff")
	require.ErrorIs(t, err, errDown)

	got, err := resolve(context.Background(), s, "Query", "public")
	require.NoError(t, err)
	require.Equal(t, "hello", got)
}
