package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/schema"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newBuilder(opts Options) *core.SchemaBuilder {
	return core.NewSchemaBuilder(core.Options{Plugins: []core.PluginFactory{New(opts)}})
}

func call(t *testing.T, f *schema.Field, source any, args map[string]any) any {
	t.Helper()
	v, err := f.Resolve(context.Background(), source, args, nil)
	require.NoError(t, err)
	return v
}

func TestConnectionNaming(t *testing.T) {
	b := newBuilder(Options{})
	userRef := b.ObjectRef("User")
	b.ImplementObject(userRef, "", core.ObjectOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"name":           t.ExposeString("name"),
			"friends":        Connection(t, ConnectionFieldOptions{Type: userRef}, ConnectionOptions{}, EdgeOptions{}),
			"teamConnection": Connection(t, ConnectionFieldOptions{Type: userRef}, ConnectionOptions{}, EdgeOptions{}),
		}
	}})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"me": t.Field(core.FieldOptions{Type: userRef})}
	}})

	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)

	friends := s.Types["User"].Field("friends")
	require.Equal(t, "UserFriendsConnection!", friends.Type.String())
	for _, arg := range []string{"first", "last", "before", "after"} {
		require.NotNil(t, friends.Argument(arg), arg)
	}
	require.Equal(t, "String", friends.Argument("after").Type.String())

	conn := s.Types["UserFriendsConnection"]
	require.NotNil(t, conn)
	require.Equal(t, "[UserFriendsConnectionEdge!]!", conn.Field("edges").Type.String())
	require.Equal(t, "PageInfo!", conn.Field("pageInfo").Type.String())
	require.Equal(t, "User!", s.Types["UserFriendsConnectionEdge"].Field("node").Type.String())

	require.Equal(t, "UserTeamConnection!", s.Types["User"].Field("teamConnection").Type.String())
	require.NotContains(t, s.Types, "UserTeamConnectionConnection")
	require.Contains(t, s.Types, "UserTeamConnectionEdge")
}

func TestExplicitConnectionName(t *testing.T) {
	b := newBuilder(Options{CursorType: "ID"})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"names": Connection(t,
			ConnectionFieldOptions{Type: core.Name("String"), NodeNullable: true},
			ConnectionOptions{Name: "NameList"},
			EdgeOptions{Name: "NameItem"},
		)}
	}})
	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)
	require.Equal(t, "NameList!", s.GetQueryType().Field("names").Type.String())
	require.Equal(t, "[NameItem!]!", s.Types["NameList"].Field("edges").Type.String())
	require.Equal(t, "String", s.Types["NameItem"].Field("node").Type.String())
	require.Equal(t, "ID!", s.Types["NameItem"].Field("cursor").Type.String())
	require.Equal(t, "ID", s.GetQueryType().Field("names").Argument("before").Type.String())
}

func TestNodeResolution(t *testing.T) {
	users := map[string]*user{"1": {ID: "1", Name: "Ann"}, "2": {ID: "2", Name: "Bo"}}
	var loads [][]string

	b := newBuilder(Options{})
	NodeObject(b, "User", NodeObjectOptions{
		IsTypeOf: func(v any) bool { _, ok := v.(*user); return ok },
		LoadMany: func(ctx context.Context, ids []string) ([]any, error) {
			loads = append(loads, ids)
			out := make([]any, len(ids))
			for i, id := range ids {
				if u, ok := users[id]; ok {
					out[i] = u
				}
			}
			return out, nil
		},
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{"name": t.ExposeString("name")}
		},
	})
	b.QueryType(core.RootOptions{})

	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)

	require.Equal(t, []string{"User"}, s.Types["Node"].PossibleTypes)
	require.Equal(t, "Node", s.GetQueryType().Field("node").Type.String())
	require.Equal(t, "[Node]!", s.GetQueryType().Field("nodes").Type.String())

	node := call(t, s.GetQueryType().Field("node"), nil, map[string]any{"id": EncodeGlobalID("User", "1")})
	require.Same(t, users["1"], node)

	nodes := call(t, s.GetQueryType().Field("nodes"), nil, map[string]any{"ids": []any{
		EncodeGlobalID("User", "2"),
		EncodeGlobalID("User", "404"),
		EncodeGlobalID("User", "1"),
	}})
	require.Equal(t, []any{users["2"], nil, users["1"]}, nodes)
	require.Equal(t, []string{"2", "404", "1"}, loads[len(loads)-1])

	require.Equal(t, EncodeGlobalID("User", "2"), call(t, s.Types["User"].Field("id"), users["2"], nil))

	typename, err := s.Types["Node"].ResolveType(context.Background(), users["1"])
	require.NoError(t, err)
	require.Equal(t, "User", typename)

	_, err = s.GetQueryType().Field("node").Resolve(context.Background(), nil, map[string]any{"id": EncodeGlobalID("Ghost", "1")}, nil)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestNodeTypeDeclaredDuringBuild(t *testing.T) {
	authors := map[string]*user{"7": {ID: "7", Name: "Cy"}}

	b := newBuilder(Options{})
	authorRef := b.ObjectRef("Author")
	b.QueryType(core.RootOptions{Fields: func(f *core.FieldBuilder) core.Fields {
		field := f.Field(core.FieldOptions{Type: authorRef, Nullable: true})
		err := b.Store().OnFieldUse(field, func(fc *core.FieldConfig) error {
			ImplementNode(b, authorRef, NodeObjectOptions{
				IsTypeOf: func(v any) bool { _, ok := v.(*user); return ok },
				LoadOne: func(ctx context.Context, id string) (any, error) {
					if a, ok := authors[id]; ok {
						return a, nil
					}
					return nil, nil
				},
			})
			return nil
		})
		require.NoError(t, err)
		return core.Fields{"featured": field}
	}})

	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)

	require.Equal(t, []string{"Author"}, s.Types["Node"].PossibleTypes)
	require.Equal(t, "Node", s.GetQueryType().Field("node").Type.String())
	require.Equal(t, "[Node]!", s.GetQueryType().Field("nodes").Type.String())
	node := call(t, s.GetQueryType().Field("node"), nil, map[string]any{"id": EncodeGlobalID("Author", "7")})
	require.Same(t, authors["7"], node)
}

func TestGlobalIDArgumentsAreDecoded(t *testing.T) {
	b := newBuilder(Options{DisableNodeQueryFields: true})
	b.ObjectType("Post", core.ObjectOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"title": t.ExposeString("title")}
	}})
	filter := b.InputType("PostFilter", core.InputObjectOptions{Fields: func(t *core.InputFieldBuilder) core.InputFields {
		return core.InputFields{"author": GlobalIDArg(t, GlobalIDArgOptions{})}
	}})
	echo := func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
		return args, nil
	}
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"post": t.Field(core.FieldOptions{
				Type:     core.Name("Post"),
				Nullable: true,
				Args: core.InputFields{
					"id":     GlobalIDArg(t.Arg, GlobalIDArgOptions{Required: true, For: []string{"Post"}}),
					"others": GlobalIDListArg(t.Arg, GlobalIDArgOptions{}),
					"filter": t.Arg.Field(core.InputFieldOptions{Type: filter}),
				},
				Resolve: echo,
			}),
		}
	}})

	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)
	post := s.GetQueryType().Field("post")
	require.Equal(t, "ID!", post.Argument("id").Type.String())
	require.Equal(t, "[ID!]", post.Argument("others").Type.String())

	got := call(t, post, nil, map[string]any{
		"id":     EncodeGlobalID("Post", "7"),
		"others": []any{EncodeGlobalID("Post", "8")},
		"filter": map[string]any{"author": EncodeGlobalID("Post", "9")},
	})
	require.Equal(t, map[string]any{
		"id":     GlobalID{TypeName: "Post", ID: "7"},
		"others": []any{GlobalID{TypeName: "Post", ID: "8"}},
		"filter": map[string]any{"author": GlobalID{TypeName: "Post", ID: "9"}},
	}, got)

	_, err = post.Resolve(context.Background(), nil, map[string]any{"id": EncodeGlobalID("Query", "1")}, nil)
	require.ErrorIs(t, err, ErrUnexpectedType)
	_, err = post.Resolve(context.Background(), nil, map[string]any{"id": EncodeGlobalID("Ghost", "1")}, nil)
	require.ErrorIs(t, err, ErrUnknownType)
	_, err = post.Resolve(context.Background(), nil, map[string]any{"id": "nope"}, nil)
	require.ErrorIs(t, err, ErrMalformedGlobalID)
}

func TestRelayMutationField(t *testing.T) {
	b := newBuilder(Options{DisableNodeQueryFields: true})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"ok": t.Boolean()}
	}})
	b.MutationType(core.RootOptions{})
	RelayMutationField(b, "addPoint",
		MutationInputOptions{Fields: func(t *core.InputFieldBuilder) core.InputFields {
			return core.InputFields{"score": t.Int(core.InputFieldOptions{Required: true})}
		}},
		MutationFieldOptions{Resolve: func(ctx context.Context, input map[string]any) (any, error) {
			return map[string]any{"total": input["score"].(int) + 1}, nil
		}},
		MutationPayloadOptions{Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{"total": t.ExposeInt("total")}
		}},
	)

	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)

	require.Equal(t, "ID!", s.Types["AddPointInput"].InputField("clientMutationId").Type.String())
	require.Equal(t, "ID!", s.Types["AddPointPayload"].Field("clientMutationId").Type.String())
	addPoint := s.GetMutationType().Field("addPoint")
	require.Equal(t, "AddPointPayload!", addPoint.Type.String())
	require.Equal(t, "AddPointInput!", addPoint.Argument("input").Type.String())

	payload := call(t, addPoint, nil, map[string]any{"input": map[string]any{"score": 2, "clientMutationId": "m1"}})
	require.Equal(t, 3, call(t, s.Types["AddPointPayload"].Field("total"), payload, nil))
	require.Equal(t, "m1", call(t, s.Types["AddPointPayload"].Field("clientMutationId"), payload, nil))
}

func TestOmittedClientMutationID(t *testing.T) {
	b := newBuilder(Options{ClientMutationID: ClientMutationIDOmit, DisableNodeQueryFields: true})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"ok": t.Boolean()}
	}})
	b.MutationType(core.RootOptions{})
	RelayMutationField(b, "ping",
		MutationInputOptions{Fields: func(t *core.InputFieldBuilder) core.InputFields {
			return core.InputFields{"note": t.String()}
		}},
		MutationFieldOptions{Resolve: func(ctx context.Context, input map[string]any) (any, error) {
			return map[string]any{"note": input["note"]}, nil
		}},
		MutationPayloadOptions{Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{"note": t.ExposeString("note", core.FieldOptions{Nullable: true})}
		}},
	)
	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)
	require.Nil(t, s.Types["PingInput"].InputField("clientMutationId"))
	require.Nil(t, s.Types["PingPayload"].Field("clientMutationId"))
}
