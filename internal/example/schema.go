// Package example defines a small ultimate-frisbee score keeping schema used
// by the CLI and by end-to-end tests.
package example

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/plugins/federation"
	"github.com/hanpama/plugraph/internal/plugins/relay"
	"github.com/hanpama/plugraph/internal/plugins/scopeauth"
	"github.com/hanpama/plugraph/internal/plugins/validation"
	"github.com/hanpama/plugraph/internal/schema"
)

// Scopes granted to callers by Options.AuthScopes.
const (
	ScopeAdmin       = "admin"
	ScopeScorekeeper = "scorekeeper"
)

type Options struct {
	Store      *Store
	Relay      relay.Options
	AuthScopes scopeauth.ScopeLoader
	Logger     *zap.Logger
	Events     *eventbus.Bus
}

// NewBuilder returns a schema builder with every type of the example schema
// registered. Plugins wrap resolvers in the order validation, relay,
// federation, scopeauth, so scope checks run first.
func NewBuilder(opts Options) *core.SchemaBuilder {
	if opts.Store == nil {
		opts.Store = NewStore(nil)
	}
	b := core.NewSchemaBuilder(core.Options{
		Plugins: []core.PluginFactory{
			validation.New(validation.Options{}),
			relay.New(opts.Relay),
			federation.New(),
			scopeauth.New(scopeauth.Options{AuthScopes: opts.AuthScopes}),
		},
		Logger: opts.Logger,
		Events: opts.Events,
	})
	(&types{b: b, store: opts.Store}).register()
	return b
}

type types struct {
	b     *core.SchemaBuilder
	store *Store

	dateTime core.ScalarRef
	sort     core.EnumRef
	team     core.ObjectRef
	player   core.ObjectRef
	game     core.ObjectRef
	point    core.ObjectRef
}

func (x *types) register() {
	b := x.b
	x.dateTime = b.ScalarType("DateTime", core.ScalarOptions{
		Description:    "A date-time string at UTC, such as 2007-12-03T10:15:30Z.",
		SpecifiedByURL: "https://scalars.graphql.org/andimarek/date-time",
		Serialize:      serializeDateTime,
		ParseValue:     parseDateTime,
	})
	x.sort = b.EnumType("Sort", core.EnumOptions{Values: core.EnumValues("ASC", "DESC")})

	x.team = b.ObjectRef("Team")
	x.player = b.ObjectRef("Player")
	x.game = b.ObjectRef("Game")
	x.point = b.ObjectRef("Point")

	x.teamType()
	x.playerType()
	x.gameType()
	x.pointType()
	x.queryType()
	x.mutationType()
}

func (x *types) teamType() {
	relay.ImplementNode(x.b, x.team, relay.NodeObjectOptions{
		IsTypeOf: is[*Team],
		LoadMany: x.store.TeamsByID,
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{
				"name": t.ExposeString("name"),
				"games": t.Field(core.FieldOptions{
					Type: x.game,
					List: true,
					Resolve: func(_ context.Context, source any, _ map[string]any, _ *core.ResolveInfo) (any, error) {
						return x.store.GamesOf(source.(*Team).ID), nil
					},
				}),
			}
		},
	})
	federation.AsEntity(x.b, x.team, federation.EntityOptions{
		Key:              []federation.Selection{federation.MustSelection("id")},
		ResolveReference: x.reference("Team", x.store.TeamsByID),
	})
}

func (x *types) playerType() {
	relay.ImplementNode(x.b, x.player, relay.NodeObjectOptions{
		IsTypeOf: is[*Player],
		LoadMany: x.store.PlayersByID,
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{
				"name": t.ExposeString("name"),
				"team": x.teamOf(t, func(source any) int { return source.(*Player).TeamID }),
			}
		},
	})
}

func (x *types) gameType() {
	relay.ImplementNode(x.b, x.game, relay.NodeObjectOptions{
		IsTypeOf: is[*Game],
		LoadMany: x.store.GamesByID,
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{
				"opponent":  t.ExposeString("opponent"),
				"startedAt": t.Expose("startedAt", core.FieldOptions{Type: x.dateTime}),
				"team":      x.teamOf(t, func(source any) int { return source.(*Game).TeamID }),
				"points": relay.Connection(t, relay.ConnectionFieldOptions{
					Type: x.point,
					Args: core.InputFields{
						"order": t.Arg.Field(core.InputFieldOptions{Type: x.sort, DefaultValue: schema.EnumLiteral("ASC")}),
					},
					Resolve: func(_ context.Context, source any, args map[string]any, _ *core.ResolveInfo) (any, error) {
						ca, err := relay.ParseConnectionArgs(args)
						if err != nil {
							return nil, err
						}
						points := x.store.PointsOf(source.(*Game).ID, args["order"] == "DESC")
						return relay.ResolveArrayConnection(ca, relay.ToList(points))
					},
				}, relay.ConnectionOptions{}, relay.EdgeOptions{}),
			}
		},
	})
	federation.AsEntity(x.b, x.game, federation.EntityOptions{
		Key:              []federation.Selection{federation.MustSelection("id")},
		ResolveReference: x.reference("Game", x.store.GamesByID),
	})
}

func (x *types) pointType() {
	relay.ImplementNode(x.b, x.point, relay.NodeObjectOptions{
		IsTypeOf: is[*Point],
		LoadMany: x.store.PointsByID,
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{
				"createdAt":        t.Expose("createdAt", core.FieldOptions{Type: x.dateTime}),
				"updatedAt":        t.Expose("updatedAt", core.FieldOptions{Type: x.dateTime}),
				"scored":           t.ExposeBoolean("scored"),
				"startedOnOffense": t.ExposeBoolean("startedOnOffense"),
				"players": t.Field(core.FieldOptions{
					Type: x.player,
					List: true,
					Resolve: func(_ context.Context, source any, _ map[string]any, _ *core.ResolveInfo) (any, error) {
						return x.store.PlayersByIDs(source.(*Point).PlayerIDs), nil
					},
				}),
				"game": t.Field(core.FieldOptions{
					Type: x.game,
					Resolve: func(_ context.Context, source any, _ map[string]any, _ *core.ResolveInfo) (any, error) {
						g, ok := x.store.Game(source.(*Point).GameID)
						if !ok {
							return nil, fmt.Errorf("game %d: %w", source.(*Point).GameID, ErrNotFound)
						}
						return g, nil
					},
				}),
				"team": x.teamOf(t, func(source any) int { return source.(*Point).TeamID }),
			}
		},
	})
}

func (x *types) queryType() {
	x.b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"teams": t.Field(core.FieldOptions{
				Type: x.team,
				List: true,
				Resolve: func(context.Context, any, map[string]any, *core.ResolveInfo) (any, error) {
					return x.store.Teams(), nil
				},
			}),
		}
	}})
}

func (x *types) mutationType() {
	input := x.b.InputType("CreatePointInput", core.InputObjectOptions{
		Fields: func(t *core.InputFieldBuilder) core.InputFields {
			return core.InputFields{
				"gameId":           relay.GlobalIDArg(t, relay.GlobalIDArgOptions{Required: true, For: []string{"Game"}}),
				"scored":           t.Boolean(core.InputFieldOptions{DefaultValue: false}),
				"startedOnOffense": t.Boolean(core.InputFieldOptions{Required: true}),
				"order":            t.Field(core.InputFieldOptions{Type: x.sort, DefaultValue: schema.EnumLiteral("ASC")}),
				"playerIds":        relay.GlobalIDListArg(t, relay.GlobalIDArgOptions{Required: true, For: []string{"Player"}}),
			}
		},
	})

	x.b.MutationType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"addPoint": t.Field(core.FieldOptions{
				Type:       x.point,
				Nullable:   true,
				Args:       core.InputFields{"input": t.Arg.Field(core.InputFieldOptions{Type: input, Required: true})},
				Resolve:    x.addPoint,
				Extensions: scopeauth.Scopes(ScopeScorekeeper, ScopeAdmin),
			}),
			"createTeam": t.Field(core.FieldOptions{
				Type: x.team,
				Args: core.InputFields{
					"name": t.Arg.String(core.InputFieldOptions{Required: true, Extensions: validation.Validate("min=2,max=40")}),
				},
				Resolve: func(_ context.Context, _ any, args map[string]any, _ *core.ResolveInfo) (any, error) {
					return x.store.AddTeam(args["name"].(string)), nil
				},
				Extensions: scopeauth.Scopes(ScopeAdmin),
			}),
		}
	}})
}

func (x *types) addPoint(ctx context.Context, _ any, args map[string]any, _ *core.ResolveInfo) (any, error) {
	input, _ := args["input"].(map[string]any)
	gameID, err := localID(input["gameId"])
	if err != nil {
		return nil, err
	}
	rawPlayers, _ := input["playerIds"].([]any)
	players := make([]int, len(rawPlayers))
	for i, v := range rawPlayers {
		if players[i], err = localID(v); err != nil {
			return nil, err
		}
	}
	scored, _ := input["scored"].(bool)
	startedOnOffense, _ := input["startedOnOffense"].(bool)
	return x.store.CreatePoint(ctx, NewPoint{
		GameID:           gameID,
		Scored:           scored,
		StartedOnOffense: startedOnOffense,
		PlayerIDs:        players,
	})
}

func (x *types) teamOf(t *core.FieldBuilder, teamID func(source any) int) core.FieldRef {
	return t.Field(core.FieldOptions{
		Type: x.team,
		Resolve: func(_ context.Context, source any, _ map[string]any, _ *core.ResolveInfo) (any, error) {
			id := teamID(source)
			team, ok := x.store.Team(id)
			if !ok {
				return nil, fmt.Errorf("team %d: %w", id, ErrNotFound)
			}
			return team, nil
		},
	})
}

// reference resolves an entity representation whose "id" is a global ID of
// typename.
func (x *types) reference(typename string, load func(context.Context, []string) ([]any, error)) federation.ReferenceResolver {
	return func(ctx context.Context, representation map[string]any) (any, error) {
		token, _ := representation["id"].(string)
		gid, err := relay.Of(x.b).DecodeGlobalID(token)
		if err != nil {
			return nil, err
		}
		if gid.TypeName != typename {
			return nil, fmt.Errorf("%w: %s is not a %s id", relay.ErrUnexpectedType, gid.TypeName, typename)
		}
		found, err := load(ctx, []string{gid.ID})
		if err != nil {
			return nil, err
		}
		return found[0], nil
	}
}

func localID(v any) (int, error) {
	gid, ok := v.(relay.GlobalID)
	if !ok {
		return 0, fmt.Errorf("%w: %v", relay.ErrMalformedGlobalID, v)
	}
	id, err := strconv.Atoi(gid.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s id %q", relay.ErrMalformedGlobalID, gid.TypeName, gid.ID)
	}
	return id, nil
}

func is[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

func serializeDateTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case string:
		return t, nil
	}
	return nil, fmt.Errorf("DateTime cannot represent %T", v)
}

func parseDateTime(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("DateTime cannot parse %T", v)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("DateTime cannot parse %q: %w", s, err)
	}
	return t, nil
}
