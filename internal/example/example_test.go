package example

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/plugins/federation"
	"github.com/hanpama/plugraph/internal/plugins/relay"
	"github.com/hanpama/plugraph/internal/plugins/scopeauth"
	"github.com/hanpama/plugraph/internal/plugins/validation"
	"github.com/hanpama/plugraph/internal/schema"
)

var kickoff = time.Date(2024, 5, 4, 18, 30, 0, 0, time.UTC)

type fixture struct {
	store  *Store
	team   *Team
	ann    *Player
	bo     *Player
	game   *Game
	schema *schema.Schema
	b      *core.SchemaBuilder
}

func newFixture(t *testing.T, scopes ...string) *fixture {
	t.Helper()
	store := NewStore(func() time.Time { return kickoff })
	team := store.AddTeam("Discs")
	ann, err := store.AddPlayer(team.ID, "Ann")
	require.NoError(t, err)
	bo, err := store.AddPlayer(team.ID, "Bo")
	require.NoError(t, err)
	game, err := store.AddGame(team.ID, "Hucks")
	require.NoError(t, err)

	granted := map[string]bool{}
	for _, s := range scopes {
		granted[s] = true
	}
	b := NewBuilder(Options{
		Store: store,
		Relay: relay.Options{ClientMutationID: relay.ClientMutationIDOmit, CursorType: "String"},
		AuthScopes: func(context.Context) (map[string]bool, error) {
			return granted, nil
		},
	})
	s, err := b.ToSchema(context.Background(), core.BuildOptions{Validate: true})
	require.NoError(t, err)
	return &fixture{store: store, team: team, ann: ann, bo: bo, game: game, schema: s, b: b}
}

func gid(typename string, id int) string { return relay.EncodeGlobalID(typename, strconv.Itoa(id)) }

func (f *fixture) resolve(t *testing.T, typ, field string, source any, args map[string]any) (any, error) {
	t.Helper()
	fd := f.schema.Types[typ].Field(field)
	require.NotNil(t, fd, "%s.%s", typ, field)
	return fd.Resolve(context.Background(), source, args, nil)
}

func (f *fixture) addPointArgs(scored bool) map[string]any {
	return map[string]any{"input": map[string]any{
		"gameId":           gid("Game", f.game.ID),
		"scored":           scored,
		"startedOnOffense": true,
		"playerIds":        []any{gid("Player", f.ann.ID), gid("Player", f.bo.ID)},
	}}
}

func TestSchemaShape(t *testing.T) {
	f := newFixture(t)
	s := f.schema

	for _, name := range []string{"Team", "Player", "Game", "Point"} {
		require.Equal(t, []string{"Node"}, s.Types[name].Interfaces, name)
		require.Equal(t, "ID!", s.Types[name].Field("id").Type.String(), name)
	}
	require.ElementsMatch(t, []string{"Team", "Player", "Game", "Point"}, s.Types["Node"].PossibleTypes)

	require.Equal(t, schema.TypeKindScalar, s.Types["DateTime"].Kind)
	require.Equal(t, "DateTime!", s.Types["Point"].Field("createdAt").Type.String())
	require.Equal(t, "[Player!]!", s.Types["Point"].Field("players").Type.String())

	points := s.Types["Game"].Field("points")
	require.Equal(t, "GamePointsConnection!", points.Type.String())
	require.Equal(t, "Sort", points.Argument("order").Type.String())
	require.Equal(t, schema.EnumLiteral("ASC"), points.Argument("order").DefaultValue)
	require.Equal(t, "Point!", s.Types["GamePointsConnectionEdge"].Field("node").Type.String())

	input := s.Types["CreatePointInput"]
	got := map[string]string{}
	for _, v := range input.InputFields {
		got[v.Name] = v.Type.String()
	}
	require.Empty(t, cmp.Diff(map[string]string{
		"gameId":           "ID!",
		"scored":           "Boolean",
		"startedOnOffense": "Boolean!",
		"order":            "Sort",
		"playerIds":        "[ID!]!",
	}, got))
	require.Equal(t, false, input.InputField("scored").DefaultValue)

	addPoint := s.GetMutationType().Field("addPoint")
	require.Equal(t, "Point", addPoint.Type.String())
	require.Equal(t, "CreatePointInput!", addPoint.Argument("input").Type.String())

	for _, name := range []string{"teams", "node", "nodes"} {
		require.NotNil(t, s.GetQueryType().Field(name), name)
	}
	require.NoError(t, schema.Validate(s))
}

func TestAddPoint(t *testing.T) {
	f := newFixture(t, ScopeScorekeeper)

	v, err := f.resolve(t, "Mutation", "addPoint", nil, f.addPointArgs(true))
	require.NoError(t, err)
	first := v.(*Point)
	require.Equal(t, f.game.ID, first.GameID)
	require.Equal(t, f.team.ID, first.TeamID)
	require.Equal(t, []int{f.ann.ID, f.bo.ID}, first.PlayerIDs)
	require.True(t, first.Scored)
	require.Equal(t, kickoff, first.CreatedAt)

	v, err = f.resolve(t, "Mutation", "addPoint", nil, f.addPointArgs(false))
	require.NoError(t, err)
	second := v.(*Point)

	v, err = f.resolve(t, "Game", "points", f.game, map[string]any{"first": 1, "order": "DESC"})
	require.NoError(t, err)
	conn := v.(*relay.Connection)
	require.Len(t, conn.Edges, 1)
	require.Same(t, second, conn.Edges[0].Node)
	require.True(t, conn.PageInfo.HasNextPage)

	v, err = f.resolve(t, "Game", "points", f.game, map[string]any{"after": conn.Edges[0].Cursor, "order": "DESC"})
	require.NoError(t, err)
	require.Same(t, first, v.(*relay.Connection).Edges[0].Node)

	players, err := f.resolve(t, "Point", "players", first, nil)
	require.NoError(t, err)
	require.Equal(t, []*Player{f.ann, f.bo}, players)

	createdAt, err := f.resolve(t, "Point", "createdAt", first, nil)
	require.NoError(t, err)
	require.Equal(t, kickoff, createdAt)
	serialized, err := f.schema.Types["DateTime"].Serialize(createdAt)
	require.NoError(t, err)
	require.Equal(t, "2024-05-04T18:30:00Z", serialized)
}

func TestAddPointErrors(t *testing.T) {
	f := newFixture(t, ScopeScorekeeper)

	args := f.addPointArgs(true)
	args["input"].(map[string]any)["gameId"] = gid("Team", f.team.ID)
	_, err := f.resolve(t, "Mutation", "addPoint", nil, args)
	require.ErrorIs(t, err, relay.ErrUnexpectedType)

	args = f.addPointArgs(true)
	args["input"].(map[string]any)["playerIds"] = []any{gid("Player", 999)}
	_, err = f.resolve(t, "Mutation", "addPoint", nil, args)
	require.ErrorIs(t, err, ErrNotFound)

	denied := newFixture(t)
	_, err = denied.resolve(t, "Mutation", "addPoint", nil, denied.addPointArgs(true))
	require.ErrorIs(t, err, scopeauth.ErrNotAuthorized)
	require.Empty(t, denied.store.PointsOf(denied.game.ID, false))
}

func TestCreateTeam(t *testing.T) {
	f := newFixture(t, ScopeAdmin)

	_, err := f.resolve(t, "Mutation", "createTeam", nil, map[string]any{"name": "X"})
	var argErr *validation.ArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, "min", argErr.Tag)

	v, err := f.resolve(t, "Mutation", "createTeam", nil, map[string]any{"name": "Layouts"})
	require.NoError(t, err)
	require.Equal(t, "Layouts", v.(*Team).Name)

	teams, err := f.resolve(t, "Query", "teams", nil, nil)
	require.NoError(t, err)
	require.Len(t, teams, 2)

	scorekeeper := newFixture(t, ScopeScorekeeper)
	_, err = scorekeeper.resolve(t, "Mutation", "createTeam", nil, map[string]any{"name": "Layouts"})
	require.ErrorIs(t, err, scopeauth.ErrNotAuthorized)
}

func TestNodeLookup(t *testing.T) {
	f := newFixture(t)

	id, err := f.resolve(t, "Game", "id", f.game, nil)
	require.NoError(t, err)
	require.Equal(t, gid("Game", f.game.ID), id)

	node, err := f.resolve(t, "Query", "node", nil, map[string]any{"id": id})
	require.NoError(t, err)
	require.Same(t, f.game, node)

	nodes, err := f.resolve(t, "Query", "nodes", nil, map[string]any{"ids": []any{
		gid("Player", f.bo.ID), gid("Team", 404), gid("Team", f.team.ID),
	}})
	require.NoError(t, err)
	require.Equal(t, []any{f.bo, nil, f.team}, nodes)

	team, err := f.resolve(t, "Player", "team", f.ann, nil)
	require.NoError(t, err)
	require.Same(t, f.team, team)
}

func TestSubGraph(t *testing.T) {
	f := newFixture(t)

	sg, err := federation.ToSubGraphSchema(context.Background(), f.b, federation.SubGraphOptions{})
	require.NoError(t, err)
	require.Contains(t, sg.SDL, `type Team implements Node @key(fields: "id") {`)
	require.Contains(t, sg.SDL, `type Game implements Node @key(fields: "id") {`)
	require.Contains(t, sg.SDL, "type Point implements Node {")
	require.NotContains(t, sg.SDL, "_entities")

	got, err := sg.Schema.GetQueryType().Field("_entities").Resolve(context.Background(), nil, map[string]any{
		"representations": []any{
			map[string]any{"__typename": "Game", "id": gid("Game", f.game.ID)},
			map[string]any{"__typename": "Team", "id": gid("Team", f.team.ID)},
		},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []any{f.game, f.team}, got)

	_, err = sg.Schema.GetQueryType().Field("_entities").Resolve(context.Background(), nil, map[string]any{
		"representations": []any{map[string]any{"__typename": "Team", "id": gid("Game", f.game.ID)}},
	}, nil)
	require.ErrorIs(t, err, relay.ErrUnexpectedType)
}

func TestDateTime(t *testing.T) {
	v, err := parseDateTime("2024-05-04T18:30:00Z")
	require.NoError(t, err)
	require.Equal(t, kickoff, v)

	_, err = parseDateTime("yesterday")
	require.Error(t, err)
	_, err = parseDateTime(12)
	require.Error(t, err)
	_, err = serializeDateTime(12)
	require.Error(t, err)
}
