package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	s := NewSchema("")
	s.SetQueryType("Query")

	node := NewType("Node", TypeKindInterface, "").
		AddField(NewField("id", "", NonNullType(NamedType("ID"))))
	node.PossibleTypes = []string{"User"}

	user := NewType("User", TypeKindObject, "A person.").
		AddInterface("Node").
		AddField(NewField("name", "", NamedType("String"))).
		AddField(NewField("id", "", NonNullType(NamedType("ID")))).
		AddField(NewField("nick", "", NamedType("String")).Deprecate("use name"))

	role := NewType("Role", TypeKindEnum, "").
		AddEnumValue(NewEnumValue("USER", "")).
		AddEnumValue(NewEnumValue("ADMIN", "Can do anything."))

	filter := NewType("UserFilter", TypeKindInputObject, "").
		AddInputField(NewInputValue("role", "", NamedType("Role")).SetDefault(EnumLiteral("USER"))).
		AddInputField(NewInputValue("limit", "", NamedType("Int")).SetDefault(10))

	query := NewType("Query", TypeKindObject, "").
		AddField(NewField("users", "", NonNullType(ListType(NonNullType(NamedType("User"))))).
			AddArgument(NewInputValue("filter", "", NamedType("UserFilter")))).
		AddField(NewField("me", "", NamedType("User")))

	result := NewType("SearchResult", TypeKindUnion, "")
	result.PossibleTypes = []string{"User"}

	date := NewType("Date", TypeKindScalar, "").SetSpecifiedByURL("https://example.com/date")

	tag := NewDirective("tag", "").AddArgument(NewInputValue("name", "", NonNullType(NamedType("String")))).SetRepeatable(true)
	tag.Locations = []string{"FIELD_DEFINITION", "OBJECT"}
	user.ApplyDirective(NewAppliedDirective("tag", Arg("name", "public")))

	for _, t := range []*Type{node, user, role, filter, query, result, date} {
		s.AddType(t)
	}
	s.AddDirective(tag)
	return s
}

const wantSDL = `scalar Date @specifiedBy(url: "https://example.com/date")

interface Node {
  id: ID!
}

type Query {
  users(filter: UserFilter): [User!]!
  me: User
}

enum Role {
  USER
  """
  Can do anything.
  """
  ADMIN
}

union SearchResult = User

"""
A person.
"""
type User implements Node @tag(name: "public") {
  name: String
  id: ID!
  nick: String @deprecated(reason: "use name")
}

input UserFilter {
  role: Role = USER
  limit: Int = 10
}

directive @tag(name: String!) repeatable on FIELD_DEFINITION | OBJECT
`

func TestRender(t *testing.T) {
	s := testSchema()
	if diff := cmp.Diff(wantSDL, Render(s)); diff != "" {
		t.Errorf("SDL mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, Validate(s))
}

func TestRenderWithOptions(t *testing.T) {
	s := testSchema()
	s.ApplyDirective(NewAppliedDirective("link", Arg("url", "https://specs.example.com/v1"), Arg("import", []string{"@tag"})))

	got := RenderWith(s, RenderOptions{
		ExtendSchema:  true,
		SkipType:      func(t *Type) bool { return t.Kind != TypeKindObject },
		SkipField:     func(_ *Type, f *Field) bool { return f.Name == "nick" || f.Name == "users" },
		SkipDirective: func(d *Directive) bool { return d.Name == "tag" },
	})
	want := `extend schema
  @link(url: "https://specs.example.com/v1", import: ["@tag"])

type Query {
  me: User
}

"""
A person.
"""
type User implements Node @tag(name: "public") {
  name: String
  id: ID!
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SDL mismatch (-want +got):\n%s", diff)
	}

	require.Contains(t, Render(s), "schema @link(")
}

func TestSortLexicographic(t *testing.T) {
	s := testSchema()
	sorted := SortLexicographic(s)

	names := func(fields []*Field) []string {
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.Name
		}
		return out
	}
	require.Equal(t, []string{"id", "name", "nick"}, names(sorted.Types["User"].Fields))
	require.Equal(t, []string{"me", "users"}, names(sorted.Types["Query"].Fields))
	require.Equal(t, "ADMIN", sorted.Types["Role"].EnumValues[0].Name)
	require.Equal(t, "limit", sorted.Types["UserFilter"].InputFields[0].Name)

	// the input is left untouched
	require.Equal(t, []string{"name", "id", "nick"}, names(s.Types["User"].Fields))
	require.Same(t, s.Types["String"], sorted.Types["String"])
}

func TestValidateReportsProblems(t *testing.T) {
	s := testSchema()
	s.Types["Query"].AddField(NewField("ghost", "", NamedType("Ghost")))
	require.ErrorContains(t, Validate(s), "Ghost")
}

func TestTypeLookups(t *testing.T) {
	s := testSchema()
	require.NotNil(t, s.GetQueryType().Field("users").Argument("filter"))
	require.Nil(t, s.GetQueryType().Field("users").Argument("missing"))
	require.Equal(t, 10, s.Types["UserFilter"].InputField("limit").DefaultValue)
	require.True(t, s.Types["User"].HasDirective("tag"))
	require.False(t, s.Types["Query"].HasDirective("tag"))
	require.Nil(t, s.GetMutationType())

	ref := NonNullType(ListType(NamedType("User")))
	require.Equal(t, "[User]!", ref.String())
	require.Equal(t, "User", ref.GetNamedType())
	require.True(t, IsNonNull(ref))
	require.True(t, IsList(ref))
}
