package federation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/schema"
)

var (
	// ErrUnknownEntity is returned by _entities for a __typename that is
	// not a resolvable entity of this subgraph.
	ErrUnknownEntity = errors.New("unknown entity type")
	// ErrInvalidRepresentation is returned by _entities for malformed representations.
	ErrInvalidRepresentation = errors.New("invalid entity representation")
)

const (
	anyTypeName     = "_Any"
	entityTypeName  = "_Entity"
	serviceTypeName = "_Service"
	entitiesField   = "_entities"
	serviceField    = "_service"
)

// SubGraphOptions tunes ToSubGraphSchema.
type SubGraphOptions struct {
	// LinkURL is the federation spec linked by the schema; DefaultLinkURL when empty.
	LinkURL string
	// ComposeDirectives are custom directive names, such as "@cache", to
	// keep in the supergraph.
	ComposeDirectives []string
	// Build is passed to ToSchema.
	Build core.BuildOptions
}

// SubGraph is a built subgraph schema and its printed SDL, the value
// _service.sdl resolves to.
type SubGraph struct {
	Schema *schema.Schema
	SDL    string
}

// ToSubGraphSchema builds b and extends the result into a subgraph schema.
// Like ToSchema, the result is computed once and cached.
func ToSubGraphSchema(ctx context.Context, b *core.SchemaBuilder, opts SubGraphOptions) (*SubGraph, error) {
	return Of(b).ToSubGraphSchema(ctx, opts)
}

// ToSubGraphSchema builds the subgraph of the plugin's builder.
func (p *Plugin) ToSubGraphSchema(ctx context.Context, opts SubGraphOptions) (*SubGraph, error) {
	if p.subgraph == nil && p.err == nil {
		p.subgraph, p.err = p.buildSubGraph(ctx, opts)
	}
	return p.subgraph, p.err
}

func (p *Plugin) buildSubGraph(ctx context.Context, opts SubGraphOptions) (*SubGraph, error) {
	base, err := p.Builder().ToSchema(ctx, opts.Build)
	if err != nil {
		return nil, err
	}
	linkURL := opts.LinkURL
	if linkURL == "" {
		linkURL = DefaultLinkURL
	}

	s := *base
	s.Types = make(map[string]*schema.Type, len(base.Types)+4)
	for name, t := range base.Types {
		s.Types[name] = t
	}
	imports := append([]string(nil), linkImports...)
	if len(opts.ComposeDirectives) > 0 {
		imports = append(imports, "@composeDirective")
	}
	if p.hasInterfaceObjects() {
		imports = append(imports, "@interfaceObject")
	}
	s.AppliedDirectives = append([]*schema.AppliedDirective(nil), base.AppliedDirectives...)
	s.AppliedDirectives = append(s.AppliedDirectives,
		schema.NewAppliedDirective("link", schema.Arg("url", linkURL), schema.Arg("import", imports)))
	for _, name := range opts.ComposeDirectives {
		s.AppliedDirectives = append(s.AppliedDirectives, schema.NewAppliedDirective("composeDirective", schema.Arg("name", name)))
	}

	var entities []string
	for name, t := range base.Types {
		if t.Kind == schema.TypeKindObject && t.HasDirective("key") {
			entities = append(entities, name)
		}
	}
	sort.Strings(entities)

	if s.QueryType == "" {
		s.QueryType = "Query"
	}
	query := schema.NewType(s.QueryType, schema.TypeKindObject, "")
	if existing := base.GetQueryType(); existing != nil {
		cp := *existing
		cp.Fields = append([]*schema.Field(nil), existing.Fields...)
		query = &cp
	}
	s.Types[query.Name] = query

	var sdl string
	service := schema.NewType(serviceTypeName, schema.TypeKindObject, "")
	sdlField := schema.NewField("sdl", "", schema.NamedType("String"))
	sdlField.Resolve = core.PropertyResolver("sdl")
	service.AddField(sdlField)
	s.Types[service.Name] = service

	svc := schema.NewField(serviceField, "", schema.NonNullType(schema.NamedType(serviceTypeName)))
	svc.Resolve = func(context.Context, any, map[string]any, *core.ResolveInfo) (any, error) {
		return map[string]any{"sdl": sdl}, nil
	}
	query.AddField(svc)

	if len(entities) > 0 {
		s.Types[anyTypeName] = schema.NewType(anyTypeName, schema.TypeKindScalar, "")
		union := schema.NewType(entityTypeName, schema.TypeKindUnion, "")
		union.PossibleTypes = entities
		union.ResolveType = entityTypeResolver(&s, entities)
		s.Types[union.Name] = union

		f := schema.NewField(entitiesField, "", schema.NonNullType(schema.ListType(schema.NamedType(entityTypeName)))).SetAsync(true)
		f.AddArgument(schema.NewInputValue("representations", "",
			schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType(anyTypeName))))))
		f.Resolve = p.resolveEntities
		query.AddField(f)
	}

	sorted := schema.SortLexicographic(&s)
	sdl = schema.RenderWith(sorted, schema.RenderOptions{
		ExtendSchema: true,
		SkipType: func(t *schema.Type) bool {
			switch t.Name {
			case anyTypeName, entityTypeName, serviceTypeName:
				return true
			case sorted.QueryType:
				for _, f := range t.Fields {
					if !isFederationField(f) {
						return false
					}
				}
				return true
			}
			return false
		},
		SkipField: func(parent *schema.Type, f *schema.Field) bool {
			return parent.Name == sorted.QueryType && isFederationField(f)
		},
		SkipDirective: func(d *schema.Directive) bool { return isFederationDirective(d.Name) },
	})

	p.logger().Debug("subgraph schema built",
		zap.Strings("entities", entities),
		zap.String("link", linkURL))
	return &SubGraph{Schema: sorted, SDL: sdl}, nil
}

func isFederationField(f *schema.Field) bool {
	return f.Name == serviceField || f.Name == entitiesField
}

// entityTypeResolver picks the member whose IsTypeOf accepts the value, or
// the __typename of map values.
func entityTypeResolver(s *schema.Schema, members []string) func(context.Context, any) (string, error) {
	return func(_ context.Context, value any) (string, error) {
		for _, name := range members {
			if t := s.Types[name]; t.IsTypeOf != nil && t.IsTypeOf(value) {
				return name, nil
			}
		}
		if m, ok := value.(map[string]any); ok {
			if name, ok := m["__typename"].(string); ok {
				return name, nil
			}
		}
		return "", fmt.Errorf("cannot determine the entity type of %T", value)
	}
}

// resolveEntities loads every representation with the reference resolver of
// its __typename. Results keep the order of the representations.
func (p *Plugin) resolveEntities(ctx context.Context, _ any, args map[string]any, _ *core.ResolveInfo) (any, error) {
	reps, ok := args["representations"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: representations is %T, not a list", ErrInvalidRepresentation, args["representations"])
	}
	out := make([]any, len(reps))
	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range reps {
		rep, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: representation %d is %T", ErrInvalidRepresentation, i, raw)
		}
		typename, _ := rep["__typename"].(string)
		e, ok := p.entities[typename]
		if !ok || e.ResolveReference == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, typename)
		}
		g.Go(func() error {
			v, err := e.ResolveReference(gctx, rep)
			if err != nil {
				return fmt.Errorf("resolve %s reference: %w", typename, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) logger() *zap.Logger {
	return p.Builder().Logger().With(zap.String("plugin", PluginName))
}
