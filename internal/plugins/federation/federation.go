// Package federation turns a schema builder into an Apollo Federation 2
// subgraph: entity keys, field directives, and the _entities and _service
// query fields.
package federation

import (
	"context"
	"fmt"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/schema"
)

// PluginName is the name the plugin registers under.
const PluginName = "federation"

// DefaultLinkURL is the federation spec version linked by subgraph SDL.
const DefaultLinkURL = "https://specs.apollo.dev/federation/v2.3"

// ReferenceResolver loads an entity from its representation: a map holding
// __typename and the key fields.
type ReferenceResolver func(ctx context.Context, representation map[string]any) (any, error)

// EntityOptions describes how the gateway identifies and fetches an entity.
type EntityOptions struct {
	// Key lists the key selections; each becomes one @key directive.
	Key []Selection
	// ResolveReference is nil for entities this subgraph cannot resolve;
	// their keys are marked resolvable: false.
	ResolveReference ReferenceResolver
	InterfaceObject  bool
}

// Plugin is the federation plugin instance of one schema builder.
type Plugin struct {
	core.BasePlugin

	entities map[string]EntityOptions // by type name

	subgraph *SubGraph
	err      error
}

// New returns the factory to list in core.Options.Plugins.
func New() core.PluginFactory {
	return func(b *core.SchemaBuilder) core.Plugin {
		return &Plugin{
			BasePlugin: core.NewBasePlugin(PluginName, b),
			entities:   make(map[string]EntityOptions),
		}
	}
}

// Of returns the federation plugin of b. It panics when the plugin is not registered.
func Of(b *core.SchemaBuilder) *Plugin {
	p, ok := b.Plugin(PluginName).(*Plugin)
	if !ok {
		panic(fmt.Sprintf("%s plugin is not registered on the schema builder", PluginName))
	}
	return p
}

// IsEntity reports whether the type named name was declared an entity.
func (p *Plugin) IsEntity(name string) bool {
	_, ok := p.entities[name]
	return ok
}

func (p *Plugin) hasInterfaceObjects() bool {
	for _, e := range p.entities {
		if e.InterfaceObject {
			return true
		}
	}
	return false
}

// BeforeBuild defines the federation directives unless the application
// already did.
func (p *Plugin) BeforeBuild() error {
	b := p.Builder()
	for _, d := range directiveDefinitions() {
		if !b.HasDirective(d.Name) {
			b.AddDirective(d)
		}
	}
	return nil
}

// OnTypeConfig applies @key and @interfaceObject to entity types.
func (p *Plugin) OnTypeConfig(tc *core.TypeConfig) (*core.TypeConfig, error) {
	e, ok := p.entities[tc.Name]
	if !ok {
		return nil, nil
	}
	if len(e.Key) == 0 {
		return nil, fmt.Errorf("entity %s has no key", tc.Name)
	}
	out := *tc
	out.Extensions = cloneExtensions(tc.Extensions)
	for _, key := range e.Key {
		if key.IsZero() {
			return nil, fmt.Errorf("%w: entity %s has an empty key", ErrInvalidSelection, tc.Name)
		}
		args := []*schema.DirectiveArgument{schema.Arg("fields", key.String())}
		if e.ResolveReference == nil {
			args = append(args, schema.Arg("resolvable", false))
		}
		out.Extensions = core.AppendDirective(out.Extensions, "key", args...)
	}
	if e.InterfaceObject {
		out.Extensions = core.AppendDirective(out.Extensions, "interfaceObject")
	}
	return &out, nil
}

func cloneExtensions(ext map[string]any) map[string]any {
	out := make(map[string]any, len(ext)+1)
	for k, v := range ext {
		out[k] = v
	}
	return out
}
