// Package relay adds Relay-style global object identification and cursor
// connections to a schema builder.
package relay

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/core"
)

// PluginName is the name the plugin registers under.
const PluginName = "relay"

// ClientMutationID modes for RelayMutationField.
const (
	ClientMutationIDOmit     = "omit"
	ClientMutationIDOptional = "optional"
	ClientMutationIDRequired = "required"
)

const (
	globalIDExtension    = "isRelayGlobalID"
	globalIDForExtension = "relayGlobalIDFor"
)

// Options configures the plugin.
type Options struct {
	// ClientMutationID is one of "omit", "optional" or "required" (default).
	ClientMutationID string
	// CursorType is the type of before/after arguments and cursors: "String" (default) or "ID".
	CursorType string
	// DisableNodeQueryFields skips adding node/nodes to the query type.
	DisableNodeQueryFields bool
	NodeTypeName           string
	PageInfoTypeName       string

	// EncodeGlobalID and DecodeGlobalID replace the base64 token format.
	EncodeGlobalID func(typename, id string) string
	DecodeGlobalID func(token string) (GlobalID, error)
}

func (o Options) withDefaults() Options {
	if o.ClientMutationID == "" {
		o.ClientMutationID = ClientMutationIDRequired
	}
	if o.CursorType == "" {
		o.CursorType = "String"
	}
	if o.NodeTypeName == "" {
		o.NodeTypeName = "Node"
	}
	if o.PageInfoTypeName == "" {
		o.PageInfoTypeName = "PageInfo"
	}
	if o.EncodeGlobalID == nil {
		o.EncodeGlobalID = EncodeGlobalID
	}
	if o.DecodeGlobalID == nil {
		o.DecodeGlobalID = DecodeGlobalID
	}
	return o
}

// Plugin is the relay plugin instance of one schema builder.
type Plugin struct {
	core.BasePlugin
	opts Options

	nodeRef     core.InterfaceRef
	pageInfoRef core.ObjectRef

	buildStarted   bool
	nodeFieldsDone bool

	// loaders by node type name, in registration order
	loaders      map[string]*nodeLoader
	nodeTypes    []string
	payloadTypes map[string]bool
}

// New returns the factory to list in core.Options.Plugins.
func New(opts Options) core.PluginFactory {
	opts = opts.withDefaults()
	return func(b *core.SchemaBuilder) core.Plugin {
		return &Plugin{
			BasePlugin:   core.NewBasePlugin(PluginName, b),
			opts:         opts,
			loaders:      make(map[string]*nodeLoader),
			payloadTypes: make(map[string]bool),
		}
	}
}

// Of returns the relay plugin of b. It panics when the plugin is not registered.
func Of(b *core.SchemaBuilder) *Plugin {
	p, ok := b.Plugin(PluginName).(*Plugin)
	if !ok {
		panic(fmt.Sprintf("%s plugin is not registered on the schema builder", PluginName))
	}
	return p
}

// EncodeGlobalID encodes using the configured token format.
func (p *Plugin) EncodeGlobalID(typename, id string) string {
	return p.opts.EncodeGlobalID(typename, id)
}

// DecodeGlobalID decodes token and checks that its type is registered.
func (p *Plugin) DecodeGlobalID(token string) (GlobalID, error) {
	gid, err := p.opts.DecodeGlobalID(token)
	if err != nil {
		return GlobalID{}, err
	}
	if _, ok := p.Builder().Store().TypeConfigByName(gid.TypeName); !ok {
		return GlobalID{}, fmt.Errorf("%w: %q", ErrUnknownType, gid.TypeName)
	}
	return gid, nil
}

// encodeValue turns a resolver result into a token. Strings are assumed to
// be encoded already.
func (p *Plugin) encodeValue(v any) (any, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case string:
		return id, nil
	case GlobalID:
		return p.EncodeGlobalID(id.TypeName, id.ID), nil
	case *GlobalID:
		if id == nil {
			return nil, nil
		}
		return p.EncodeGlobalID(id.TypeName, id.ID), nil
	case TypedID:
		name, err := p.Builder().Store().NameOf(id.Type)
		if err != nil {
			return nil, err
		}
		return p.EncodeGlobalID(name, idString(id.ID)), nil
	default:
		return nil, fmt.Errorf("relay: cannot encode %T as a global ID", v)
	}
}

// BeforeBuild adds the node and nodes query fields once the Node interface is
// in use. A Node interface first created later in the build gets them then.
func (p *Plugin) BeforeBuild() error {
	p.buildStarted = true
	if !p.nodeRef.IsZero() {
		p.addNodeQueryFields()
	}
	return nil
}

func (p *Plugin) addNodeQueryFields() {
	if p.opts.DisableNodeQueryFields || p.nodeFieldsDone {
		return
	}
	p.nodeFieldsDone = true
	b := p.Builder()
	b.QueryFields(func(t *core.FieldBuilder) core.Fields {
		return core.Fields{
			"node": Node(t, NodeFieldOptions{
				Args: core.InputFields{"id": t.Arg.ID(core.InputFieldOptions{Required: true})},
				ID: func(ctx context.Context, source any, args map[string]any) (any, error) {
					return args["id"], nil
				},
			}),
			"nodes": NodeList(t, NodeListFieldOptions{
				Args: core.InputFields{"ids": t.Arg.IDList(core.InputFieldOptions{Required: true})},
				IDs: func(ctx context.Context, source any, args map[string]any) ([]any, error) {
					ids, _ := args["ids"].([]any)
					return ids, nil
				},
			}),
		}
	})
}

// WrapResolve decodes global ID arguments, including those nested in input
// objects, before the resolver sees them. Fields of mutation payload types
// get the mutation result instead of the payload wrapper as source.
func (p *Plugin) WrapResolve(next core.Resolver, fc *core.FieldConfig) (core.Resolver, error) {
	resolve := next
	if p.payloadTypes[fc.ParentType] && fc.Name != "clientMutationId" {
		inner := resolve
		resolve = func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
			if payload, ok := source.(*mutationPayload); ok {
				source = payload.value
			}
			return inner(ctx, source, args, info)
		}
	}

	mapping := p.globalIDArgs(fc)
	if mapping == nil {
		if p.payloadTypes[fc.ParentType] {
			return resolve, nil
		}
		return nil, nil
	}
	return func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
		decoded, err := p.decodeArgs(args, mapping)
		if err != nil {
			return nil, err
		}
		return resolve(ctx, source, decoded, info)
	}, nil
}

// WrapSubscribe decodes global ID arguments of subscription fields.
func (p *Plugin) WrapSubscribe(next core.Subscriber, fc *core.FieldConfig) (core.Subscriber, error) {
	mapping := p.globalIDArgs(fc)
	if mapping == nil {
		return nil, nil
	}
	return func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (<-chan any, error) {
		decoded, err := p.decodeArgs(args, mapping)
		if err != nil {
			return nil, err
		}
		return next(ctx, source, decoded, info)
	}, nil
}

func (p *Plugin) globalIDArgs(fc *core.FieldConfig) *core.InputFieldMapping {
	return p.Builder().MapInputFields(fc.Args, func(ic *core.InputFieldConfig) (any, bool) {
		if marked, _ := ic.Extension(globalIDExtension).(bool); !marked {
			return nil, false
		}
		if allowed, ok := ic.Extension(globalIDForExtension).([]string); ok && len(allowed) > 0 {
			return allowed, true
		}
		return true, true
	})
}

func (p *Plugin) decodeArgs(args map[string]any, mapping *core.InputFieldMapping) (map[string]any, error) {
	return core.MapInputValues(args, mapping, func(entry *core.InputFieldMapEntry, value any) (any, error) {
		token, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: argument %s is %T, not a string", ErrMalformedGlobalID, entry.Config.Name, value)
		}
		gid, err := p.DecodeGlobalID(token)
		if err != nil {
			return nil, err
		}
		if allowed, ok := entry.Value.([]string); ok && !slices.Contains(allowed, gid.TypeName) {
			return nil, fmt.Errorf("%w: %s expects one of %v, got %q", ErrUnexpectedType, entry.Config.Name, allowed, gid.TypeName)
		}
		return gid, nil
	})
}

func (p *Plugin) logger() *zap.Logger {
	return p.Builder().Logger().With(zap.String("plugin", PluginName))
}
