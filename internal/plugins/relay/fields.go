package relay

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/core"
)

// GlobalIDFieldOptions describes a field returning a global ID. Resolve may
// return an encoded string, a GlobalID or a TypedID.
type GlobalIDFieldOptions struct {
	Nullable          bool
	NullableItems     bool // list fields only
	Args              core.InputFields
	Resolve           core.Resolver
	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// GlobalID creates an ID field whose resolver result is encoded as a global ID.
func GlobalID(t *core.FieldBuilder, opts GlobalIDFieldOptions) core.FieldRef {
	p := Of(t.Builder())
	resolve := opts.Resolve
	if resolve == nil {
		resolve = core.PropertyResolver("id")
	}
	return t.Field(core.FieldOptions{
		Type:              core.Name("ID"),
		Nullable:          opts.Nullable,
		Args:              opts.Args,
		Description:       opts.Description,
		DeprecationReason: opts.DeprecationReason,
		Extensions:        opts.Extensions,
		Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
			v, err := resolve(ctx, source, args, info)
			if err != nil {
				return nil, err
			}
			return p.encodeValue(v)
		},
	})
}

// GlobalIDList creates a list of global IDs.
func GlobalIDList(t *core.FieldBuilder, opts GlobalIDFieldOptions) core.FieldRef {
	p := Of(t.Builder())
	resolve := opts.Resolve
	return t.Field(core.FieldOptions{
		Type:              core.Name("ID"),
		List:              true,
		Nullable:          opts.Nullable,
		NullableItems:     opts.NullableItems,
		Args:              opts.Args,
		Description:       opts.Description,
		DeprecationReason: opts.DeprecationReason,
		Extensions:        opts.Extensions,
		Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
			v, err := resolve(ctx, source, args, info)
			if err != nil || v == nil {
				return nil, err
			}
			items, err := toList(v)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(items))
			for i, item := range items {
				if out[i], err = p.encodeValue(item); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	})
}

// NodeFieldOptions describes a field loading one node by ID. ID returns a
// global ID token, a GlobalID or a TypedID.
type NodeFieldOptions struct {
	Args        core.InputFields
	ID          func(ctx context.Context, source any, args map[string]any) (any, error)
	Description string
	Extensions  map[string]any
}

// Node creates a nullable field of the Node interface type.
func Node(t *core.FieldBuilder, opts NodeFieldOptions) core.FieldRef {
	p := Of(t.Builder())
	return t.Field(core.FieldOptions{
		Type:        p.NodeInterfaceRef(),
		Nullable:    true,
		Args:        opts.Args,
		Description: opts.Description,
		Extensions:  opts.Extensions,
		Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
			raw, err := opts.ID(ctx, source, args)
			if err != nil || raw == nil {
				return nil, err
			}
			gid, err := p.toGlobalID(raw)
			if err != nil {
				return nil, err
			}
			nodes, err := p.ResolveNodes(ctx, []*GlobalID{gid})
			if err != nil {
				return nil, err
			}
			return nodes[0], nil
		},
	})
}

// NodeListFieldOptions describes a field loading several nodes.
type NodeListFieldOptions struct {
	Args        core.InputFields
	IDs         func(ctx context.Context, source any, args map[string]any) ([]any, error)
	Description string
	Extensions  map[string]any
}

// NodeList creates a [Node]! field; ids that load nothing resolve to null.
func NodeList(t *core.FieldBuilder, opts NodeListFieldOptions) core.FieldRef {
	p := Of(t.Builder())
	return t.Field(core.FieldOptions{
		Type:          p.NodeInterfaceRef(),
		List:          true,
		NullableItems: true,
		Args:          opts.Args,
		Description:   opts.Description,
		Extensions:    opts.Extensions,
		Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
			raw, err := opts.IDs(ctx, source, args)
			if err != nil {
				return nil, err
			}
			ids := make([]*GlobalID, len(raw))
			for i, v := range raw {
				if v == nil {
					continue
				}
				if ids[i], err = p.toGlobalID(v); err != nil {
					return nil, err
				}
			}
			return p.ResolveNodes(ctx, ids)
		},
	})
}

func (p *Plugin) toGlobalID(v any) (*GlobalID, error) {
	switch id := v.(type) {
	case string:
		gid, err := p.DecodeGlobalID(id)
		if err != nil {
			return nil, err
		}
		return &gid, nil
	case GlobalID:
		return &id, nil
	case *GlobalID:
		return id, nil
	case TypedID:
		name, err := p.Builder().Store().NameOf(id.Type)
		if err != nil {
			return nil, err
		}
		return &GlobalID{TypeName: name, ID: idString(id.ID)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported id value %T", ErrMalformedGlobalID, v)
	}
}

// ConnectionFieldOptions describes a connection field. Resolve returns a
// *Connection, usually built with ResolveArrayConnection.
type ConnectionFieldOptions struct {
	Type          core.OutputType
	Nullable      bool
	EdgesNullable bool
	NodeNullable  bool
	Args          core.InputFields
	Resolve       core.Resolver

	Description       string
	DeprecationReason string
	Extensions        map[string]any
}

// ConnectionOptions names or replaces the connection type of a field.
type ConnectionOptions struct {
	// Ref uses an existing connection type instead of synthesizing one.
	Ref    core.ObjectRef
	Name   string
	Fields core.FieldsFunc
}

// EdgeOptions names or extends the synthesized edge type.
type EdgeOptions struct {
	Name   string
	Fields core.FieldsFunc
}

// Connection creates a cursor connection field. Unless conn.Ref is set, the
// connection and edge types are synthesized once the field is attached,
// named after its parent type and field name: field "friends" on "User"
// gets "UserFriendsConnection" and "UserFriendsConnectionEdge".
func Connection(t *core.FieldBuilder, opts ConnectionFieldOptions, conn ConnectionOptions, edge EdgeOptions) core.FieldRef {
	b := t.Builder()
	p := Of(b)
	args := core.InputFields{}
	for name, ref := range opts.Args {
		args[name] = ref
	}
	for name, ref := range ConnectionArgs(t.Arg) {
		args[name] = ref
	}

	connRef := conn.Ref
	if connRef.IsZero() {
		connRef = b.ObjectRef("")
	}
	field := t.Field(core.FieldOptions{
		Type:              connRef,
		Nullable:          opts.Nullable,
		Args:              args,
		Resolve:           opts.Resolve,
		Description:       opts.Description,
		DeprecationReason: opts.DeprecationReason,
		Extensions:        opts.Extensions,
	})
	if !conn.Ref.IsZero() {
		return field
	}

	err := b.Store().OnFieldUse(field, func(fc *core.FieldConfig) error {
		name := conn.Name
		if name == "" {
			name = fc.ParentType + capitalize(fc.Name)
			if !strings.HasSuffix(strings.ToLower(fc.Name), "connection") {
				name += "Connection"
			}
		}
		if err := b.Store().AssociateRefWithName(connRef.Ref, name); err != nil {
			return err
		}
		edgeName := edge.Name
		if edgeName == "" {
			edgeName = name + "Edge"
		}
		p.logger().Debug("synthesizing connection", zap.String("field", fc.ParentType+"."+fc.Name), zap.String("connection", name))
		ConnectionObject(b, ConnectionObjectOptions{
			Ref:           connRef,
			Type:          opts.Type,
			EdgesNullable: opts.EdgesNullable,
			NodeNullable:  opts.NodeNullable,
			Fields:        conn.Fields,
		}, EdgeObjectOptions{Name: edgeName, Fields: edge.Fields})
		return nil
	})
	if err != nil {
		panic(err)
	}
	return field
}

// GlobalIDArgOptions describes a global ID argument or input field.
type GlobalIDArgOptions struct {
	Required bool
	// For restricts accepted IDs to these type names.
	For          []string
	Description  string
	NullableItem bool // list variants only
	Extensions   map[string]any
}

// GlobalIDArg creates an ID input value decoded into a GlobalID before
// resolvers see it.
func GlobalIDArg(t *core.InputFieldBuilder, opts GlobalIDArgOptions) core.InputFieldRef {
	return t.Field(globalIDInput(opts, false))
}

// GlobalIDListArg creates a list of global IDs, decoded item by item.
func GlobalIDListArg(t *core.InputFieldBuilder, opts GlobalIDArgOptions) core.InputFieldRef {
	return t.Field(globalIDInput(opts, true))
}

func globalIDInput(opts GlobalIDArgOptions, list bool) core.InputFieldOptions {
	ext := make(map[string]any, len(opts.Extensions)+2)
	for k, v := range opts.Extensions {
		ext[k] = v
	}
	ext[globalIDExtension] = true
	if len(opts.For) > 0 {
		ext[globalIDForExtension] = append([]string(nil), opts.For...)
	}
	return core.InputFieldOptions{
		Type:          core.Name("ID"),
		List:          list,
		Required:      opts.Required,
		NullableItems: opts.NullableItem,
		Description:   opts.Description,
		Extensions:    ext,
	}
}

// ConnectionArgs returns the first/last/before/after arguments.
func ConnectionArgs(t *core.InputFieldBuilder) core.InputFields {
	cursor := core.Name(Of(t.Builder()).opts.CursorType)
	return core.InputFields{
		"first":  t.Int(),
		"last":   t.Int(),
		"before": t.Field(core.InputFieldOptions{Type: cursor}),
		"after":  t.Field(core.InputFieldOptions{Type: cursor}),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
