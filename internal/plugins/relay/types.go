package relay

import (
	"context"
	"fmt"

	"github.com/hanpama/plugraph/internal/core"
)

// PageInfo is the value of a connection's pageInfo field.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// Edge is one item of a connection.
type Edge struct {
	Cursor string `json:"cursor"`
	Node   any    `json:"node"`
}

// Connection is the value connection fields resolve to.
type Connection struct {
	Edges    []*Edge   `json:"edges"`
	PageInfo *PageInfo `json:"pageInfo"`
}

// NodeInterfaceRef returns the Node interface, registering it on first use.
func (p *Plugin) NodeInterfaceRef() core.InterfaceRef {
	if !p.nodeRef.IsZero() {
		return p.nodeRef
	}
	b := p.Builder()
	p.nodeRef = b.InterfaceType(p.opts.NodeTypeName, core.InterfaceOptions{
		ResolveType: p.resolveNodeType,
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{"id": t.ID()}
		},
	})
	if p.buildStarted {
		p.addNodeQueryFields()
	}
	return p.nodeRef
}

func (p *Plugin) resolveNodeType(_ context.Context, value any) (string, error) {
	for _, name := range p.nodeTypes {
		if l := p.loaders[name]; l.isTypeOf != nil && l.isTypeOf(value) {
			return name, nil
		}
	}
	return "", fmt.Errorf("relay: cannot determine node type of %T", value)
}

// PageInfoRef returns the PageInfo type, registering it on first use.
func (p *Plugin) PageInfoRef() core.ObjectRef {
	if !p.pageInfoRef.IsZero() {
		return p.pageInfoRef
	}
	cursor := core.Name(p.opts.CursorType)
	p.pageInfoRef = p.Builder().ObjectType(p.opts.PageInfoTypeName, core.ObjectOptions{
		Fields: func(t *core.FieldBuilder) core.Fields {
			return core.Fields{
				"hasNextPage":     t.ExposeBoolean("hasNextPage"),
				"hasPreviousPage": t.ExposeBoolean("hasPreviousPage"),
				"startCursor":     t.Expose("startCursor", core.FieldOptions{Type: cursor, Nullable: true}),
				"endCursor":       t.Expose("endCursor", core.FieldOptions{Type: cursor, Nullable: true}),
			}
		},
	})
	return p.pageInfoRef
}

// NodeObjectOptions describes an object type implementing Node.
type NodeObjectOptions struct {
	Description string
	Interfaces  []core.InterfaceRef
	// ID returns the raw, type-local id of a value; defaults to its "id" property.
	ID func(source any) (any, error)
	// LoadMany loads values by raw id, aligned with ids; nil entries are misses.
	LoadMany func(ctx context.Context, ids []string) ([]any, error)
	// LoadOne is used when LoadMany is nil.
	LoadOne func(ctx context.Context, id string) (any, error)
	// IsTypeOf lets the Node interface resolve the concrete type of a value.
	IsTypeOf   func(value any) bool
	Fields     core.FieldsFunc
	Extensions map[string]any
}

type nodeLoader struct {
	loadMany func(ctx context.Context, ids []string) ([]any, error)
	loadOne  func(ctx context.Context, id string) (any, error)
	isTypeOf func(value any) bool
}

// NodeObject registers an object implementing Node, with a global "id"
// field, and records its loader for node resolution.
func NodeObject(b *core.SchemaBuilder, name string, opts NodeObjectOptions) core.ObjectRef {
	return ImplementNode(b, b.ObjectRef(name), opts)
}

// ImplementNode implements a ref obtained from ObjectRef as a node type.
func ImplementNode(b *core.SchemaBuilder, ref core.ObjectRef, opts NodeObjectOptions) core.ObjectRef {
	p := Of(b)
	rawID := opts.ID
	if rawID == nil {
		property := core.PropertyResolver("id")
		rawID = func(source any) (any, error) { return property(context.Background(), source, nil, nil) }
	}
	fields := opts.Fields
	b.ImplementObject(ref, "", core.ObjectOptions{
		Description: opts.Description,
		Interfaces:  append([]core.InterfaceRef{p.NodeInterfaceRef()}, opts.Interfaces...),
		IsTypeOf:    opts.IsTypeOf,
		Extensions:  opts.Extensions,
		Fields: func(t *core.FieldBuilder) core.Fields {
			out := core.Fields{}
			if fields != nil {
				out = fields(t)
			}
			typename := t.TypeName()
			out["id"] = GlobalID(t, GlobalIDFieldOptions{
				Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
					id, err := rawID(source)
					if err != nil || id == nil {
						return nil, err
					}
					return GlobalID{TypeName: typename, ID: idString(id)}, nil
				},
			})
			return out
		},
	})
	err := b.Store().OnTypeConfig(ref.Ref, func(tc *core.TypeConfig) error {
		if _, dup := p.loaders[tc.Name]; !dup {
			p.nodeTypes = append(p.nodeTypes, tc.Name)
		}
		p.loaders[tc.Name] = &nodeLoader{loadMany: opts.LoadMany, loadOne: opts.LoadOne, isTypeOf: opts.IsTypeOf}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return ref
}

// ConnectionObjectOptions describes a connection type.
type ConnectionObjectOptions struct {
	// Ref implements an existing placeholder instead of creating a ref.
	Ref           core.ObjectRef
	Name          string
	Type          core.OutputType
	EdgesNullable bool
	NodeNullable  bool
	Fields        core.FieldsFunc
}

// EdgeObjectOptions describes an edge type.
type EdgeObjectOptions struct {
	// Ref uses an existing edge type.
	Ref    core.ObjectRef
	Name   string
	Fields core.FieldsFunc
}

// ConnectionObject registers a connection type and, unless edge.Ref is set,
// its edge type. Without an edge name the edge is named "<connection>Edge".
func ConnectionObject(b *core.SchemaBuilder, opts ConnectionObjectOptions, edge EdgeObjectOptions) core.ObjectRef {
	p := Of(b)
	ref := opts.Ref
	if ref.IsZero() {
		ref = b.ObjectRef("")
	}
	edgeRef := edge.Ref
	if edgeRef.IsZero() {
		edgeName := edge.Name
		if edgeName == "" {
			if opts.Name == "" {
				panic("relay: an unnamed connection needs an edge name")
			}
			edgeName = opts.Name + "Edge"
		}
		edgeRef = EdgeObject(b, edgeName, EdgeObjectOptions{Fields: edge.Fields}, opts.Type, opts.NodeNullable)
	}
	extra := opts.Fields
	b.ImplementObject(ref, opts.Name, core.ObjectOptions{
		Fields: func(t *core.FieldBuilder) core.Fields {
			out := core.Fields{}
			if extra != nil {
				out = extra(t)
			}
			out["pageInfo"] = t.Expose("pageInfo", core.FieldOptions{Type: p.PageInfoRef()})
			out["edges"] = t.Expose("edges", core.FieldOptions{
				Type:          edgeRef,
				List:          true,
				NullableItems: opts.EdgesNullable,
			})
			return out
		},
	})
	return ref
}

// EdgeObject registers an edge type holding a cursor and a node of type node.
func EdgeObject(b *core.SchemaBuilder, name string, opts EdgeObjectOptions, node core.OutputType, nodeNullable bool) core.ObjectRef {
	cursor := core.Name(Of(b).opts.CursorType)
	extra := opts.Fields
	return b.ObjectType(name, core.ObjectOptions{
		Fields: func(t *core.FieldBuilder) core.Fields {
			out := core.Fields{}
			if extra != nil {
				out = extra(t)
			}
			out["cursor"] = t.Expose("cursor", core.FieldOptions{Type: cursor})
			out["node"] = t.Expose("node", core.FieldOptions{Type: node, Nullable: nodeNullable})
			return out
		},
	})
}
