package relay

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ResolveNodes loads the nodes behind ids. Each type's loader runs once for
// all of its ids, types load concurrently, and the result is aligned with
// ids. Nil ids, unknown types and misses yield nil entries.
func (p *Plugin) ResolveNodes(ctx context.Context, ids []*GlobalID) ([]any, error) {
	results := make([]any, len(ids))
	positions := make(map[string][]int)
	var order []string
	for i, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := p.loaders[id.TypeName]; !ok {
			continue
		}
		if _, seen := positions[id.TypeName]; !seen {
			order = append(order, id.TypeName)
		}
		positions[id.TypeName] = append(positions[id.TypeName], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, typename := range order {
		loader := p.loaders[typename]
		idx := positions[typename]
		g.Go(func() error {
			raw := make([]string, len(idx))
			for j, i := range idx {
				raw[j] = ids[i].ID
			}
			values, err := loader.load(ctx, raw)
			if err != nil {
				return fmt.Errorf("load %s nodes: %w", typename, err)
			}
			for j, i := range idx {
				if j < len(values) {
					results[i] = values[j]
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *nodeLoader) load(ctx context.Context, ids []string) ([]any, error) {
	if l.loadMany != nil {
		return l.loadMany(ctx, ids)
	}
	if l.loadOne == nil {
		return make([]any, len(ids)), nil
	}
	out := make([]any, len(ids))
	for i, id := range ids {
		v, err := l.loadOne(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
