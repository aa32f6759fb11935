// Package scopeauth guards field resolvers with auth scopes. A field or type
// lists the scopes that grant access; a request needs any one of them.
package scopeauth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/core"
)

// PluginName is the name the plugin registers under.
const PluginName = "scopeauth"

const scopesExtension = "authScopes"

// ErrNotAuthorized is returned by guarded resolvers when the request holds
// none of the required scopes.
var ErrNotAuthorized = errors.New("not authorized")

// ScopeLoader returns the scopes granted to the request in ctx.
type ScopeLoader func(ctx context.Context) (map[string]bool, error)

// Options configures the plugin.
type Options struct {
	// AuthScopes loads the request scopes. Without it every guarded field is denied.
	AuthScopes ScopeLoader
	// UnauthorizedError builds the error for a denied field. The default
	// wraps ErrNotAuthorized.
	UnauthorizedError func(fc *core.FieldConfig, required []string) error
}

// Scopes returns an extension map requiring any of scopes, for the
// Extensions option of fields and types.
func Scopes(scopes ...string) map[string]any {
	return map[string]any{scopesExtension: scopes}
}

// WithScopes adds the scope requirement to an existing extension map.
func WithScopes(ext map[string]any, scopes ...string) map[string]any {
	return core.SetExtension(ext, scopesExtension, scopes)
}

// Plugin is the scope-auth plugin instance of one schema builder.
type Plugin struct {
	core.BasePlugin
	opts Options
}

// New returns the factory to list in core.Options.Plugins.
func New(opts Options) core.PluginFactory {
	if opts.AuthScopes == nil {
		opts.AuthScopes = func(context.Context) (map[string]bool, error) { return nil, nil }
	}
	if opts.UnauthorizedError == nil {
		opts.UnauthorizedError = func(fc *core.FieldConfig, required []string) error {
			return fmt.Errorf("%w: %s.%s requires one of %v", ErrNotAuthorized, fc.ParentType, fc.Name, required)
		}
	}
	return func(b *core.SchemaBuilder) core.Plugin {
		return &Plugin{BasePlugin: core.NewBasePlugin(PluginName, b), opts: opts}
	}
}

// requirements returns the scope sets guarding fc: its own first, then its
// parent type's.
func (p *Plugin) requirements(fc *core.FieldConfig) [][]string {
	var out [][]string
	if scopes, _ := fc.Extension(scopesExtension).([]string); len(scopes) > 0 {
		out = append(out, scopes)
	}
	if tc, ok := p.Builder().Store().TypeConfigByName(fc.ParentType); ok {
		if scopes, _ := tc.Extension(scopesExtension).([]string); len(scopes) > 0 {
			out = append(out, scopes)
		}
	}
	return out
}

func (p *Plugin) authorize(ctx context.Context, fc *core.FieldConfig, required [][]string) error {
	granted, err := p.opts.AuthScopes(ctx)
	if err != nil {
		return fmt.Errorf("load auth scopes: %w", err)
	}
	for _, scopes := range required {
		if !anyGranted(granted, scopes) {
			p.Builder().Logger().Debug("field access denied",
				zap.String("plugin", PluginName),
				zap.String("field", fc.ParentType+"."+fc.Name),
				zap.Strings("required", scopes))
			return p.opts.UnauthorizedError(fc, scopes)
		}
	}
	return nil
}

func anyGranted(granted map[string]bool, scopes []string) bool {
	for _, s := range scopes {
		if granted[s] {
			return true
		}
	}
	return false
}

// WrapResolve checks the scopes of guarded fields before resolving them.
func (p *Plugin) WrapResolve(next core.Resolver, fc *core.FieldConfig) (core.Resolver, error) {
	required := p.requirements(fc)
	if len(required) == 0 {
		return nil, nil
	}
	return func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
		if err := p.authorize(ctx, fc, required); err != nil {
			return nil, err
		}
		return next(ctx, source, args, info)
	}, nil
}

// WrapSubscribe checks the scopes of guarded subscription fields.
func (p *Plugin) WrapSubscribe(next core.Subscriber, fc *core.FieldConfig) (core.Subscriber, error) {
	required := p.requirements(fc)
	if len(required) == 0 {
		return nil, nil
	}
	return func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (<-chan any, error) {
		if err := p.authorize(ctx, fc, required); err != nil {
			return nil, err
		}
		return next(ctx, source, args, info)
	}, nil
}
