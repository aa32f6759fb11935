package core

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/schema"
)

// Plugin is the minimal contract of a schema builder plugin. Plugins opt into
// lifecycle hooks by implementing any of the hook interfaces below.
type Plugin interface {
	Name() string
}

// PluginFactory creates the plugin instance owned by b. Factories run once,
// in declaration order, while the builder is constructed.
type PluginFactory func(b *SchemaBuilder) Plugin

// BeforeBuildHook runs before resolution starts. It may still register types.
type BeforeBuildHook interface {
	BeforeBuild() error
}

// TypeConfigHook transforms every type config after resolution.
// Returning nil keeps the config unchanged.
type TypeConfigHook interface {
	OnTypeConfig(tc *TypeConfig) (*TypeConfig, error)
}

// OutputFieldHook transforms every output field config.
type OutputFieldHook interface {
	OnOutputFieldConfig(fc *FieldConfig) (*FieldConfig, error)
}

// InputFieldHook transforms every argument and input object field config.
type InputFieldHook interface {
	OnInputFieldConfig(ic *InputFieldConfig) (*InputFieldConfig, error)
}

// ResolveWrapper wraps field resolvers. The wrapper of a plugin receives the
// resolver produced by the plugins registered before it, so the last
// registered plugin is the outermost call.
type ResolveWrapper interface {
	WrapResolve(next Resolver, fc *FieldConfig) (Resolver, error)
}

// SubscribeWrapper wraps subscription subscribers, nested like ResolveWrapper.
type SubscribeWrapper interface {
	WrapSubscribe(next Subscriber, fc *FieldConfig) (Subscriber, error)
}

// AfterBuildHook may replace the built schema. Returning nil keeps it.
type AfterBuildHook interface {
	AfterBuild(s *schema.Schema) (*schema.Schema, error)
}

// BasePlugin carries the name and builder every plugin needs. Embed it.
type BasePlugin struct {
	name    string
	builder *SchemaBuilder
}

func NewBasePlugin(name string, b *SchemaBuilder) BasePlugin {
	return BasePlugin{name: name, builder: b}
}

func (p *BasePlugin) Name() string { return p.name }

// Builder returns the schema builder owning the plugin.
func (p *BasePlugin) Builder() *SchemaBuilder { return p.builder }

// callHook runs fn on behalf of plugin, turning errors and panics into a
// *PluginHookError.
func (b *SchemaBuilder) callHook(plugin Plugin, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}
		name := ""
		if plugin != nil {
			name = plugin.Name()
		}
		if _, ok := err.(*PluginHookError); !ok {
			err = &PluginHookError{Plugin: name, Hook: hook, Err: err}
		}
		b.log.Error("plugin hook failed", zap.String("plugin", name), zap.String("hook", hook), zap.Error(err))
		eventbus.Publish(b.ctx, b.opts.Events, events.PluginHookFailed{BuildID: b.buildID, Plugin: name, Hook: hook, Err: err})
	}()
	return fn()
}

func (b *SchemaBuilder) beforeBuild() error {
	for _, p := range b.plugins {
		if h, ok := p.(BeforeBuildHook); ok {
			if err := b.callHook(p, "BeforeBuild", h.BeforeBuild); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyConfigHooks passes every type, field and input value config through
// the plugins in registration order, storing the results back.
func (b *SchemaBuilder) applyConfigHooks() error {
	s := b.store
	for i, tc := range s.queue {
		for _, p := range b.plugins {
			h, ok := p.(TypeConfigHook)
			if !ok {
				continue
			}
			err := b.callHook(p, "OnTypeConfig", func() error {
				out, err := h.OnTypeConfig(tc)
				if out != nil {
					tc = out
				}
				return err
			})
			if err != nil {
				return err
			}
		}
		s.queue[i] = tc
		s.configs[tc.Ref] = tc

		fields := s.fields[tc.Ref]
		for j, fc := range fields {
			for _, p := range b.plugins {
				h, ok := p.(OutputFieldHook)
				if !ok {
					continue
				}
				err := b.callHook(p, "OnOutputFieldConfig", func() error {
					out, err := h.OnOutputFieldConfig(fc)
					if out != nil {
						fc = out
					}
					return err
				})
				if err != nil {
					return err
				}
			}
			for k, arg := range fc.Args {
				out, err := b.applyInputHooks(arg)
				if err != nil {
					return err
				}
				fc.Args[k] = out
			}
			fields[j] = fc
		}

		inputs := s.inputFields[tc.Ref]
		for j, ic := range inputs {
			out, err := b.applyInputHooks(ic)
			if err != nil {
				return err
			}
			inputs[j] = out
		}
	}
	return nil
}

func (b *SchemaBuilder) applyInputHooks(ic *InputFieldConfig) (*InputFieldConfig, error) {
	for _, p := range b.plugins {
		h, ok := p.(InputFieldHook)
		if !ok {
			continue
		}
		err := b.callHook(p, "OnInputFieldConfig", func() error {
			out, err := h.OnInputFieldConfig(ic)
			if out != nil {
				ic = out
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return ic, nil
}

// wrapResolvers composes the resolver and subscriber chains of every field.
func (b *SchemaBuilder) wrapResolvers() error {
	for _, tc := range b.store.queue {
		for _, fc := range b.store.fields[tc.Ref] {
			resolve := fc.Resolve
			subscribe := fc.Subscribe
			for _, p := range b.plugins {
				if w, ok := p.(ResolveWrapper); ok {
					err := b.callHook(p, "WrapResolve", func() error {
						r, err := w.WrapResolve(resolve, fc)
						if r != nil {
							resolve = r
						}
						return err
					})
					if err != nil {
						return err
					}
				}
				if w, ok := p.(SubscribeWrapper); ok && subscribe != nil {
					err := b.callHook(p, "WrapSubscribe", func() error {
						sub, err := w.WrapSubscribe(subscribe, fc)
						if sub != nil {
							subscribe = sub
						}
						return err
					})
					if err != nil {
						return err
					}
				}
			}
			fc.Resolve = resolve
			fc.Subscribe = subscribe
		}
	}
	return nil
}

func (b *SchemaBuilder) afterBuild(s *schema.Schema) (*schema.Schema, error) {
	for _, p := range b.plugins {
		h, ok := p.(AfterBuildHook)
		if !ok {
			continue
		}
		err := b.callHook(p, "AfterBuild", func() error {
			out, err := h.AfterBuild(s)
			if out != nil {
				s = out
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
