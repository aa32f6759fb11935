// Package validation checks field arguments against go-playground/validator
// tags before the resolver runs.
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/hanpama/plugraph/internal/core"
)

// PluginName is the name the plugin registers under.
const PluginName = "validation"

const validateExtension = "validate"

// ArgumentError reports an argument or input field that failed its tag.
type ArgumentError struct {
	// Field is the resolved field, as Type.field.
	Field string
	// Input is the argument name, or Type.field for input object fields.
	Input string
	Tag   string
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s of %s: %v", e.Input, e.Field, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Validate returns an extension map applying tag, for the Extensions option
// of arguments and input fields. List values are checked item by item.
func Validate(tag string) map[string]any {
	return map[string]any{validateExtension: tag}
}

// Options configures the plugin.
type Options struct {
	// Validator runs the tags; custom validations are registered on it.
	// A new validator is used when nil.
	Validator *validator.Validate
}

// Plugin is the validation plugin instance of one schema builder.
type Plugin struct {
	core.BasePlugin
	validate *validator.Validate
}

// New returns the factory to list in core.Options.Plugins.
func New(opts Options) core.PluginFactory {
	v := opts.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return func(b *core.SchemaBuilder) core.Plugin {
		return &Plugin{BasePlugin: core.NewBasePlugin(PluginName, b), validate: v}
	}
}

// OnInputFieldConfig rejects malformed tags at build time.
func (p *Plugin) OnInputFieldConfig(ic *core.InputFieldConfig) (*core.InputFieldConfig, error) {
	tag, ok := ic.Extension(validateExtension).(string)
	if !ok {
		return nil, nil
	}
	if err := p.checkTag(tag); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", ic.ParentType, ic.Name, err)
	}
	return nil, nil
}

// checkTag runs tag once against a zero value; the validator panics on
// unknown tags.
func (p *Plugin) checkTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bad validate tag %q: %v", tag, r)
		}
	}()
	_ = p.validate.Var(nil, tag)
	return nil
}

// WrapResolve validates tagged arguments, including those nested in input
// objects, before calling the resolver.
func (p *Plugin) WrapResolve(next core.Resolver, fc *core.FieldConfig) (core.Resolver, error) {
	mapping := p.Builder().MapInputFields(fc.Args, func(ic *core.InputFieldConfig) (any, bool) {
		tag, _ := ic.Extension(validateExtension).(string)
		return tag, tag != ""
	})
	if mapping == nil {
		return nil, nil
	}
	field := fc.ParentType + "." + fc.Name
	return func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
		_, err := core.MapInputValues(args, mapping, func(entry *core.InputFieldMapEntry, value any) (any, error) {
			tag := entry.Value.(string)
			if err := p.validate.VarCtx(ctx, value, tag); err != nil {
				return nil, argumentError(field, entry.Config, tag, err)
			}
			return value, nil
		})
		if err != nil {
			return nil, err
		}
		return next(ctx, source, args, info)
	}, nil
}

func argumentError(field string, ic *core.InputFieldConfig, tag string, err error) *ArgumentError {
	input := ic.Name
	if ic.Kind != core.InputFieldKindArg {
		input = ic.ParentType + "." + ic.Name
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		tag = fieldErrs[0].Tag()
	}
	return &ArgumentError{Field: field, Input: input, Tag: tag, Err: err}
}
