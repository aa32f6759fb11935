package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/buildid"
	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/schema"
)

// BuildOptions tunes ToSchema.
type BuildOptions struct {
	Description string
	// Directives are applied to the schema definition.
	Directives []*schema.AppliedDirective
	// Validate loads the printed SDL with gqlparser before returning.
	Validate bool
}

// ToSchema resolves every registered config and builds the schema. The first
// call runs the whole pipeline; later calls return the cached schema, or the
// error the build failed with.
//
// ctx carries the build ID for events and tracing. A build is not
// cancellable once started.
func (b *SchemaBuilder) ToSchema(ctx context.Context, opts BuildOptions) (*schema.Schema, error) {
	switch b.state {
	case StateBuilt:
		return b.schema, nil
	case StateFailed:
		return nil, b.err
	case StateResolving:
		return nil, ErrBuildInProgress
	}

	b.ctx, b.buildID = buildid.NewContext(ctx)
	b.state = StateResolving
	names := make([]string, len(b.plugins))
	for i, p := range b.plugins {
		names[i] = p.Name()
	}
	log := b.log.With(zap.String("build_id", b.buildID))
	log.Debug("schema build started", zap.Strings("plugins", names))
	eventbus.Publish(b.ctx, b.opts.Events, events.BuildStart{BuildID: b.buildID, Plugins: names})

	start := time.Now()
	s, err := b.runBuild(opts)
	finish := events.BuildFinish{BuildID: b.buildID, Err: err, Duration: time.Since(start)}
	if s != nil {
		finish.Types = len(s.Types)
	}
	eventbus.Publish(b.ctx, b.opts.Events, finish)

	if err != nil {
		b.state = StateFailed
		b.err = err
		log.Error("schema build failed", zap.Error(err))
		return nil, err
	}
	b.state = StateBuilt
	b.schema = s
	log.Debug("schema build finished", zap.Int("types", len(s.Types)), zap.Duration("duration", finish.Duration))
	return s, nil
}

// runBuild runs the pipeline, turning a panic escaping it into the build error
// so the builder still ends in StateFailed.
func (b *SchemaBuilder) runBuild(opts BuildOptions) (s *schema.Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			if e, ok := r.(error); ok {
				err = fmt.Errorf("schema build panicked: %w", e)
			} else {
				err = fmt.Errorf("schema build panicked: %v", r)
			}
		}
	}()
	return b.build(opts)
}

func (b *SchemaBuilder) build(opts BuildOptions) (*schema.Schema, error) {
	if errs := b.store.takeErrors(); len(errs) > 0 {
		return nil, BuildError(errs)
	}
	if err := b.beforeBuild(); err != nil {
		return nil, err
	}
	if err := b.store.resolve(); err != nil {
		return nil, err
	}
	if errs := b.store.takeErrors(); len(errs) > 0 {
		return nil, BuildError(errs)
	}
	b.log.Debug("configs resolved", zap.Int("types", len(b.store.queue)))

	if err := b.applyConfigHooks(); err != nil {
		return nil, err
	}
	// Hooks may retype fields or add interfaces and members.
	if errs := b.store.checkRefs(); len(errs) > 0 {
		return nil, BuildError(errs)
	}
	if err := b.wrapResolvers(); err != nil {
		return nil, err
	}

	b.materialized = true
	s, err := b.materialize(opts)
	if err != nil {
		return nil, err
	}
	if opts.Validate {
		if err := schema.Validate(s); err != nil {
			return nil, fmt.Errorf("validate schema: %w", err)
		}
	}
	return b.afterBuild(s)
}
