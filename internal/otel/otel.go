// Package otel traces schema builds and HTTP requests published on an
// event bus.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/reqid"
)

const tracerName = "github.com/hanpama/plugraph"

// Setup exports spans to the OTLP collector at endpoint and subscribes them
// to bus. If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	unsubscribe := Subscribe(bus, tp.Tracer(tracerName))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

type subscriber struct {
	tracer     trace.Tracer
	buildSpans sync.Map // build id -> trace.Span
	httpSpans  sync.Map // request id -> trace.Span
}

// Subscribe starts a "schema.build" span per build and an "http.request"
// span per request, using tracer.
func Subscribe(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	unsubs := []func(){
		eventbus.Subscribe(bus, s.buildStart),
		eventbus.Subscribe(bus, s.buildFinish),
		eventbus.Subscribe(bus, s.hookFailed),
		eventbus.Subscribe(bus, s.httpStart),
		eventbus.Subscribe(bus, s.httpFinish),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) buildStart(ctx context.Context, e events.BuildStart) {
	_, span := s.tracer.Start(ctx, "schema.build")
	span.SetAttributes(
		attribute.String("plugraph.build_id", e.BuildID),
		attribute.StringSlice("plugraph.plugins", e.Plugins),
	)
	s.buildSpans.Store(e.BuildID, span)
}

func (s *subscriber) buildFinish(_ context.Context, e events.BuildFinish) {
	v, ok := s.buildSpans.LoadAndDelete(e.BuildID)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("plugraph.schema.types", e.Types))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

func (s *subscriber) hookFailed(_ context.Context, e events.PluginHookFailed) {
	v, ok := s.buildSpans.Load(e.BuildID)
	if !ok {
		return
	}
	v.(trace.Span).AddEvent("plugin hook failed", trace.WithAttributes(
		attribute.String("plugraph.plugin", e.Plugin),
		attribute.String("plugraph.hook", e.Hook),
		attribute.String("exception.message", e.Err.Error()),
	))
}

func (s *subscriber) httpStart(ctx context.Context, e events.HTTPStart) {
	rid, _ := reqid.FromContext(ctx)
	_, span := s.tracer.Start(ctx, "http.request")
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
	)
	s.httpSpans.Store(rid, span)
}

func (s *subscriber) httpFinish(ctx context.Context, e events.HTTPFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.httpSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	if e.Status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}
