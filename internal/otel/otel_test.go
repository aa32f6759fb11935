package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/reqid"
)

func newRecorder(t *testing.T, bus *eventbus.Bus) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(Subscribe(bus, tp.Tracer(tracerName)))
	return rec
}

func attr(span sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "plugraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestBuildSpan(t *testing.T) {
	bus := eventbus.New()
	rec := newRecorder(t, bus)

	b := core.NewSchemaBuilder(core.Options{Events: bus})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"ok": t.Boolean()}
	}})
	_, err := b.ToSchema(context.Background(), core.BuildOptions{})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "schema.build", spans[0].Name())
	require.Equal(t, int64(6), attr(spans[0], "plugraph.schema.types").AsInt64())
	require.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestFailedBuildSpan(t *testing.T) {
	bus := eventbus.New()
	rec := newRecorder(t, bus)

	ctx := context.Background()
	eventbus.Publish(ctx, bus, events.BuildStart{BuildID: "b1", Plugins: []string{"relay"}})
	eventbus.Publish(ctx, bus, events.PluginHookFailed{BuildID: "b1", Plugin: "relay", Hook: "BeforeBuild", Err: errors.New("boom")})
	eventbus.Publish(ctx, bus, events.BuildFinish{BuildID: "b1", Err: errors.New("boom")})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, []string{"relay"}, attr(spans[0], "plugraph.plugins").AsStringSlice())
	var names []string
	for _, ev := range spans[0].Events() {
		names = append(names, ev.Name)
	}
	require.Contains(t, names, "plugin hook failed")
}

func TestHTTPSpan(t *testing.T) {
	bus := eventbus.New()
	rec := newRecorder(t, bus)

	req := httptest.NewRequest(http.MethodGet, "/schema.graphql", nil)
	ctx, _ := reqid.NewContext(req.Context(), "")
	eventbus.Publish(ctx, bus, events.HTTPStart{Request: req})
	require.Empty(t, rec.Ended())
	eventbus.Publish(ctx, bus, events.HTTPFinish{Request: req, Status: http.StatusOK})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "http.request", spans[0].Name())
	require.Equal(t, "/schema.graphql", attr(spans[0], "http.target").AsString())
	require.Equal(t, int64(http.StatusOK), attr(spans[0], "http.status_code").AsInt64())
}
