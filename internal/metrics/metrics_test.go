package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
)

func TestBuildEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	bus := eventbus.New()
	defer m.Subscribe(bus)()

	b := core.NewSchemaBuilder(core.Options{Events: bus})
	b.QueryType(core.RootOptions{Fields: func(t *core.FieldBuilder) core.Fields {
		return core.Fields{"ok": t.Boolean()}
	}})
	_, err := b.ToSchema(context.Background(), core.BuildOptions{})
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Builds.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.Builds.WithLabelValues("failure")))
	require.Equal(t, 6.0, testutil.ToFloat64(m.SchemaTypes))
	require.Equal(t, 1, testutil.CollectAndCount(m.BuildDuration))

	eventbus.Publish(context.Background(), bus, events.BuildFinish{Err: errors.New("boom")})
	eventbus.Publish(context.Background(), bus, events.PluginHookFailed{Plugin: "relay", Hook: "WrapResolve"})
	require.Equal(t, 1.0, testutil.ToFloat64(m.Builds.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HookFailures.WithLabelValues("relay", "WrapResolve")))
	require.Equal(t, 6.0, testutil.ToFloat64(m.SchemaTypes))
}

func TestHTTPEventsAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	bus := eventbus.New()
	unsubscribe := m.Subscribe(bus)

	req := httptest.NewRequest(http.MethodGet, "/schema.graphql", nil)
	eventbus.Publish(req.Context(), bus, events.HTTPFinish{Request: req, Status: http.StatusOK, Duration: time.Millisecond})
	eventbus.Publish(req.Context(), bus, events.HTTPFinish{Request: req, Status: http.StatusOK, Duration: time.Millisecond})
	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/schema.graphql", "200")))

	unsubscribe()
	eventbus.Publish(req.Context(), bus, events.HTTPFinish{Request: req, Status: http.StatusOK})
	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/schema.graphql", "200")))

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `plugraph_http_requests_total{code="200",path="/schema.graphql"} 2`)
}
