package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/reqid"
)

const testSDL = "type Query {\n  hello: String\n}\n"

func staticSDL(sdl string) SDLFunc {
	return func(context.Context) (string, error) { return sdl, nil }
}

func serve(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServeSchema(t *testing.T) {
	h := New(staticSDL(testSDL))

	w := serve(h, http.MethodGet, SchemaPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/graphql; charset=utf-8", w.Header().Get("Content-Type"))
	require.Equal(t, testSDL, w.Body.String())
	require.NotEmpty(t, w.Header().Get(reqid.Header))

	w = serve(h, http.MethodGet, SchemaPath, http.Header{"Accept": {"application/json"}})
	require.Equal(t, http.StatusOK, w.Code)
	var body sdlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, testSDL, body.SDL)

	w = serve(h, http.MethodHead, SchemaPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := New(staticSDL(testSDL))
	w := serve(h, http.MethodGet, HealthPath, http.Header{reqid.Header: {"abc-123"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc-123", w.Header().Get(reqid.Header))
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSchemaError(t *testing.T) {
	h := New(func(context.Context) (string, error) { return "", errors.New("build failed") })
	w := serve(h, http.MethodGet, SchemaPath, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"errors":[{"message":"build failed"}]}`, w.Body.String())
}

func TestOptionalEndpoints(t *testing.T) {
	h := New(staticSDL(testSDL))
	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, SubGraphPath, nil).Code)
	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, MetricsPath, nil).Code)
	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/other", nil).Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metric 1\n"))
	})
	h = New(staticSDL(testSDL), WithSubGraph(staticSDL("extend schema @link(url: \"x\")\n")), WithMetrics(metrics))

	w := serve(h, http.MethodGet, SubGraphPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "extend schema @link(url: \"x\")\n", w.Body.String())

	w = serve(h, http.MethodGet, MetricsPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "metric 1\n", w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(staticSDL(testSDL), WithPretty())
	w := serve(h, http.MethodPost, SchemaPath, nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	require.Equal(t, "{\n  \"errors\": [\n    {\n      \"message\": \"method not allowed\"\n    }\n  ]\n}\n", w.Body.String())
}

func TestCORS(t *testing.T) {
	h := New(staticSDL(testSDL), WithCORS("https://a.example"))

	w := serve(h, http.MethodOptions, SchemaPath, http.Header{
		"Origin":                         {"https://a.example"},
		"Access-Control-Request-Headers": {"X-Custom"},
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://a.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Custom", w.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "GET,HEAD,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	w = serve(h, http.MethodGet, SchemaPath, http.Header{"Origin": {"https://b.example"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	h = New(staticSDL(testSDL), WithCORS("*"))
	w = serve(h, http.MethodGet, SchemaPath, http.Header{"Origin": {"https://b.example"}})
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, reqid.Header, w.Header().Get("Access-Control-Expose-Headers"))
}

func TestHTTPEvents(t *testing.T) {
	bus := eventbus.New()
	var starts []string
	var finishes []events.HTTPFinish
	eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
		id, _ := reqid.FromContext(ctx)
		starts = append(starts, id)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e events.HTTPFinish) {
		finishes = append(finishes, e)
	})

	h := New(staticSDL(testSDL), WithEvents(bus))
	serve(h, http.MethodGet, SchemaPath, http.Header{reqid.Header: {"r1"}})
	serve(h, http.MethodGet, "/missing", http.Header{reqid.Header: {"r2"}})

	require.Equal(t, []string{"r1", "r2"}, starts)
	require.Len(t, finishes, 2)
	require.Equal(t, http.StatusOK, finishes[0].Status)
	require.Equal(t, SchemaPath, finishes[0].Request.URL.Path)
	require.Equal(t, http.StatusNotFound, finishes[1].Status)
	id, ok := reqid.FromContext(finishes[1].Request.Context())
	require.True(t, ok)
	require.Equal(t, "r2", id)
}

func TestDefaultTimeout(t *testing.T) {
	var hasDeadline bool
	h := New(func(ctx context.Context) (string, error) {
		_, hasDeadline = ctx.Deadline()
		return testSDL, nil
	})
	serve(h, http.MethodGet, SchemaPath, nil)
	require.True(t, hasDeadline)

	h = New(func(ctx context.Context) (string, error) {
		_, hasDeadline = ctx.Deadline()
		return testSDL, nil
	}, WithTimeout(0))
	serve(h, http.MethodGet, SchemaPath, nil)
	require.False(t, hasDeadline)
}
