package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/plugraph/internal/metrics"
	"github.com/hanpama/plugraph/internal/server"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestHelp(t *testing.T) {
	out, _, err := runCLI(t, "help")
	require.NoError(t, err)
	require.Equal(t, rootUsage, out)

	out, _, err = runCLI(t, "help", "serve")
	require.NoError(t, err)
	require.Equal(t, serveUsage, out)

	_, _, err = runCLI(t, "help", "bogus")
	require.ErrorContains(t, err, `unknown help topic "bogus"`)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runCLI(t)
	require.ErrorContains(t, err, "missing command")
	require.Equal(t, rootUsage, stderr)

	_, stderr, err = runCLI(t, "compile")
	require.ErrorContains(t, err, `unknown command "compile"`)
	require.Equal(t, rootUsage, stderr)

	_, stderr, err = runCLI(t, "print-schema", "-nope")
	require.Error(t, err)
	require.Equal(t, printSchemaUsage, stderr)
}

func TestPrintSchema(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := runCLI(t, "print-schema")
	require.NoError(t, err)
	require.Contains(t, out, "type Team implements Node {")
	require.Contains(t, out, "addPoint(input: CreatePointInput!): Point")
	require.Contains(t, out, "points(after: String, before: String, first: Int, last: Int, order: Sort = ASC): GamePointsConnection!")
	require.NotContains(t, out, "@key")
}

func TestPrintSubGraphToFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output:\n  subgraph: subgraph.graphql\n"), 0o644))

	out, _, err := runCLI(t, "print-subgraph", "-config", cfg)
	require.NoError(t, err)
	require.Empty(t, out)

	sdl, err := os.ReadFile(filepath.Join(dir, "subgraph.graphql"))
	require.NoError(t, err)
	require.Contains(t, string(sdl), "extend schema\n  @link(")
	require.Contains(t, string(sdl), `type Team implements Node @key(fields: "id") {`)

	_, _, err = runCLI(t, "print-subgraph", "-config", cfg, "-out", filepath.Join(dir, "other.graphql"))
	require.NoError(t, err)
	other, err := os.ReadFile(filepath.Join(dir, "other.graphql"))
	require.NoError(t, err)
	require.Equal(t, string(sdl), string(other))
}

func TestHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	e, err := setup("")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	defer metrics.New(reg).Subscribe(e.bus)()

	h, err := newHandler(context.Background(), e, reg)
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get(server.SchemaPath)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "type Game implements Node {")

	w = get(server.SubGraphPath)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `type Game implements Node @key(fields: "id") {`)

	w = get(server.MetricsPath)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `plugraph_schema_builds_total{result="success"} 1`)
	require.Contains(t, w.Body.String(), `plugraph_http_requests_total{code="200",path="/schema.graphql"} 1`)
}
