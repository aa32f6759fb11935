// Package server serves printed schemas over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
	"github.com/hanpama/plugraph/internal/reqid"
)

// Paths served by Handler.
const (
	SchemaPath   = "/schema.graphql"
	SubGraphPath = "/subgraph.graphql"
	HealthPath   = "/healthz"
	MetricsPath  = "/metrics"
)

// SDLFunc produces a printed schema. It is called once per request.
type SDLFunc func(ctx context.Context) (string, error)

// Handler is an http.Handler that serves the SDL of a schema, the SDL of its
// federation subgraph and, optionally, Prometheus metrics.
type Handler struct {
	schema SDLFunc
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// SubGraph serves SubGraphPath when set.
	SubGraph SDLFunc

	// Metrics serves MetricsPath when set.
	Metrics http.Handler

	Events *eventbus.Bus
	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithSubGraph(fn SDLFunc) Option      { return func(o *Options) { o.SubGraph = fn } }
func WithMetrics(h http.Handler) Option   { return func(o *Options) { o.Metrics = h } }
func WithEvents(bus *eventbus.Bus) Option { return func(o *Options) { o.Events = bus } }
func WithLogger(log *zap.Logger) Option   { return func(o *Options) { o.Logger = log } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler serving the SDL produced by schema.
func New(schema SDLFunc, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	return &Handler{schema: schema, opt: op}
}

// statusRecorder remembers the status code written by a nested handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx, r.Header.Get(reqid.Header))
	r = r.WithContext(ctx)
	w.Header().Set(reqid.Header, rid)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, h.opt.Events, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, h.opt.Events, events.HTTPFinish{Request: r, Status: rec.status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(rec, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		rec.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		rec.Header().Set("Allow", "GET, HEAD, OPTIONS")
		h.writeError(rec, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch r.URL.Path {
	case SchemaPath:
		h.serveSDL(rec, r, h.schema)
	case SubGraphPath:
		if h.opt.SubGraph == nil {
			h.writeError(rec, http.StatusNotFound, "subgraph not configured")
			return
		}
		h.serveSDL(rec, r, h.opt.SubGraph)
	case HealthPath:
		writeJSON(rec, http.StatusOK, map[string]string{"status": "ok"}, h.opt.Pretty)
	case MetricsPath:
		if h.opt.Metrics == nil {
			h.writeError(rec, http.StatusNotFound, "metrics not configured")
			return
		}
		h.opt.Metrics.ServeHTTP(rec, r)
	default:
		h.writeError(rec, http.StatusNotFound, "not found")
	}
}

func (h *Handler) serveSDL(w http.ResponseWriter, r *http.Request, fn SDLFunc) {
	sdl, err := fn(r.Context())
	if err != nil {
		rid, _ := reqid.FromContext(r.Context())
		h.opt.Logger.Error("render schema", zap.String("request_id", rid), zap.String("path", r.URL.Path), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if acceptsJSON(r.Header.Get("Accept")) {
		writeJSON(w, http.StatusOK, sdlResponse{SDL: sdl}, h.opt.Pretty)
		return
	}
	w.Header().Set("Content-Type", "application/graphql; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(sdl))
}

// ------------------ Response formatting ------------------

type sdlResponse struct {
	SDL string `json:"sdl"`
}

type errorMessage struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Errors []errorMessage `json:"errors"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Errors: []errorMessage{{Message: msg}}}, h.opt.Pretty)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := slices.Contains(opts.AllowedOrigins, "*")
	if !wildcard && !slices.Contains(opts.AllowedOrigins, origin) {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
	}
}

func acceptsJSON(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(p), "application/json") {
			return true
		}
	}
	return false
}
