package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hanpama/plugraph/internal/config"
	"github.com/hanpama/plugraph/internal/core"
	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/example"
	"github.com/hanpama/plugraph/internal/logging"
	"github.com/hanpama/plugraph/internal/metrics"
	"github.com/hanpama/plugraph/internal/otel"
	"github.com/hanpama/plugraph/internal/plugins/federation"
	"github.com/hanpama/plugraph/internal/plugins/relay"
	"github.com/hanpama/plugraph/internal/schema"
	"github.com/hanpama/plugraph/internal/server"
)

const rootUsage = `plugraph: code-first GraphQL schema builder

USAGE:
  plugraph <command> [flags]

COMMANDS:
  print-schema     Build the example schema and print its SDL
  print-subgraph   Build the example schema and print its federation subgraph SDL
  serve            Serve the printed schemas and metrics over HTTP
  help             Show help for any command
`

const printSchemaUsage = `print-schema FLAGS:
  -config <file>   Config file (default: ./plugraph.yaml if present)
  -out <file>      Write SDL to file (default: output.schema, else stdout)
`

const printSubGraphUsage = `print-subgraph FLAGS:
  -config <file>   Config file (default: ./plugraph.yaml if present)
  -out <file>      Write SDL to file (default: output.subgraph, else stdout)
`

const serveUsage = `serve FLAGS:
  -config <file>             Config file (default: ./plugraph.yaml if present)
  -server.addr <addr>        HTTP listen address (default: server.addr, :8080)
  -server.pretty             Pretty-print JSON responses
  -otel.endpoint <addr>      OTLP collector endpoint (default: otel.endpoint)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "plugraph:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "print-schema":
		return cmdPrintSchema(ctx, cmdArgs, stdout, stderr)
	case "print-subgraph":
		return cmdPrintSubGraph(ctx, cmdArgs, stdout, stderr)
	case "serve":
		return cmdServe(ctx, cmdArgs, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	case "print-subgraph":
		fmt.Fprint(stdout, printSubGraphUsage)
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// env is what every command needs: configuration, a logger and the event
// bus builds report to.
type env struct {
	cfg *config.Config
	log *zap.Logger
	bus *eventbus.Bus
}

func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, bus: eventbus.New()}, nil
}

func (e *env) builder() *core.SchemaBuilder {
	return example.NewBuilder(example.Options{
		Relay: relay.Options{
			ClientMutationID:       e.cfg.Relay.ClientMutationID,
			CursorType:             e.cfg.Relay.CursorType,
			DisableNodeQueryFields: !e.cfg.Relay.NodeQueryFields,
		},
		Logger: e.log,
		Events: e.bus,
	})
}

func (e *env) subGraphOptions() federation.SubGraphOptions {
	return federation.SubGraphOptions{
		LinkURL:           e.cfg.Federation.LinkURL,
		ComposeDirectives: e.cfg.Federation.ComposeDirectives,
		Build:             core.BuildOptions{Validate: true},
	}
}

func printSDL(ctx context.Context, b *core.SchemaBuilder) (string, error) {
	s, err := b.ToSchema(ctx, core.BuildOptions{Validate: true})
	if err != nil {
		return "", fmt.Errorf("build schema: %w", err)
	}
	return schema.Render(schema.SortLexicographic(s)), nil
}

func printSubGraphSDL(ctx context.Context, b *core.SchemaBuilder, opts federation.SubGraphOptions) (string, error) {
	sg, err := federation.ToSubGraphSchema(ctx, b, opts)
	if err != nil {
		return "", fmt.Errorf("build subgraph: %w", err)
	}
	return sg.SDL, nil
}

func writeOutput(stdout io.Writer, path, sdl string) error {
	if path == "" {
		_, err := io.WriteString(stdout, sdl)
		return err
	}
	return os.WriteFile(path, []byte(sdl), 0o644)
}

func cmdPrintSchema(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	configPath, outFile := "", ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Config file")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSchemaUsage)
		return err
	}
	e, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()
	if outFile == "" {
		outFile = e.cfg.Output.Schema
	}

	sdl, err := printSDL(ctx, e.builder())
	if err != nil {
		return err
	}
	return writeOutput(stdout, outFile, sdl)
}

func cmdPrintSubGraph(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	configPath, outFile := "", ""
	fs := flag.NewFlagSet("print-subgraph", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Config file")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSubGraphUsage)
		return err
	}
	e, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()
	if outFile == "" {
		outFile = e.cfg.Output.SubGraph
	}

	sdl, err := printSubGraphSDL(ctx, e.builder(), e.subGraphOptions())
	if err != nil {
		return err
	}
	return writeOutput(stdout, outFile, sdl)
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	configPath := ""
	var addr, otelEndpoint string
	var pretty bool
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Config file")
	fs.StringVar(&addr, "server.addr", "", "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", false, "Pretty-print JSON responses")
	fs.StringVar(&otelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	e, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()
	if addr != "" {
		e.cfg.Server.Addr = addr
	}
	if otelEndpoint != "" {
		e.cfg.Otel.Endpoint = otelEndpoint
	}
	if pretty {
		e.cfg.Server.Pretty = true
	}

	shutdownTracing, err := otel.Setup(ctx, e.bus, e.cfg.Otel.Endpoint, e.cfg.Otel.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	defer m.Subscribe(e.bus)()

	h, err := newHandler(ctx, e, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: e.cfg.Server.Addr, Handler: h}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	e.log.Info("serving schema", zap.String("addr", e.cfg.Server.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newHandler builds the schema and subgraph once and serves the results;
// the builder is not safe for concurrent use.
func newHandler(ctx context.Context, e *env, reg *prometheus.Registry) (*server.Handler, error) {
	b := e.builder()
	sdl, err := printSDL(ctx, b)
	if err != nil {
		return nil, err
	}
	subgraph, err := printSubGraphSDL(ctx, b, e.subGraphOptions())
	if err != nil {
		return nil, err
	}
	opts := []server.Option{
		server.WithTimeout(e.cfg.Server.Timeout),
		server.WithSubGraph(func(context.Context) (string, error) { return subgraph, nil }),
		server.WithMetrics(metrics.Handler(reg)),
		server.WithEvents(e.bus),
		server.WithLogger(e.log),
	}
	if e.cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if e.cfg.Server.CORS {
		opts = append(opts, server.WithCORS("*"))
	}
	return server.New(func(context.Context) (string, error) { return sdl, nil }, opts...), nil
}
