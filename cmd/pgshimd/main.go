// Command pgshimd runs the PostgreSQL wire-protocol shim as a standalone
// daemon: it loads its table catalog and credentials from a YAML config
// file, serves the wire protocol over TCP, and exposes Prometheus metrics
// over HTTP. Grounded on the teacher's wire.go Serve/ListenAndServe pair,
// generalized to this shim's config-driven collaborator wiring and to a
// graceful shutdown coordinated with golang.org/x/sync/errgroup, the way
// the pack's db-bouncer entrypoint coordinates its own background workers.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/olapwire/pgshim/internal/auth"
	"github.com/olapwire/pgshim/internal/compile"
	"github.com/olapwire/pgshim/internal/compile/types"
	"github.com/olapwire/pgshim/internal/config"
	"github.com/olapwire/pgshim/internal/metrics"
	"github.com/olapwire/pgshim/internal/session"
	"github.com/olapwire/pgshim/internal/shim"
	"github.com/olapwire/pgshim/internal/transport"
)

func main() {
	configPath := flag.String("config", "pgshim.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", true, "hot-reload the table catalog when the config file changes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *watch, logger); err != nil {
		logger.Error("pgshimd exited with an error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, watch bool, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	transportHandle := buildTransport(cfg)
	provider := auth.NewStaticProvider(cfg.Auth.Credentials, cfg.Database)

	srv := &session.Server{
		Auth:      provider,
		Transport: transportHandle,
		Version:   "pgshim 1.0 (PostgreSQL 14.0)",
	}

	if watch {
		cw, err := config.NewWatcher(configPath, func(reloaded *config.Config) {
			transportHandle.Replace(buildTables(reloaded))
		}, logger)
		if err != nil {
			logger.Warn("config hot-reload disabled", slog.String("err", err.Error()))
		} else {
			defer cw.Stop()
		}
	}

	collector := metrics.New()
	mgr := session.NewManager()
	planner := compile.NewDemoPlanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return serveMetrics(gctx, cfg.Listen.MetricsBind, collector)
	})

	group.Go(func() error {
		return serveWire(gctx, cfg.Listen.Address, cfg.Listen.ShutdownGrace, srv, mgr, planner, collector, logger)
	})

	return group.Wait()
}

func buildTables(cfg *config.Config) []transport.Table {
	tables := make([]transport.Table, 0, len(cfg.Tables))
	for name, spec := range cfg.Tables {
		cols := make([]transport.Column, len(spec.Columns))
		for i, cs := range spec.Columns {
			dt, err := types.ParseDataType(cs.Type)
			if err != nil {
				dt = types.Text
			}
			cols[i] = transport.Column{Name: cs.Name, Type: dt}
		}
		tables = append(tables, transport.Table{Name: name, Columns: cols, Rows: spec.Rows})
	}
	return tables
}

func buildTransport(cfg *config.Config) *transport.InMemory {
	return transport.NewInMemory(buildTables(cfg)...)
}

func serveMetrics(ctx context.Context, addr string, collector *metrics.Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// serveWire accepts and serves wire-protocol connections on addr until ctx
// is cancelled, then waits up to grace for open connections to finish.
// Connections still open when grace elapses are not closed by serveWire.
func serveWire(ctx context.Context, addr string, grace time.Duration, srv *session.Server, mgr *session.Manager, planner compile.Planner, collector *metrics.Collector, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	logger.Info("serving incoming connections", slog.String("addr", listener.Addr().String()))

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}

		collector.ConnectionOpened()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer collector.ConnectionClosed()

			c := shim.NewConn(logger, conn, srv, mgr, planner, collector)
			if err := c.Serve(context.Background()); err != nil {
				logger.Error("connection terminated with an error", slog.String("err", err.Error()))
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(grace):
		logger.Warn("shutdown grace period elapsed with connections still open")
	}

	return nil
}
