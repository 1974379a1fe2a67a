package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	threadobject "github.com/Swind/go-threadobject"
	"github.com/Swind/go-threadobject/config"
	"github.com/Swind/go-threadobject/core"
	promexp "github.com/Swind/go-threadobject/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

var (
	metricsAddr string
	envFile     string
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "metrics-addr",
		Usage:       "serve Prometheus metrics on this address while running (e.g. :9100)",
		EnvVar:      config.Prefix + "METRICS_ADDR",
		Destination: &metricsAddr,
	},
	cli.StringFlag{
		Name:        "env-file",
		Usage:       "read settings from this dotenv file instead of ./.env",
		Destination: &envFile,
	},
}

func execute(args []string, out io.Writer) error {
	app := cli.App{
		Name:      "threadobject",
		HelpName:  "threadobject",
		Usage:     "drive worker threads with hashing and timer workloads",
		UsageText: "threadobject [global options] <command> [arguments...]",
		Version:   version,
		Writer:    out,
		Flags:     globalFlags,
		Commands: []cli.Command{
			{
				Name:    "pressure",
				Aliases: []string{"p"},
				Usage:   "hash, derive keys, sign and verify across worker threads",
				Action:  pressure,
				Flags:   pressureFlags,
			},
			{
				Name:    "delay",
				Aliases: []string{"d"},
				Usage:   "schedule staggered timers and report when each fires",
				Action:  delay,
				Flags:   delayFlags,
			},
		},
	}
	return app.Run(args)
}

// session bundles what every command needs: the App, a loop on the calling
// goroutine that receives results, and a signal-aware context.
type session struct {
	app  *threadobject.App
	main *core.MessageLoop
	ctx  context.Context
	out  io.Writer

	stop context.CancelFunc
}

func newSession(c *cli.Context) (*session, error) {
	var cfg config.Config
	var err error
	if envFile != "" {
		cfg, err = config.LoadFrom(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	l, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	logger := core.NewLogifaceLogger(l)

	opts := []threadobject.AppOption{threadobject.WithAppLogger(logger)}
	var reg *prom.Registry
	if cfg.MetricsAddr != "" {
		reg = prom.NewRegistry()
		exporter, err := promexp.NewMetricsExporter(cfg.MetricsNamespace, reg, promexp.ExporterOptions{})
		if err != nil {
			return nil, err
		}
		opts = append(opts, threadobject.WithAppMetrics(exporter))
	}
	app := threadobject.NewApp(cfg, opts...)

	if reg != nil {
		if err := serveMetrics(app, reg); err != nil {
			_ = app.Shutdown()
			return nil, err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &session{
		app: app,
		main: core.NewMessageLoop(
			core.WithLoopName("main"),
			core.WithLogger(logger),
			core.WithMetrics(app.Metrics()),
		),
		ctx:  ctx,
		out:  c.App.Writer,
		stop: stop,
	}, nil
}

func (s *session) Close() error {
	s.stop()
	err := s.app.Shutdown()
	return errors.Join(err, s.main.Destroy())
}

func serveMetrics(app *threadobject.App, reg *prom.Registry) error {
	cfg := app.Config()

	poller, err := promexp.NewSnapshotPoller(cfg.MetricsNamespace, reg, cfg.PollInterval)
	if err != nil {
		return err
	}
	poller.AddSource(app)

	ln, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger().Error("metrics server failed", core.F("error", err))
		}
	}()
	app.Logger().Info("serving metrics", core.F("addr", ln.Addr().String()))

	// registered first so it is torn down after every thread
	if err := app.AtExit(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}); err != nil {
		return err
	}

	poller.Start(context.Background())
	return app.AtExit(func() error {
		poller.Stop()
		return nil
	})
}
