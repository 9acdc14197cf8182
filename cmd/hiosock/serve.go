// File: cmd/hiosock/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/containerd/log"
	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/control"
	"github.com/momentics/hiosock/socket"
	"github.com/momentics/hiosock/stream"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	addr        string
	port        uint16
	backlog     int
	metricsAddr string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a TCP echo server on the socket layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.store.Get()
			flags := cmd.Flags()
			if !flags.Changed("addr") {
				opts.addr = cfg.ListenAddr
			}
			if !flags.Changed("port") {
				opts.port = uint16(cfg.ListenPort)
			}
			if !flags.Changed("backlog") {
				opts.backlog = cfg.Backlog
			}
			if !flags.Changed("metrics-addr") {
				opts.metricsAddr = cfg.MetricsAddr
			}
			return runServe(cmd.Context(), root, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "0.0.0.0", "IPv4 address to listen on")
	flags.Uint16VarP(&opts.port, "port", "p", 0, "Port to listen on, 0 picks one")
	flags.IntVar(&opts.backlog, "backlog", stream.DefaultBacklog, "Listen backlog")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /debug/state on this address")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts serveOptions) error {
	addr, err := api.ParseAddr(opts.addr)
	if err != nil {
		return errors.Wrap(err, "addr")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	layer := socket.Default()
	ln, err := stream.Listen(api.Endpoint{Addr: addr, Port: opts.port}, opts.backlog,
		stream.WithLayer(layer), stream.WithConfig(root.store.Get()))
	if err != nil {
		return err
	}
	logger := log.G(ctx).WithField("endpoint", ln.Endpoint().String())
	logger.Info("echo server listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		return acceptLoop(ctx, ln)
	})
	g.Go(func() error {
		return watchReload(ctx, root)
	})
	if opts.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, opts.metricsAddr, layer.Platform(), root.store)
		})
	}

	err = g.Wait()
	logger.Info("echo server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func acceptLoop(ctx context.Context, ln *stream.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, api.ErrClosed) {
				return nil
			}
			return err
		}
		go echo(ctx, c)
	}
}

// echo copies until the peer half-closes, then half-closes back.
func echo(ctx context.Context, c *stream.Conn) {
	logger := log.G(ctx).WithField("peer", c.RemoteEndpoint().String())
	defer c.Close()
	start := time.Now()
	n, err := io.Copy(c, c)
	if err != nil {
		logger.WithError(err).Warn("echo failed")
		return
	}
	if err := c.CloseWrite(); err != nil {
		logger.WithError(err).Debug("half-close failed")
	}
	logger.WithFields(log.Fields{"bytes": n, "duration": time.Since(start)}).Debug("echo done")
}

// watchReload re-reads the config file on SIGHUP.
func watchReload(ctx context.Context, root *rootOptions) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := root.reload(); err != nil {
				log.G(ctx).WithError(err).Error("config reload failed")
				continue
			}
			log.G(ctx).WithField("config", root.configFile).Info("config reloaded")
		}
	}
}

func serveMetrics(ctx context.Context, addr string, p api.Platform, store *control.ConfigStore) error {
	probes := control.NewDebugProbes()
	probes.RegisterStoreProbes(store, control.DefaultMetrics())
	control.RegisterPlatformProbes(probes, p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/state", probes)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.G(ctx).WithField("addr", addr).Info("metrics listening")

	select {
	case err := <-errCh:
		return errors.Wrap(err, "metrics server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
