package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longbow-lens/internal/config"
	"github.com/23skdu/longbow-lens/internal/flight"
	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/monitoring"
)

func (a *app) serveCmd() *cobra.Command {
	defaults := config.Default().Serve
	c := &cobra.Command{
		Use:   "serve PATH...",
		Short: "Serve the tensor records over Arrow Flight.",
		Long: `Serve loads the given files once and exposes the merged records on an
Arrow Flight endpoint (tickets "tensors" and "metadata"). Health, status
and Prometheus metrics are served over HTTP unless --http-addr is empty.`,
		Args: requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, args)
		},
	}
	c.Flags().String("flight-addr", defaults.FlightAddr, "Arrow Flight listen address")
	c.Flags().String("http-addr", defaults.HTTPAddr, "health and metrics listen address (empty disables)")
	return c
}

func (a *app) serve(ctx context.Context, args []string) error {
	res, err := a.load(ctx, args)
	if err != nil {
		return err
	}
	scfg := a.cfg.Serve

	srv := flight.NewServer(res.Set, scfg.MaxMessageBytes)
	if err := srv.Listen(scfg.FlightAddr); err != nil {
		return err
	}

	files := make([]string, len(res.Files))
	for i, f := range res.Files {
		files[i] = f.Path
	}
	hm := monitoring.NewHealthMonitor(files, res.Set)
	hm.SetFlightAddr(srv.Addr().String())
	for _, f := range res.Failures {
		hm.AddAlert("warning", "loader", f.Path+": "+f.Err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	if scfg.HTTPAddr != "" {
		l, err := net.Listen("tcp", scfg.HTTPAddr)
		if err != nil {
			srv.Shutdown()
			return errors.Wrapf(err, "listen %s", scfg.HTTPAddr)
		}
		g.Go(func() error { return hm.Start(l) })
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Log.Info("shutting down")
		srv.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hm.Stop(sctx)
	})
	return g.Wait()
}
