package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/httpapi"
	"github.com/danielpatrickdp/hexagram-oracle/internal/rpc"
)

const shutdownTimeout = 10 * time.Second

// #region serve
func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC APIs",
		Long: "Serve the JSON API and /metrics over HTTP and the oracle service over\n" +
			"gRPC. Edits under the data dir are picked up without a restart unless\n" +
			"watching is turned off. An empty address disables that listener.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			flags := cmd.Flags()
			if flags.Changed("http-addr") {
				a.cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("grpc-addr") {
				a.cfg.GRPCAddr = grpcAddr
			}
			if flags.Changed("watch") {
				a.cfg.WatchSources = watch
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if a.cfg.HTTPAddr == "" && a.cfg.GRPCAddr == "" {
				return fmt.Errorf("%w: both listeners are disabled", faults.ErrInvalidArgument)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (ORACLE_HTTP_ADDR)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (ORACLE_GRPC_ADDR)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload interpretation data on change (ORACLE_WATCH_SOURCES)")
	return cmd
}

// serve runs every enabled listener until ctx is done or one of them fails.
func serve(ctx context.Context, a *app) error {
	var lis net.Listener
	if a.cfg.GRPCAddr != "" {
		var err error
		if lis, err = net.Listen("tcp", a.cfg.GRPCAddr); err != nil {
			return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	method, source := a.cfg.DefaultMethod(), a.cfg.Source

	if a.cfg.HTTPAddr != "" {
		api := httpapi.New(a.engine,
			httpapi.WithJournal(a.journal),
			httpapi.WithMetrics(a.metrics),
			httpapi.WithLogger(a.log),
			httpapi.WithDefaults(method, source),
		)
		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.log.Info("http listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if lis != nil {
		oracle := rpc.NewServer(a.engine, rpc.WithLogger(a.log), rpc.WithDefaults(method, source))
		gs := oracle.NewGRPCServer()
		g.Go(func() error {
			a.log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			oracle.Shutdown()
			gs.GracefulStop()
			return nil
		})
	}

	if a.cfg.WatchSources {
		g.Go(func() error {
			return a.loader.Watch(ctx, func() {
				a.log.Debug("interpretation cache cleared")
			})
		})
	}

	err := g.Wait()
	a.log.Info("stopped")
	return err
}

// #endregion serve
