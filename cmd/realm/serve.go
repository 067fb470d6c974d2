package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Arthur-Pio/axelor-open-platform/internal/httpapi"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var healthEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC health endpoints",
		Long: `Starts the realm API: credential verification, authorization lookup,
readiness and Prometheus metrics over HTTP plus the gRPC health service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, healthEvery)
		},
	}
	cmd.Flags().DurationVar(&healthEvery, "health-interval", 10*time.Second, "interval between readiness probes")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, healthEvery time.Duration) error {
	settings := opts.settings
	logger := obs.WithComponent("realm")

	obs.Init()
	obs.InitBuildInfo(version, commit)

	burst, err := settings.GetInt("server.rate.burst", 10)
	if err != nil {
		return err
	}
	perSecond, err := settings.GetFloat("server.rate.per_second", 5)
	if err != nil {
		return err
	}

	trusted, err := httpapi.ParseTrustedProxies(settings.GetList("server.trusted_proxies"))
	if err != nil {
		return err
	}

	rt, err := openRuntime(ctx, settings)
	if err != nil {
		return err
	}
	defer rt.Close()

	probe := httpapi.ReadyProbe{DB: rt.persistence}
	api := httpapi.New(httpapi.Config{
		Version:        version,
		RateBurst:      burst,
		RatePerSecond:  perSecond,
		TrustedProxies: trusted,
	}, rt.verifier, rt.resolver, rt.audit, probe)

	addr := settings.Get("server.addr")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	reporter := httpapi.NewHealthReporter(probe)
	grpcSrv := httpapi.NewGRPCServer(reporter)
	grpcAddr := settings.Get("server.grpc_addr")
	if grpcAddr == "" {
		grpcAddr = ":9090"
	}
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go reporter.Run(healthCtx, healthEvery)

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", grpcAddr).Msg("grpc health listening")
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info().Str("addr", addr).Str("version", version).
			Strs("tenants", rt.persistence.Tenants()).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		stopHealth()
		grpcSrv.Stop()
		_ = srv.Close()
		return err
	}

	stopHealth()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()
	logger.Info().Msg("bye")
	return nil
}
