package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/l3check/pkg/check"
	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/metrics"
	"github.com/cuemby/l3check/pkg/neutron"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run checks periodically and expose Prometheus metrics",
	Long: `Run a check on a fixed interval and serve the results:

  /metrics   Prometheus metrics
  /health    component health as JSON
  /ready     ready once the control plane has been reached`,
	RunE: runServe,
}

func init() {
	addDispatchFlags(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to serve metrics on")
	serveCmd.Flags().Duration("interval", 0, "Time between check runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyDispatchFlags(cmd, cfg)
	if cmd.Flags().Changed("listen") {
		cfg.Serve.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("interval") {
		cfg.Serve.Interval, _ = cmd.Flags().GetDuration("interval")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := neutron.NewClient(cfg.NeutronClientConfig())
	if err != nil {
		return err
	}
	d, release, err := newDispatcher(cfg)
	if err != nil {
		return err
	}
	defer release()

	metrics.SetVersion(Version)

	ctx, cancel := signalContext()
	defer cancel()

	loop := check.NewLoop(check.NewChecker(client, d), cfg.Serve.Interval)
	loop.Start(ctx)
	defer loop.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())

	server := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Logger.Info().
		Str("listen", cfg.Serve.Listen).
		Dur("interval", cfg.Serve.Interval).
		Msg("serving metrics")

	select {
	case <-ctx.Done():
		log.Logger.Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("metrics server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
