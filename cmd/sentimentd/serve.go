package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jihwankim/sentimentd/pkg/balancer"
	"github.com/jihwankim/sentimentd/pkg/config"
	"github.com/jihwankim/sentimentd/pkg/evaluator"
	"github.com/jihwankim/sentimentd/pkg/logging"
	"github.com/jihwankim/sentimentd/pkg/metrics"
	"github.com/jihwankim/sentimentd/pkg/scoring"
	"github.com/jihwankim/sentimentd/pkg/transport"
)

// shutdownGrace bounds the drain period before a forced close (spec.md §5,
// "Cancellation": "drains with a bounded grace period (≈10 s)").
const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Config{
		LoadBalancer: serveFlags.loadBalancer,
		Address:      serveFlags.address,
		Token:        serveFlags.token,
		TLS: config.TLSPair{
			PrivateKeyPath:       serveFlags.privateKey,
			CertificateChainPath: serveFlags.certificateChain,
		},
		SecureSubnodes: serveFlags.secureSubnodes,
		Subnodes:       args,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Format: logging.FormatConsole, Output: os.Stderr})

	tlsConfig, err := transport.LoadServerTLS(cfg.TLS.CertificateChainPath, cfg.TLS.PrivateKeyPath)
	if err != nil {
		return err
	}

	var server *transport.Server
	var closeFn func()

	if cfg.LoadBalancer {
		var subnodeTLS *tls.Config
		if cfg.SecureSubnodes {
			subnodeTLS = &tls.Config{}
		}
		b := balancer.New(cfg.Subnodes, subnodeTLS, logger)
		b.SetMetrics(metrics.NewWorkerMetrics(prometheus.DefaultRegisterer))
		server = transport.NewServer(cfg.Address, tlsConfig, b)
		closeFn = b.Close
		logger.Info("starting load balancer", "address", cfg.Address, "workers", len(cfg.Subnodes))
	} else {
		// The GPU-resident model is out of scope (spec.md §1): it is wired in
		// by whichever build carries the real scoring.Evaluator.
		n := evaluator.New(scoring.FixedEvaluator{}, scoring.HostMemoryReporter{}, logger)
		n.SetMetrics(metrics.NewEvaluatorMetrics(prometheus.DefaultRegisterer))
		server = transport.NewServer(cfg.Address, tlsConfig, n)
		closeFn = func() {}
		logger.Info("starting evaluator node", "address", cfg.Address, "id", n.ID())
	}
	server.Handle("/metrics", metrics.Handler())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("shutdown did not complete cleanly", "error", err)
	}
	closeFn()
	return nil
}
