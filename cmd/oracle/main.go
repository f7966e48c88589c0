// Package main is the entry point for the carbon emissions oracle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/carbon-oracle/business/blockchain"
	"github.com/fd1az/carbon-oracle/business/oracle"
	oracleDI "github.com/fd1az/carbon-oracle/business/oracle/di"
	"github.com/fd1az/carbon-oracle/internal/apm"
	"github.com/fd1az/carbon-oracle/internal/config"
	"github.com/fd1az/carbon-oracle/internal/health"
	"github.com/fd1az/carbon-oracle/internal/logger"
	"github.com/fd1az/carbon-oracle/internal/metrics"
	"github.com/fd1az/carbon-oracle/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("carbon-oracle %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithFormat(os.Stderr,
		logger.ParseLevel(cfg.App.LogLevel),
		logger.Format(cfg.App.LogFormat),
		cfg.App.Name,
		nil,
	)
	log.Info(ctx, "starting carbon oracle",
		"version", version,
		"environment", cfg.App.Environment,
		"domains", cfg.Oracle.Domains,
	)

	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.shutdown(log)

	hh := health.New(version)

	mono, err := monolith.New(cfg, log, hh)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	if tel.prometheus {
		metrics.Register(mono.Mux())
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Provides the chain service
		&oracle.Module{},     // Depends on blockchain for submissions
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(mono.Mux(), "carbon-oracle"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	hh.SetReady(true)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Error(ctx, "http server failed", "error", serveErr)
	}

	log.Info(ctx, "shutting down")
	hh.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := oracleDI.GetScheduler(mono.Services()).Stop(shutdownCtx); err != nil {
		log.Error(ctx, "error stopping scheduler", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "error stopping http server", "error", err)
	}

	return serveErr
}

type telemetry struct {
	traces     apm.TraceProvider
	meters     metrics.MetricProvider
	prometheus bool
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*telemetry, error) {
	t := &telemetry{}
	if !cfg.Telemetry.Enabled {
		return t, nil
	}

	traces, err := apm.NewTraceProvider(log,
		apm.WithProvider(apm.ParseProvider(cfg.Telemetry.TraceProvider)),
		apm.WithServiceName(cfg.Telemetry.ServiceName),
		apm.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		apm.WithHeaders(cfg.Telemetry.OTLPHeaders),
	)
	if err != nil {
		return nil, err
	}
	t.traces = traces
	log.Info(ctx, "tracing initialized",
		"provider", cfg.Telemetry.TraceProvider,
		"endpoint", cfg.Telemetry.OTLPEndpoint,
	)

	opts := []metrics.OptionFn{metrics.WithServiceName(cfg.Telemetry.ServiceName)}
	if cfg.Telemetry.Prometheus {
		opts = append(opts, metrics.WithProviderConfig(metrics.ProviderCfg{
			Provider: metrics.PrometheusProvider,
		}))
	}
	if cfg.Telemetry.OTLPMetrics {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.OTLPHeaders,
			metrics.InsecureOtel,
		)))
	}
	// With no reader selected the provider falls back to Prometheus.
	t.prometheus = cfg.Telemetry.Prometheus || !cfg.Telemetry.OTLPMetrics

	meters, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		return nil, err
	}
	t.meters = meters
	log.Info(ctx, "metrics initialized", "prometheus", t.prometheus, "otlp", cfg.Telemetry.OTLPMetrics)

	return t, nil
}

func (t *telemetry) shutdown(log logger.LoggerInterface) {
	ctx := context.Background()
	if t.traces != nil {
		if err := t.traces.Stop(); err != nil {
			log.Error(ctx, "error stopping trace provider", "error", err)
		}
	}
	if t.meters != nil {
		if err := t.meters.Shutdown(ctx); err != nil {
			log.Error(ctx, "error stopping meter provider", "error", err)
		}
	}
}
