// Package main implements seqsink, the verifier side of the stream
// integrity harness. It subscribes to the vector sequence published by
// seqgen, checks continuity and homogeneity, and reports throughput,
// drops, and resets. When the drop threshold is exceeded it shuts
// down cleanly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/seqcheck/config"
	"github.com/c360/seqcheck/metric"
	"github.com/c360/seqcheck/natsclient"
	"github.com/c360/seqcheck/pkg/logging"
	"github.com/c360/seqcheck/verifier"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "seqsink"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := logging.New(appName, Version, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	slog.Info("Starting seqsink (sequence stream verifier)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"subject", cfg.Verifier.Subject,
		"vlen", cfg.Verifier.VLen,
		"hwm", cfg.Verifier.HWM,
		"max_err", cfg.Verifier.MaxErr)

	ctx := context.Background()

	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := buildNATSClient(&cfg, metricsRegistry, logger)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := connectToNATS(ctx, natsClient); err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(ctx) }()

	metricsServer := startMetricsServer(&cfg, metricsRegistry)
	if metricsServer != nil {
		defer func() { _ = metricsServer.Stop() }()
	}

	v, err := verifier.New(verifier.Deps{
		Name:            appName,
		Config:          cfg.Verifier,
		Messenger:       natsClient,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}
	if err := v.Initialize(); err != nil {
		return fmt.Errorf("initialize verifier: %w", err)
	}

	return runWithSignalHandling(ctx, v, cliCfg.ShutdownTimeout)
}

// runWithSignalHandling starts the verifier and blocks until either a
// shutdown signal arrives or the drop threshold trips. Both paths stop
// the verifier within the timeout and exit cleanly.
func runWithSignalHandling(ctx context.Context, v *verifier.Verifier, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := v.Start(signalCtx); err != nil {
		return fmt.Errorf("start verifier: %w", err)
	}
	slog.Info("seqsink started successfully")

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case <-v.Halted():
		slog.Info("Drop threshold exceeded, shutting down",
			"dropped", v.Dropped(),
			"expected", v.Expected())
	}

	if err := v.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("seqsink shutdown complete",
		"expected", v.Expected(),
		"dropped", v.Dropped(),
		"rate_per_sec", v.Rate())
	return nil
}

// buildNATSClient assembles the client from the shared NATS config section.
func buildNATSClient(
	cfg *config.Config,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(metricsRegistry),
		natsclient.WithLogger(slogAdapter{logger}),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.NATS.Name))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}

	return natsclient.NewClient(cfg.NATS.URL, opts...)
}

// connectToNATS establishes the connection and waits for it to be ready.
func connectToNATS(ctx context.Context, natsClient *natsclient.Client) error {
	slog.Info("Connecting to NATS", "url", natsClient.URL())
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}
	return nil
}

// startMetricsServer runs the metrics endpoint in the background when
// enabled. Returns nil when metrics are disabled.
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry) *metric.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err, "address", srv.Address())
		}
	}()
	slog.Info("Metrics server started", "address", srv.Address())
	return srv
}

// slogAdapter bridges the natsclient Logger interface onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Printf(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

func (a slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
