// Package main implements the statesync entry point: connect to a
// device's websocket state stream, absorb the initial snapshot burst,
// then forward genuine state changes to NATS until shutdown.
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

	"github.com/c360/statesync/config"
	"github.com/c360/statesync/initialsync"
	"github.com/c360/statesync/metric"
	"github.com/c360/statesync/natsclient"
	"github.com/c360/statesync/output/natsforward"
	"github.com/c360/statesync/session"
	"github.com/c360/statesync/storage/snapshotstore"
	"github.com/c360/statesync/transport/wsstream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "statesync"
)

func main() {
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
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	registry := metric.NewMetricsRegistry()

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() { _ = metricsServer.Stop(5 * time.Second) }()
	}

	downstream, snapshots, natsClient, err := setupNATS(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close() }()
	}

	stream, err := connectDevice(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close(cliCfg.ShutdownTimeout) }()

	sess, err := session.New(session.Deps{
		Stream:          stream,
		Downstream:      downstream,
		Logger:          logger,
		MetricsRegistry: registry,
		Snapshots:       snapshots,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	waitTimeout := cfg.Wait.Timeout.Std()
	if cliCfg.WaitTimeout > 0 {
		waitTimeout = cliCfg.WaitTimeout
	}

	slog.Info("Waiting for initial states", "timeout", waitTimeout)
	if err := sess.WaitForInitialStates(waitTimeout); err != nil {
		_ = sess.Stop(cliCfg.ShutdownTimeout)
		return fmt.Errorf("initial state sync: %w", err)
	}
	slog.Info("Initial states received",
		"entities", len(sess.InitialStates()),
		"inventory", sess.Inventory().Len())

	waitForShutdown()

	slog.Info("Shutting down", "timeout", cliCfg.ShutdownTimeout)
	if err := sess.Stop(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	return nil
}

// initializeCLI parses flags and sets up logging.
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting statesync",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// setupNATS connects the optional NATS output. With no configured URLs
// the session runs standalone: pass-through events are dropped and
// snapshots stay in memory.
func setupNATS(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
) (initialsync.Downstream, *snapshotstore.Store, *natsclient.Client, error) {
	if len(cfg.NATS.URLs) == 0 {
		slog.Info("No NATS servers configured, running standalone")
		return nil, nil, nil, nil
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URLs[0],
		natsclient.WithConnectTimeout(cfg.NATS.ConnectTimeout.Std()),
		natsclient.WithLogger(logger),
		natsclient.WithMetricsRegistry(registry),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := natsClient.Connect(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	forwarder, err := natsforward.NewForwarder(natsforward.ForwarderDeps{
		Config:    natsforward.Config{SubjectPrefix: cfg.NATS.SubjectPrefix},
		Publisher: natsClient,
		Logger:    logger,
	})
	if err != nil {
		_ = natsClient.Close()
		return nil, nil, nil, fmt.Errorf("create forwarder: %w", err)
	}

	var snapshots *snapshotstore.Store
	if cfg.NATS.SnapshotBucket != "-" {
		kv, err := snapshotstore.OpenBucket(ctx, natsClient.JetStream(), cfg.NATS.SnapshotBucket)
		if err != nil {
			_ = natsClient.Close()
			return nil, nil, nil, fmt.Errorf("open snapshot bucket: %w", err)
		}
		snapshots, err = snapshotstore.NewStore(snapshotstore.StoreDeps{KV: kv, Logger: logger})
		if err != nil {
			_ = natsClient.Close()
			return nil, nil, nil, fmt.Errorf("create snapshot store: %w", err)
		}
	}

	return forwarder.Forward, snapshots, natsClient, nil
}

// connectDevice dials the device's websocket state stream.
func connectDevice(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
) (*wsstream.Client, error) {
	stream, err := wsstream.NewClient(wsstream.ClientDeps{
		Config: wsstream.Config{
			URL:              cfg.Device.URL,
			HandshakeTimeout: cfg.Device.HandshakeTimeout.Std(),
			RequestTimeout:   cfg.Device.RequestTimeout.Std(),
		},
		Logger:          logger,
		MetricsRegistry: registry,
	})
	if err != nil {
		return nil, fmt.Errorf("create device client: %w", err)
	}

	slog.Info("Connecting to device", "url", cfg.Device.URL)
	if err := stream.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to device: %w", err)
	}
	return stream, nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("Received shutdown signal", "signal", s.String())
}
