package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	WaitTimeout     time.Duration
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("STATESYNC_CONFIG", "configs/statesync.json"),
		"Path to configuration file (env: STATESYNC_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("STATESYNC_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: STATESYNC_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("STATESYNC_LOG_FORMAT", "json"),
		"Log format: json, text (env: STATESYNC_LOG_FORMAT)")

	flag.DurationVar(&cfg.WaitTimeout, "wait-timeout",
		getEnvDuration("STATESYNC_WAIT_TIMEOUT", 0),
		"Initial-state wait override, 0 uses the config value (env: STATESYNC_WAIT_TIMEOUT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("STATESYNC_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: STATESYNC_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help and exit")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}

	if cfg.WaitTimeout < 0 {
		return fmt.Errorf("wait timeout must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

func printHelp() {
	fmt.Printf("%s observes a device state stream, absorbs the initial snapshot burst,\n", appName)
	fmt.Printf("and forwards subsequent state changes.\n\n")
	fmt.Printf("Usage: %s [flags]\n\nFlags:\n", appName)
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
