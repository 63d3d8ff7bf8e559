// Package main implements the default main program for component based
// applications: it parses the common options, sets up logging and the
// runtime, creates the main group and runs until it is interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/finrocmirror/finroc-plugins-structure/app"
	"github.com/finrocmirror/finroc-plugins-structure/config"
	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/manifest"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "finroc-structure"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(app.CrashExitCode)
		}
	}()

	// Run application with proper error handling
	if err := run(os.Args[1:], os.Getenv, os.Stdout); err != nil {
		code := exitCode(err)
		slog.Error("Application failed", "error", err, "exit_code", code)
		os.Exit(code)
	}
}

// exitUsage is returned for invalid flags, configuration or manifests.
const exitUsage = 64

func exitCode(err error) int {
	if errors.IsInvalid(err) {
		return exitUsage
	}
	return 1
}

func run(args []string, getenv func(string) string, stdout io.Writer) error {
	cliCfg, err := parseFlags(args, getenv, os.Stderr)
	if err != nil {
		return errors.WrapInvalid(err, "main", "run", "parse flags")
	}
	if err := validateFlags(cliCfg); err != nil {
		return errors.WrapInvalid(err, "main", "run", "validate flags")
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return nil
	}
	if cliCfg.DumpManifest {
		return dumpManifest(stdout)
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	logger.Info("Starting "+appName,
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"peer", cfg.Peer.Name)
	logger.Debug("Effective configuration", "config", cfg.String())

	ctx := context.Background()
	rt, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}

	if err := registerBuiltins(rt.Registry()); err != nil {
		_ = rt.Shutdown()
		return fmt.Errorf("register built-in modules: %w", err)
	}

	if _, err := createMainGroup(rt.Dependencies(), rt.MainThread().Base()); err != nil {
		_ = rt.Shutdown()
		return fmt.Errorf("create main group: %w", err)
	}

	if err := rt.Run(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info(appName + " shutdown complete")
	return nil
}

// initializeConfiguration loads the config file and the logging config, then
// applies command line overrides and validates the result.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogConfigPath != "" {
		cfg.Logging, err = config.LoadLogging(cliCfg.LogConfigPath, cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("load log config: %w", err)
		}
	}

	cliCfg.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func dumpManifest(w io.Writer) error {
	m, err := builtinManifestFromTypes()
	if err != nil {
		return err
	}
	data, err := m.Marshal(manifest.FormatYAML)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
