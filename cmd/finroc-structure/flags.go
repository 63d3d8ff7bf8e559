package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/finrocmirror/finroc-plugins-structure/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath    string
	LogConfigPath string
	LogLevel      string
	LogFormat     string

	ListenAddress  string
	Port           int
	Connect        string
	CrashHandler   string
	CycleTime      time.Duration
	Pause          bool
	LinksNotUnique bool
	Profiling      bool
	NoVisualize    bool

	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
	DumpManifest bool

	// set holds the names of flags given on the command line
	set map[string]bool
}

func parseFlags(args []string, getenv func(string) string, output io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)

	env := func(key, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return defaultValue
	}

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config-file", env("FINROC_CONFIG_FILE", ""),
		"Config file (env: FINROC_CONFIG_FILE)")
	fs.StringVar(&cfg.ConfigPath, "c", env("FINROC_CONFIG_FILE", ""),
		"Config file (env: FINROC_CONFIG_FILE)")
	fs.StringVar(&cfg.LogConfigPath, "log-config", env("FINROC_LOG_CONFIG", ""),
		"Log config file (env: FINROC_LOG_CONFIG)")
	fs.StringVar(&cfg.LogConfigPath, "l", env("FINROC_LOG_CONFIG", ""),
		"Log config file (env: FINROC_LOG_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format: json, text")

	fs.StringVar(&cfg.ListenAddress, "listen-address", config.DefaultListenAddress,
		"Address on which to listen for connections, set this to :: to enable IPv6")
	fs.IntVar(&cfg.Port, "port", config.DefaultPort, "Network port to use, 0 to disable")
	fs.IntVar(&cfg.Port, "p", config.DefaultPort, "Network port to use, 0 to disable")
	fs.StringVar(&cfg.Connect, "connect", "",
		"Comma separated NATS URLs of the peer network to connect to")
	fs.StringVar(&cfg.CrashHandler, "crash-handler", env("FINROC_CRASH_HANDLER", ""),
		"Enable/disable crash handler: on, off (default: config file) (env: FINROC_CRASH_HANDLER)")
	fs.DurationVar(&cfg.CycleTime, "cycle-time", config.DefaultCycleTime,
		"Cycle time of the main thread container")
	fs.BoolVar(&cfg.Pause, "pause", getEnvBool(getenv, "FINROC_PAUSE", false),
		"Pause program at startup (env: FINROC_PAUSE)")
	fs.BoolVar(&cfg.LinksNotUnique, "port-links-are-not-unique", false,
		"Port links in this part are not unique in the peer network (host name is added to structure events)")
	fs.BoolVar(&cfg.Profiling, "profiling", getEnvBool(getenv, "FINROC_PROFILING", false),
		"Enables profiling endpoints below /debug/pprof/ (env: FINROC_PROFILING)")
	fs.BoolVar(&cfg.NoVisualize, "disable-component-visualization", false,
		"Disables component visualization (no structure events are published)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.DumpManifest, "dump-manifest", false, "Print the port name manifest of the built-in modules and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, output)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ShowHelp {
		fs.Usage()
	}

	cfg.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		cfg.set[f.Name] = true
	})
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	switch cfg.CrashHandler {
	case "", "on", "off":
	default:
		return fmt.Errorf("option --crash-handler needs be either 'on' or 'off' (not '%s')", cfg.CrashHandler)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port '%d'", cfg.Port)
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("could not find specified config file %s", cfg.ConfigPath)
		}
	}
	if cfg.LogConfigPath != "" {
		if _, err := os.Stat(cfg.LogConfigPath); err != nil {
			return fmt.Errorf("could not find specified log config file %s", cfg.LogConfigPath)
		}
	}
	return nil
}

// isSet reports whether any of the given flag names was on the command line
func (c *CLIConfig) isSet(names ...string) bool {
	for _, name := range names {
		if c.set[name] {
			return true
		}
	}
	return false
}

// apply overrides file and environment values with flags given on the command line
func (c *CLIConfig) apply(cfg *config.Config) {
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = c.LogFormat
	}
	if c.isSet("listen-address") {
		cfg.Peer.ListenAddress = c.ListenAddress
	}
	if c.isSet("port", "p") {
		cfg.Peer.Port = c.Port
	}
	if c.isSet("connect") {
		cfg.Peer.Connect = splitList(c.Connect)
	}
	if c.CrashHandler != "" {
		cfg.Runtime.CrashHandler = c.CrashHandler == "on"
	}
	if c.isSet("cycle-time") {
		cfg.Runtime.CycleTime = c.CycleTime
	}
	if c.Pause {
		cfg.Runtime.Pause = true
	}
	if c.LinksNotUnique {
		cfg.Peer.LinksNotUnique = true
	}
	if c.Profiling {
		cfg.Runtime.Profiling = true
	}
	if c.NoVisualize {
		cfg.Runtime.DisableComponentVisualization = true
	}
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - Finroc structure runtime

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Run with a config file and a port name manifest
  %s --config-file=/etc/finroc/structure.json

  # Connect to the peer network and start paused
  %s --connect=nats://localhost:4222 --pause

  # Run with environment variables
  export FINROC_CONFIG_FILE=/etc/finroc/structure.json
  export FINROC_LOG_LEVEL=debug
  %s

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
