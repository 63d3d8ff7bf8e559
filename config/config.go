package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	ferrors "github.com/finrocmirror/finroc-plugins-structure/errors"
)

// Default values used by Default and the loader
const (
	DefaultPeerName      = "finroc-structure"
	DefaultListenAddress = "0.0.0.0"
	DefaultPort          = 4444
	DefaultCycleTime     = 40 * time.Millisecond
	DefaultMetricsPath   = "/metrics"
)

// Config represents the complete application configuration
type Config struct {
	Version   string        `json:"version,omitempty"`
	Logging   LoggingConfig `json:"logging"`
	Peer      PeerConfig    `json:"peer"`
	Runtime   RuntimeConfig `json:"runtime"`
	Manifests []string      `json:"manifests,omitempty"` // Port name manifests loaded at startup
}

// LoggingConfig defines the process logger
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// PeerConfig defines how the process is reachable and which peers it talks to
type PeerConfig struct {
	Name            string        `json:"name"`
	ListenAddress   string        `json:"listen_address"`    // HTTP listen address for /metrics and /structure
	Port            int           `json:"port"`              // HTTP port, 0 disables the server
	Connect         []string      `json:"connect,omitempty"` // NATS URLs, empty disables structure events
	MaxReconnects   int           `json:"max_reconnects"`    // -1 reconnects forever
	ConnectAttempts int           `json:"connect_attempts"`  // Initial dial attempts before giving up
	ReconnectWait   time.Duration `json:"reconnect_wait"`    // Delay between reconnect attempts
	Token           string        `json:"token,omitempty"`   // NATS auth token
	LinksNotUnique  bool          `json:"links_not_unique"`  // Prefix port links with the host name
	Subject         string        `json:"subject,omitempty"` // Overrides structure.<name>.elements
}

// RuntimeConfig defines the main thread container and process behavior
type RuntimeConfig struct {
	CycleTime                     time.Duration `json:"cycle_time"`
	Pause                         bool          `json:"pause"`
	CrashHandler                  bool          `json:"crash_handler"`
	Profiling                     bool          `json:"profiling"`
	DisableComponentVisualization bool          `json:"disable_component_visualization"`
	ShutdownTimeout               time.Duration `json:"shutdown_timeout"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Peer: PeerConfig{
			Name:            DefaultPeerName,
			ListenAddress:   DefaultListenAddress,
			Port:            DefaultPort,
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
			ConnectAttempts: 3,
		},
		Runtime: RuntimeConfig{
			CycleTime:       DefaultCycleTime,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return ferrors.WrapInvalid(ferrors.ErrMissingConfig, "SafeConfig", "Update", "nil check")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Validate checks if the config is valid. The peer name is normalized to
// lower case because it becomes part of NATS subjects.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return ferrors.WrapInvalid(fmt.Errorf("%w: %w", ferrors.ErrInvalidConfig, err),
			"Config", "Validate", "validation")
	}
	return nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	if c.Peer.Name == "" {
		return errors.New("peer.name is required")
	}
	c.Peer.Name = strings.ToLower(c.Peer.Name)
	if !isValidNATSSubjectPart(c.Peer.Name) {
		return fmt.Errorf(
			"peer.name '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Peer.Name,
		)
	}
	if c.Peer.Port < 0 || c.Peer.Port > 65535 {
		return fmt.Errorf("peer.port %d out of range", c.Peer.Port)
	}
	if c.Peer.ConnectAttempts < 0 {
		return fmt.Errorf("peer.connect_attempts must not be negative, got %d", c.Peer.ConnectAttempts)
	}
	for i, url := range c.Peer.Connect {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("peer.connect[%d] is empty", i)
		}
	}

	if c.Runtime.CycleTime <= 0 {
		return fmt.Errorf("runtime.cycle_time must be positive, got %s", c.Runtime.CycleTime)
	}
	if c.Runtime.ShutdownTimeout < 0 {
		return fmt.Errorf("runtime.shutdown_timeout must not be negative, got %s", c.Runtime.ShutdownTimeout)
	}

	for i, path := range c.Manifests {
		if path == "" {
			return fmt.Errorf("manifests[%d] is empty", i)
		}
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// ListenAddr returns the HTTP listen address or "" if the server is disabled.
func (c *Config) ListenAddr() string {
	if c.Peer.Port == 0 {
		return ""
	}
	host := c.Peer.ListenAddress
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, c.Peer.Port)
}

// String returns a JSON representation of the config with the peer token redacted.
func (c *Config) String() string {
	redacted := c.Clone()
	if redacted.Peer.Token != "" {
		redacted.Peer.Token = "***"
	}
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(data)
}
