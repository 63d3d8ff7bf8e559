package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	ferrors "github.com/finrocmirror/finroc-plugins-structure/errors"
)

// EnvPrefix is the prefix of environment variables that override file values
const EnvPrefix = "FINROC"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: EnvPrefix,
		getenv:    os.Getenv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load starts from Default, merges all layers and applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, ferrors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, ferrors.WrapInvalid(err, "Loader", "Load", "merge "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadLogging reads a logging configuration file and returns base with the
// file's values applied. It backs the --log-config option.
func LoadLogging(path string, base LoggingConfig) (LoggingConfig, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return base, ferrors.WrapInvalid(err, "Config", "LoadLogging", "read "+path)
	}
	result := base
	if err := json.Unmarshal(data, &result); err != nil {
		return base, ferrors.WrapInvalid(fmt.Errorf("%w: %w", ferrors.ErrParsingFailed, err),
			"Config", "LoadLogging", "decode "+path)
	}
	return result, nil
}

func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ferrors.ErrConfigNotFound, path)
		}
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ferrors.ErrParsingFailed, err)
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, fmt.Errorf("%w: %w", ferrors.ErrParsingFailed, err)
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// durationFields lists the "section.key" paths that accept duration strings such as "40ms"
var durationFields = [][2]string{
	{"runtime", "cycle_time"},
	{"runtime", "shutdown_timeout"},
	{"peer", "reconnect_wait"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) error {
	for _, field := range durationFields {
		section, ok := data[field[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[field[1]].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", field[0], field[1], err)
		}
		section[field[1]] = d.Nanoseconds()
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(name string) (string, error) {
		key := l.envPrefix + "_" + name
		val := l.getenv(key)
		return val, validateEnvVar(key, val)
	}
	wrap := func(err error) error {
		return ferrors.WrapInvalid(fmt.Errorf("%w: %w", ferrors.ErrInvalidConfig, err),
			"Loader", "applyEnvOverrides", "environment")
	}

	if val, err := env("LOG_LEVEL"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Logging.Level = val
	}
	if val, err := env("LOG_FORMAT"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Logging.Format = val
	}
	if val, err := env("PEER_NAME"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Peer.Name = val
	}
	if val, err := env("LISTEN_ADDRESS"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Peer.ListenAddress = val
	}
	if val, err := env("PORT"); err != nil {
		return wrap(err)
	} else if val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return wrap(fmt.Errorf("%s_PORT: %w", l.envPrefix, err))
		}
		cfg.Peer.Port = port
	}
	if val, err := env("CONNECT"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Peer.Connect = splitList(val)
	}
	if val, err := env("NATS_TOKEN"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Peer.Token = val
	}
	if val, err := env("CYCLE_TIME"); err != nil {
		return wrap(err)
	} else if val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return wrap(fmt.Errorf("%s_CYCLE_TIME: %w", l.envPrefix, err))
		}
		cfg.Runtime.CycleTime = d
	}
	if val, err := env("MANIFESTS"); err != nil {
		return wrap(err)
	} else if val != "" {
		cfg.Manifests = splitList(val)
	}
	return nil
}

// splitList splits a comma separated list and drops empty elements
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
