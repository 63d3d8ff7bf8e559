// Package config provides the process configuration.
//
// Configuration is assembled in layers: Default values first, then any number
// of JSON files added with Loader.AddLayer, then FINROC_* environment
// variables. Command-line flags are applied on top by the command.
//
//	loader := config.NewLoader()
//	loader.AddLayer("finroc.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Durations in files are written as strings ("40ms", "2s").
//
// Environment overrides: FINROC_LOG_LEVEL, FINROC_LOG_FORMAT, FINROC_PEER_NAME,
// FINROC_LISTEN_ADDRESS, FINROC_PORT, FINROC_CONNECT (comma separated),
// FINROC_NATS_TOKEN, FINROC_CYCLE_TIME and FINROC_MANIFESTS (comma separated).
//
// SafeConfig wraps a Config for concurrent readers; Get always returns a deep copy.
package config
