// Package config loads and validates the dealflow configuration.
//
// Configuration is layered: built-in defaults, then config.yaml from the
// config directory, then DEALFLOW_-prefixed environment variables. The
// environment layer exists so secrets (the CRM access token in particular)
// never have to live in a file.
//
// Validate collects every violation at once rather than failing fast. A
// Watcher can reload the file at runtime; only snapshots that pass
// validation are delivered.
package config
