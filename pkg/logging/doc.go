// Package logging provides a structured logging system for dealflow built on
// Go's standard slog package.
//
// All log entries carry a subsystem identifier for categorization, a message
// with optional printf-style formatting, and optional error information:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("ConfigLoader", "Loaded configuration from %s", configPath)
//	logging.Error("Dispatcher", err, "Cannot process contact (id=%d)", id)
//
// Subsystems in use: Bootstrap, ConfigLoader, ConfigWatcher, CRMClient,
// Dispatcher, ContactRule, DealRule, Directory, Scheduler.
//
// Level filtering happens at the handler, so filtered-out messages cost no
// allocation beyond the call itself.
package logging
