// Package app bootstraps the reconciliation engine: it loads and validates
// configuration, wires the CRM gateway, classifiers, rules and dispatcher,
// and runs the scheduler (optionally alongside a config file watcher).
package app
