package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"dealflow/internal/config"
	"dealflow/internal/reconciler"
	"dealflow/pkg/logging"
)

// Application bootstraps and runs the reconciliation engine.
//
// Initialization is two-phase: NewApplication loads and validates the
// configuration and wires the service graph; Run (or RunOnce) then drives
// the reconciliation loop until the context is cancelled.
type Application struct {
	config     *Config
	runtimeCfg config.Config
	services   *Services
}

// NewApplication creates and initializes an application instance. It
// configures logging, loads the layered configuration from cfg.ConfigPath
// (or the default directory), validates it, and wires all services.
// Validation failures are fatal here; nothing has started yet and a partial
// engine would silently do the wrong thing against live CRM data.
func NewApplication(cfg *Config) (*Application, error) {
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	runtimeCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	initLogging(cfg, runtimeCfg)

	if errs := runtimeCfg.Validate(); errs.HasErrors() {
		logging.Error("Bootstrap", errs, "Configuration is invalid")
		return nil, fmt.Errorf("invalid configuration: %w", errs)
	}

	services, err := InitializeServices(runtimeCfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:     cfg,
		runtimeCfg: runtimeCfg,
		services:   services,
	}, nil
}

// RuntimeConfig returns the validated configuration in effect.
func (a *Application) RuntimeConfig() config.Config {
	return a.runtimeCfg
}

// Services returns the wired service graph.
func (a *Application) Services() *Services {
	return a.services
}

// Run executes the reconciliation loop until the context is cancelled.
// With watching enabled, configuration file changes are picked up at
// runtime; only the log level is applied live, structural changes take
// effect on restart.
func (a *Application) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.services.Scheduler.Run(ctx)
	})

	if a.config.Watch {
		configPath := a.config.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}
		watcher := config.NewWatcher(configPath, a.applyConfig)
		group.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunOnce executes exactly one reconciliation cycle and returns its report.
func (a *Application) RunOnce(ctx context.Context) (reconciler.CycleReport, error) {
	return a.services.Dispatcher.RunCycle(ctx)
}

// applyConfig applies a validated configuration snapshot delivered by the
// watcher.
func (a *Application) applyConfig(newCfg config.Config) {
	if newCfg.LogLevel != a.runtimeCfg.LogLevel {
		initLogging(a.config, newCfg)
		logging.Info("Bootstrap", "Log level changed to %s", newCfg.LogLevel)
	}
	if servicesConfigChanged(a.runtimeCfg, newCfg) {
		logging.Warn("Bootstrap", "Configuration changed; restart to apply changes beyond the log level")
	}
	a.runtimeCfg = newCfg
}

func initLogging(cfg *Config, runtimeCfg config.Config) {
	level := logging.ParseLevel(runtimeCfg.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	var output io.Writer = os.Stderr
	if cfg.Silent {
		output = io.Discard
	}
	logging.Init(level, output)
}

// servicesConfigChanged reports whether anything other than the log level
// differs between two snapshots.
func servicesConfigChanged(prev, next config.Config) bool {
	prev.LogLevel = ""
	next.LogLevel = ""
	return fmt.Sprintf("%+v", prev) != fmt.Sprintf("%+v", next)
}
