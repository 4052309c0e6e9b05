package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dealflow/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
// When empty the user config directory (~/.config/dealflow) is used.
var serveConfigPath string

// serveWatch enables hot-reloading of the configuration file.
var serveWatch bool

// serveCmd defines the serve command structure. This is the main command
// of dealflow: it runs the reconciliation loop until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation loop",
	Long: `Starts the reconciliation loop: every interval, dealflow pulls the next
batch from the CRM change feed and applies the deal-creation and
owner-reassignment rules to each changed contact and deal.

Configuration is read from config.yaml in the config directory, with
DEALFLOW_-prefixed environment variables taking precedence. The loop runs
until the process receives SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveConfigPath, serveDebug, false, serveWatch)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// isConfigError reports whether an error stems from configuration loading
// or validation, for exit code selection.
func isConfigError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid configuration") ||
		strings.Contains(msg, "failed to load configuration")
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload configuration when config.yaml changes")
}
