package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates the configuration failed validation.
	ExitCodeConfigInvalid = 2
)

// rootCmd represents the base command for the dealflow application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dealflow",
	Short: "Keep CRM deals and contact ownership in sync",
	Long: `dealflow watches a CRM change feed and applies two rules on every
change: organization contacts owned by a sales representative get a deal
created for them when they have none in progress, and contacts whose deal
was just won are handed over to the on-duty account manager.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dealflow version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if isConfigError(err) {
		return ExitCodeConfigInvalid
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
