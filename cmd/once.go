package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dealflow/internal/app"
	"dealflow/internal/reconciler"
)

var (
	onceDebug      bool
	onceConfigPath string
	onceVerbose    bool
)

// onceCmd runs a single reconciliation cycle and exits. Useful for cron
// setups and for trying out a configuration before running serve.
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single reconciliation cycle and exit",
	Long: `Pulls one batch from the CRM change feed, applies the rules to every
changed contact and deal, prints a summary and exits. The exit status is
non-zero when any entity failed to process.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(onceConfigPath, onceDebug, !onceDebug, false)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " Running reconciliation cycle..."
	s.Start()
	report, err := application.RunOnce(ctx)
	s.Stop()
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	printCycleReport(cmd, report)

	if _, failed, _ := report.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d entities failed to process", failed, len(report.Outcomes))
	}
	return nil
}

func printCycleReport(cmd *cobra.Command, report reconciler.CycleReport) {
	succeeded, failed, skipped := report.Counts()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %s finished in %s\n",
		report.CycleID, report.Finished.Sub(report.Started).Round(time.Millisecond))
	fmt.Fprintf(out, "Events: %d total, %d succeeded, %d failed, %d skipped\n",
		len(report.Outcomes), succeeded, failed, skipped)
	if report.NextCursor != report.StartCursor {
		fmt.Fprintf(out, "Cursor advanced to %s\n", report.NextCursor)
	}

	if len(report.Outcomes) == 0 || (!onceVerbose && failed == 0) {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Entity", "Event", "ID", "Status", "Error"})
	for _, outcome := range report.Outcomes {
		if !onceVerbose && outcome.Status != reconciler.StatusFailed {
			continue
		}
		t.AppendRow(table.Row{
			outcome.EntityType, outcome.EventType, outcome.EntityID, outcome.Status, outcome.Error,
		})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().BoolVar(&onceDebug, "debug", false, "Enable debug logging")
	onceCmd.Flags().StringVar(&onceConfigPath, "config-path", "", "Custom configuration directory path")
	onceCmd.Flags().BoolVarP(&onceVerbose, "verbose", "v", false, "List every processed entity, not just failures")
}
