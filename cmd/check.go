package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"dealflow/internal/app"
	"dealflow/internal/config"
	"dealflow/internal/crm"
)

var checkConfigPath string

// checkCmd verifies a deployment without mutating anything: configuration,
// CRM connectivity, stage metadata and on-duty manager resolution.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and CRM connectivity",
	Long: `Runs read-only preflight checks and prints the results:

  config   - configuration loads and passes validation
  crm      - the CRM API is reachable with the configured credentials
  stages   - the pipeline has at least one active and one won stage
  on-duty  - the on-duty account manager resolves to a CRM user

No contact or deal is modified. The exit status is non-zero when any
check fails.`,
	Args: cobra.NoArgs,
	RunE: runCheckCmd,
}

type checkResult struct {
	Name    string
	OK      bool
	Details string
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	results := runChecks(ctx)
	renderChecks(cmd, results)

	for _, result := range results {
		if !result.OK {
			return fmt.Errorf("%d of %d checks failed", countFailed(results), len(results))
		}
	}
	return nil
}

func runChecks(ctx context.Context) []checkResult {
	configPath := checkConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return []checkResult{{Name: "config", Details: err.Error()}}
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return []checkResult{{Name: "config", Details: errs.Error()}}
	}
	results := []checkResult{{Name: "config", OK: true, Details: "configuration is valid"}}

	services, err := app.InitializeServices(cfg)
	if err != nil {
		return append(results, checkResult{Name: "crm", Details: err.Error()})
	}

	results = append(results, checkCRM(ctx, services))
	results = append(results, checkStages(ctx, services))
	results = append(results, checkOnDuty(ctx, services, cfg))
	return results
}

func checkCRM(ctx context.Context, services *app.Services) checkResult {
	users, err := services.Gateway.ListUsers(ctx, crm.UserFilter{})
	if err != nil {
		return checkResult{Name: "crm", Details: err.Error()}
	}
	return checkResult{Name: "crm", OK: true, Details: fmt.Sprintf("reachable, %d users visible", len(users))}
}

func checkStages(ctx context.Context, services *app.Services) checkResult {
	if err := services.StageIndex.Refresh(ctx); err != nil {
		return checkResult{Name: "stages", Details: err.Error()}
	}
	stages, err := services.Gateway.ListStages(ctx, crm.StageFilter{})
	if err != nil {
		return checkResult{Name: "stages", Details: err.Error()}
	}
	var active, won int
	for _, stage := range stages {
		if stage.Active {
			active++
		}
		if stage.Category == crm.StageCategoryWon {
			won++
		}
	}
	if active == 0 || won == 0 {
		return checkResult{
			Name:    "stages",
			Details: fmt.Sprintf("pipeline needs active and won stages, found %d active, %d won", active, won),
		}
	}
	return checkResult{
		Name:    "stages",
		OK:      true,
		Details: fmt.Sprintf("%d stages, %d active, %d won", len(stages), active, won),
	}
}

func checkOnDuty(ctx context.Context, services *app.Services, cfg config.Config) checkResult {
	user, err := services.Resolver.ResolveOnDuty(ctx, cfg.OnDuty.Identity())
	if err != nil {
		return checkResult{Name: "on-duty", Details: err.Error()}
	}
	return checkResult{
		Name:    "on-duty",
		OK:      true,
		Details: fmt.Sprintf("resolved to %s (%s)", user.Name, user.Email),
	}
}

func renderChecks(cmd *cobra.Command, results []checkResult) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Check", "Status", "Details"})
	for _, result := range results {
		status := text.FgGreen.Sprint("OK")
		if !result.OK {
			status = text.FgRed.Sprint("FAILED")
		}
		t.AppendRow(table.Row{result.Name, status, result.Details})
	}
	t.Render()
}

func countFailed(results []checkResult) int {
	var failed int
	for _, result := range results {
		if !result.OK {
			failed++
		}
	}
	return failed
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkConfigPath, "config-path", "", "Custom configuration directory path")
}
