package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/foreman/internal/config"
	"github.com/harrison/foreman/internal/history"
	"github.com/harrison/foreman/internal/report"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded in the history database. History is disabled unless
history.path is set in .foreman/config.yaml.

Examples:
  foreman history
  foreman history --spec feature.md --limit 5
  foreman history --run <run-id>    # Show per-phase detail for one run`,
		RunE: historyCommand,
	}

	cmd.Flags().String("workspace", ".", "Workspace whose history database to read")
	cmd.Flags().String("spec", "", "Only show runs for this spec file")
	cmd.Flags().String("run", "", "Show phase detail for a single run ID")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

// historyCommand implements the history command logic
func historyCommand(cmd *cobra.Command, args []string) error {
	workspace, _ := cmd.Flags().GetString("workspace")

	cfg, err := config.LoadConfigFromDir(workspace)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	if cfg.History.Path == "" {
		return &ExitCodeError{Code: report.ExitConfig,
			Err: fmt.Errorf("history is not enabled: set history.path in .foreman/config.yaml")}
	}

	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		return showRun(ctx, store, runID, out)
	}

	specFile, _ := cmd.Flags().GetString("spec")
	limit, _ := cmd.Flags().GetInt("limit")

	runs, err := store.ListRuns(ctx, specFile, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-9s  %-19s  %-8s  %s\n", "RUN", "STATUS", "STARTED", "DURATION", "SPEC")
	for _, run := range runs {
		fmt.Fprintf(out, "%-36s  %-9s  %-19s  %-8s  %s\n",
			run.RunID,
			run.OverallStatus,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			(time.Duration(run.DurationSecs) * time.Second).String(),
			run.SpecFile)
	}
	return nil
}

// showRun prints per-phase detail for a single recorded run.
func showRun(ctx context.Context, store *history.Store, runID string, out io.Writer) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	phases, err := store.GetPhases(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run:      %s\n", run.RunID)
	fmt.Fprintf(out, "Spec:     %s\n", run.SpecFile)
	fmt.Fprintf(out, "Status:   %s\n", run.OverallStatus)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", (time.Duration(run.DurationSecs) * time.Second).String())
	fmt.Fprintf(out, "Phases:\n")
	for _, phase := range phases {
		status := phase.Status
		if !phase.Executed {
			status = "not executed"
		}
		fmt.Fprintf(out, "  %d. %-20s %-12s %d/%d iteration(s)\n",
			phase.Position+1, phase.Name, status, phase.Iterations, phase.MaxIterations)
		if phase.LastFailure != "" {
			fmt.Fprintf(out, "     last failure: %s\n", phase.LastFailure)
		}
	}
	if len(run.OpenIssues) > 0 {
		fmt.Fprintf(out, "Open issues:\n  %s\n", strings.Join(run.OpenIssues, "\n  "))
	}
	return nil
}
