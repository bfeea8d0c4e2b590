package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/foreman/internal/agent"
	"github.com/harrison/foreman/internal/config"
	"github.com/harrison/foreman/internal/executor"
	"github.com/harrison/foreman/internal/filelock"
	"github.com/harrison/foreman/internal/history"
	"github.com/harrison/foreman/internal/logger"
	"github.com/harrison/foreman/internal/models"
	"github.com/harrison/foreman/internal/parser"
	"github.com/harrison/foreman/internal/report"
)

// Standard phase names. Known names get specialized task factories;
// any other name in a phase override gets a generic single-purpose task.
const (
	PhaseImplement = "implement"
	PhaseTest      = "test"
	PhaseSplit     = "split"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <feature-spec.md>",
		Short: "Execute the feature workflow for a spec file",
		Long: `Execute the autonomous feature workflow described by a feature spec file.

The run proceeds through ordered phases: implement (single shot),
test (bounded fix-retry loop, followed by the quality gate on success),
and split (bounded structural size loop). Phase configuration can be
overridden in .foreman/config.yaml or in the spec file's frontmatter.

Exit codes: 0 pass, 1 fail, 2 configuration error, 130 cancelled.

Examples:
  foreman run feature.md
  foreman run --workspace ./service feature.md
  foreman run --timeout 30m --max-fix-retries 3 feature.md
  foreman run --dry-run feature.md     # Validate and show phases only`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: <workspace>/.foreman/config.yaml)")
	cmd.Flags().String("workspace", ".", "Target workspace the worker operates on")
	cmd.Flags().String("timeout", "", "Bounded wait per work unit (e.g., 10m, 1h)")
	cmd.Flags().String("log-level", "", "Log verbosity (debug, info, warn, error)")
	cmd.Flags().Int("max-fix-retries", -1, "Iteration cap for the test fix loop (-1 = use config)")
	cmd.Flags().Int("max-split-passes", -1, "Iteration cap for the structural split loop (-1 = use config)")
	cmd.Flags().Bool("dry-run", false, "Validate the spec and config without executing")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	workspace, _ := cmd.Flags().GetString("workspace")

	cfg, err := loadRunConfig(cmd, workspace)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}

	spec, err := parser.NewSpecParser().ParseFile(specPath)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	if err := spec.Validate(); err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}

	// Frontmatter phases take precedence over config phases.
	phaseSpecs := cfg.Phases
	if len(spec.Phases) > 0 {
		phaseSpecs = spec.Phases
	}
	if len(phaseSpecs) == 0 {
		phaseSpecs = standardPhases(cfg)
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Spec: %s (%s)\n", specPath, spec.Title)
		fmt.Fprintf(cmd.OutOrStdout(), "Phases:\n")
		for _, ps := range phaseSpecs {
			if err := ps.Validate(); err != nil {
				return &ExitCodeError{Code: report.ExitConfig, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%s", ps.Name, ps.Kind)
			if ps.Kind == models.KindRetryLoop {
				fmt.Fprintf(cmd.OutOrStdout(), ", budget %d", ps.MaxIterations)
			}
			if ps.HardBlocking {
				fmt.Fprintf(cmd.OutOrStdout(), ", hard-blocking")
			}
			fmt.Fprintf(cmd.OutOrStdout(), ")\n")
		}
		return nil
	}

	// One run per workspace: the worker mutates it in place.
	lock, err := filelock.NewRunLock(workspace)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	if err := lock.Acquire(); err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	defer lock.Release()

	runner := agent.NewRunner(cfg.Timeout)
	if inv, ok := runner.Invoker.(*agent.Invoker); ok && cfg.ClaudePath != "" {
		inv.ClaudePath = cfg.ClaudePath
	}

	consoleLogger := logger.NewConsoleLogger(os.Stdout, cfg.LogLevel)
	gate := executor.NewQualityGate(runner, gateChecks(cfg))

	bindings := buildBindings(phaseSpecs, spec, runner, cfg, workspace)

	seq := executor.NewSequencer(runner, gate, consoleLogger, specPath, workspace)
	seq.HandleSignals = true

	result, err := seq.Execute(context.Background(), bindings)
	if err != nil {
		if executor.IsConfigError(err) {
			return &ExitCodeError{Code: report.ExitConfig, Err: err}
		}
		return &ExitCodeError{Code: report.ExitFail, Err: err}
	}

	if path, err := report.WriteSummaryFile(workspace, result); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write run summary: %v\n", err)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Run summary written to %s\n", path)
	}

	if cfg.History.Path != "" {
		if err := recordHistory(cfg.History.Path, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run history: %v\n", err)
		}
	}

	if code := report.ExitCode(result); code != report.ExitPass {
		return &ExitCodeError{Code: code, Err: fmt.Errorf("run %s finished with status %s", result.RunID, result.OverallStatus)}
	}
	return nil
}

// loadRunConfig loads the workspace config and merges CLI flags.
func loadRunConfig(cmd *cobra.Command, workspace string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(workspace)
	}
	if err != nil {
		return nil, err
	}

	var timeout *time.Duration
	if raw, _ := cmd.Flags().GetString("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		timeout = &parsed
	}

	var logLevel *string
	if raw, _ := cmd.Flags().GetString("log-level"); raw != "" {
		logLevel = &raw
	}

	var maxFix *int
	if v, _ := cmd.Flags().GetInt("max-fix-retries"); v >= 0 {
		maxFix = &v
	}
	var maxSplit *int
	if v, _ := cmd.Flags().GetInt("max-split-passes"); v >= 0 {
		maxSplit = &v
	}

	cfg.MergeWithFlags(timeout, logLevel, maxFix, maxSplit)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// gateChecks returns the quality gate sequence with any per-check agent
// overrides from config applied.
func gateChecks(cfg *config.Config) []executor.GateCheck {
	checks := executor.DefaultGateChecks()
	for i := range checks {
		if agentName, ok := cfg.GateAgents[checks[i].Name]; ok && agentName != "" {
			checks[i].Agent = agentName
		}
	}
	return checks
}

// standardPhases returns the default workflow when neither config nor
// frontmatter overrides the phase list.
func standardPhases(cfg *config.Config) []models.PhaseSpec {
	return []models.PhaseSpec{
		{Name: PhaseImplement, Kind: models.KindSingleShot, HardBlocking: true},
		{Name: PhaseTest, Kind: models.KindRetryLoop, MaxIterations: cfg.MaxFixRetries, HardBlocking: cfg.TestHardBlocking},
		{Name: PhaseSplit, Kind: models.KindRetryLoop, MaxIterations: cfg.MaxSplitPasses},
	}
}

// buildBindings pairs each phase spec with its task factory.
func buildBindings(specs []models.PhaseSpec, feature *parser.FeatureSpec, worker executor.Worker, cfg *config.Config, workspace string) []executor.PhaseBinding {
	bindings := make([]executor.PhaseBinding, 0, len(specs))

	for _, ps := range specs {
		binding := executor.PhaseBinding{Spec: ps}

		switch ps.Name {
		case PhaseImplement:
			task := models.Task{
				ID:          ps.Name,
				Name:        feature.Title,
				Description: fmt.Sprintf("Implement the following feature:\n\n%s", feature.Description),
				Workspace:   workspace,
			}
			binding.Factory = func(prev *models.Outcome) models.Task { return task }
		case PhaseTest:
			task := models.Task{
				ID:          ps.Name,
				Name:        fmt.Sprintf("Test: %s", feature.Title),
				Description: fmt.Sprintf("Run the full test suite for this feature and make it pass:\n\n%s", feature.Description),
				Workspace:   workspace,
			}
			binding.Factory = executor.NewFixRetryFactory(task)
			binding.RunGate = true
		case PhaseSplit:
			task := models.Task{
				ID:        ps.Name,
				Name:      fmt.Sprintf("Split: %s", feature.Title),
				Workspace: workspace,
			}
			binding.Factory = executor.NewSplitFactory(task, cfg.SizeThreshold)
			measurer := executor.NewMeasurer(cfg.SizeThreshold, cfg.SizeExtensions)
			binding.Worker = executor.NewStructuralWorker(worker, measurer, workspace)
		default:
			name := ps.Name
			task := models.Task{
				ID:          name,
				Name:        fmt.Sprintf("%s: %s", name, feature.Title),
				Description: fmt.Sprintf("Perform the %s phase for this feature:\n\n%s", name, feature.Description),
				Workspace:   workspace,
			}
			binding.Factory = executor.NewFixRetryFactory(task)
		}

		bindings = append(bindings, binding)
	}

	return bindings
}

// recordHistory stores the finished run in the history database.
func recordHistory(dbPath string, result *models.RunReport) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(context.Background(), result)
}
