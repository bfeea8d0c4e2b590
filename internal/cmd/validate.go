package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/foreman/internal/config"
	"github.com/harrison/foreman/internal/models"
	"github.com/harrison/foreman/internal/parser"
	"github.com/harrison/foreman/internal/report"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <feature-spec.md>",
		Short: "Validate a feature spec and workspace config without running",
		Long: `Parse a feature spec file and the workspace configuration, check both
for errors, and print the resolved phase plan. Nothing is executed.

Examples:
  foreman validate feature.md
  foreman validate --workspace ./service feature.md`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommand,
	}

	cmd.Flags().String("workspace", ".", "Workspace whose config to validate against")

	return cmd
}

// validateCommand implements the validate command logic
func validateCommand(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	workspace, _ := cmd.Flags().GetString("workspace")

	cfg, err := config.LoadConfigFromDir(workspace)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}

	spec, err := parser.NewSpecParser().ParseFile(specPath)
	if err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}
	if err := spec.Validate(); err != nil {
		return &ExitCodeError{Code: report.ExitConfig, Err: err}
	}

	phaseSpecs := cfg.Phases
	source := "config"
	if len(spec.Phases) > 0 {
		phaseSpecs = spec.Phases
		source = "spec frontmatter"
	}
	if len(phaseSpecs) == 0 {
		phaseSpecs = standardPhases(cfg)
		source = "defaults"
	}
	for _, ps := range phaseSpecs {
		if err := ps.Validate(); err != nil {
			return &ExitCodeError{Code: report.ExitConfig, Err: err}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Spec:  %s\n", spec.Title)
	fmt.Fprintf(out, "Phases (%s):\n", source)
	for i, ps := range phaseSpecs {
		detail := ps.Kind
		if ps.Kind == models.KindRetryLoop {
			detail = fmt.Sprintf("%s, budget %d", ps.Kind, ps.MaxIterations)
		}
		if ps.HardBlocking {
			detail += ", hard-blocking"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, ps.Name, detail)
	}
	fmt.Fprintf(out, "OK\n")
	return nil
}
