package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ExitCodeError carries a specific process exit code up to main so
// calling automation can distinguish pass, fail, cancelled, and
// configuration errors.
type ExitCodeError struct {
	Code int
	Err  error
}

// Error implements the error interface for ExitCodeError.
func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// NewRootCommand creates and returns the root cobra command for foreman
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foreman",
		Short: "Autonomous feature workflow orchestrator",
		Long: `Foreman drives a delegated Claude Code worker through an ordered
feature workflow: implement, test-fix loop, structural split loop,
and a post-pass quality gate.

Every loop has a hard iteration cap and a terminal passed/exhausted
classification. Foreman never pauses to ask how to proceed: failures
are retried within budget, then reported and the run moves on.`,
		Version: Version,
		// Errors are reported once by main with the mapped exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
