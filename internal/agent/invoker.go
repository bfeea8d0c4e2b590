// Package agent invokes the delegated worker CLI that performs the actual
// planning, code editing, and review work. The orchestrator treats the
// worker as opaque: it hands over a task description and receives an
// outcome, nothing more.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/harrison/foreman/internal/models"
)

// Invoker manages execution of claude CLI commands
type Invoker struct {
	ClaudePath string
}

// InvocationResult captures the result of invoking the claude CLI
type InvocationResult struct {
	Output   string
	ExitCode int
	Duration time.Duration
	Error    error
}

// WorkerResponse represents the JSON output structure from the worker CLI
type WorkerResponse struct {
	Status      string `json:"status"`      // "success" or "failed"
	Artifact    string `json:"artifact"`    // Reference to the produced artifact
	Content     string `json:"content"`     // Worker output text
	Diagnostics string `json:"diagnostics"` // Failure detail when status is "failed"
	Error       string `json:"error"`       // Worker-level error message
}

// NewInvoker creates a new Invoker with default settings
func NewInvoker() *Invoker {
	return &Invoker{
		ClaudePath: "claude",
	}
}

// BuildCommandArgs constructs the command-line arguments for invoking claude CLI
func (inv *Invoker) BuildCommandArgs(task models.Task) []string {
	args := []string{}

	// Build prompt with agent reference if specified
	prompt := task.Description
	if task.Agent != "" {
		prompt = fmt.Sprintf("use the %s subagent to: %s", task.Agent, task.Description)
	}

	// Add -p flag for non-interactive print mode (essential for automation)
	args = append(args, "-p", prompt)

	// Skip permissions for automation (allow file creation)
	args = append(args, "--dangerously-skip-permissions")

	// Disable hooks for automation
	args = append(args, "--settings", `{"disableAllHooks": true}`)

	// JSON output for easier parsing
	args = append(args, "--output-format", "json")

	return args
}

// Invoke executes the claude CLI command with the given context.
// The command runs with the task workspace as its working directory so
// the worker mutates only the target context.
func (inv *Invoker) Invoke(ctx context.Context, task models.Task) (*InvocationResult, error) {
	startTime := time.Now()

	args := inv.BuildCommandArgs(task)

	// Create command with context (for timeout)
	cmd := exec.CommandContext(ctx, inv.ClaudePath, args...)
	if task.Workspace != "" {
		cmd.Dir = task.Workspace
	}

	output, err := cmd.CombinedOutput()

	result := &InvocationResult{
		Output:   string(output),
		Duration: time.Since(startTime),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Error = err
		}
	}

	return result, nil
}

// ParseWorkerOutput parses the JSON output from the worker CLI.
// If the output is not valid JSON, it returns the raw output as content
// with an empty status so callers fall back to exit-code semantics.
func ParseWorkerOutput(output string) *WorkerResponse {
	var resp WorkerResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return &WorkerResponse{Content: output}
	}
	return &resp
}
