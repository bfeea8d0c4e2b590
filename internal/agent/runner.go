package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/foreman/internal/models"
)

// CLIInvoker abstracts the raw CLI invocation so tests can script it.
type CLIInvoker interface {
	Invoke(ctx context.Context, task models.Task) (*InvocationResult, error)
}

// Runner adapts the raw CLI invoker to the orchestrator's worker seam.
// It is memoryless: every call receives the full task context, and no
// state survives between invocations. Each invocation is bounded by
// Timeout; an overrun is converted into a synthetic timeout failure so
// the retry loop's termination guarantee holds even when the delegated
// worker hangs.
type Runner struct {
	Invoker CLIInvoker
	Timeout time.Duration
}

// NewRunner creates a Runner around the default CLI invoker.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{
		Invoker: NewInvoker(),
		Timeout: timeout,
	}
}

// Invoke executes one work unit and reports its outcome. Failures are
// always reported as outcomes, never raised: a crashed, hung, or
// misbehaving worker becomes a failure the retry loop can act on.
func (r *Runner) Invoke(ctx context.Context, task models.Task) models.Outcome {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.Invoker.Invoke(ctx, task)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.TimeoutOutcome(elapsed)
		}
		return models.FailureOutcome("invocation_error", err.Error(), elapsed)
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.TimeoutOutcome(elapsed)
	}

	if result.Error != nil {
		if errors.Is(result.Error, context.DeadlineExceeded) {
			return models.TimeoutOutcome(result.Duration)
		}
		return models.FailureOutcome("invocation_error", result.Error.Error(), result.Duration)
	}

	resp := ParseWorkerOutput(result.Output)

	if result.ExitCode != 0 {
		diagnostics := resp.Diagnostics
		if diagnostics == "" {
			diagnostics = resp.Error
		}
		if diagnostics == "" {
			diagnostics = result.Output
		}
		return models.FailureOutcome(fmt.Sprintf("exit_code_%d", result.ExitCode), diagnostics, result.Duration)
	}

	switch resp.Status {
	case "failed":
		diagnostics := resp.Diagnostics
		if diagnostics == "" {
			diagnostics = resp.Error
		}
		return models.FailureOutcome("worker_reported_failure", diagnostics, result.Duration)
	case "success", "":
		// Empty status means plain-text output; exit code 0 is success.
		artifact := resp.Artifact
		if artifact == "" {
			artifact = resp.Content
		}
		return models.SuccessOutcome(artifact, result.Duration)
	default:
		return models.FailureOutcome("invalid_worker_response",
			fmt.Sprintf("worker returned unsupported status %q", resp.Status), result.Duration)
	}
}
