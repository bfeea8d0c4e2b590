package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/foreman/internal/models"
)

// NewFixRetryFactory returns the task factory for the functional
// correctness loop. The first attempt runs the base task as-is; every
// subsequent attempt re-describes the task as fixing the previously
// reported failure, with the failure diagnostics folded into the
// description.
func NewFixRetryFactory(base models.Task) TaskFactory {
	return func(prev *models.Outcome) models.Task {
		task := base
		if prev == nil {
			return task
		}

		var sb strings.Builder
		sb.WriteString(base.Description)
		sb.WriteString("\n\nThe previous attempt failed. Fix the reported failure and re-run the verification.\n")
		if prev.Reason != "" {
			fmt.Fprintf(&sb, "\nFailure reason: %s\n", prev.Reason)
		}
		if prev.Diagnostics != "" {
			fmt.Fprintf(&sb, "\nDiagnostics from the failed attempt:\n%s\n", prev.Diagnostics)
		}

		task.Description = sb.String()
		return task
	}
}

// NewSplitFactory returns the task factory for the structural size loop.
// The description always carries the current set of oversized artifacts;
// the structural worker refreshes it each attempt by re-measuring.
func NewSplitFactory(base models.Task, threshold int) TaskFactory {
	return func(prev *models.Outcome) models.Task {
		task := base

		var sb strings.Builder
		fmt.Fprintf(&sb, "Split any source file exceeding %d lines into smaller, cohesive files. Preserve behavior exactly; move code, do not rewrite it.\n", threshold)
		if prev != nil && prev.Diagnostics != "" {
			sb.WriteString("\nOversized files from the last measurement pass:\n")
			sb.WriteString(prev.Diagnostics)
		}

		task.Description = sb.String()
		return task
	}
}

// StructuralWorker wraps a worker with workspace measurement for the
// structural size loop. Every invocation re-measures all artifacts
// first: a clean pass is a success without delegating at all, otherwise
// the wrapped worker is asked to split the violators and the attempt is
// recorded as a failure carrying the violation list, so the loop only
// passes once a measurement pass finds zero violations.
type StructuralWorker struct {
	Worker    Worker
	Measurer  *Measurer
	Workspace string
}

// NewStructuralWorker creates the measuring wrapper for the split loop.
func NewStructuralWorker(worker Worker, measurer *Measurer, workspace string) *StructuralWorker {
	return &StructuralWorker{
		Worker:    worker,
		Measurer:  measurer,
		Workspace: workspace,
	}
}

// Invoke implements Worker.
func (sw *StructuralWorker) Invoke(ctx context.Context, task models.Task) models.Outcome {
	violations, err := sw.Measurer.Measure(sw.Workspace)
	if err != nil {
		return models.FailureOutcome("measurement_error", err.Error(), 0)
	}

	if len(violations) == 0 {
		return models.SuccessOutcome("workspace within size bounds", 0)
	}

	listed := make([]string, len(violations))
	for i, v := range violations {
		listed[i] = v.String()
	}
	diagnostics := strings.Join(listed, "\n")

	task.Description = task.Description + "\n\nCurrent violations:\n" + diagnostics

	split := sw.Worker.Invoke(ctx, task)
	if !split.Succeeded() {
		diagnostics = diagnostics + "\n\nsplit attempt failed: " + split.Diagnostics
	}

	// Even a successful split is a failed pass: success requires a
	// clean measurement, which the next iteration performs.
	return models.FailureOutcome("size_violations", diagnostics, split.Duration)
}
