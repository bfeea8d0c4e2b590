package executor

import (
	"context"
	"fmt"

	"github.com/harrison/foreman/internal/models"
)

// GateCheck is one auxiliary review applied after a functional pass.
type GateCheck struct {
	Name        string // Check identifier, used in task IDs and issue reports
	Agent       string // Delegated agent for the check (optional)
	Description string // Work description handed to the worker
}

// DefaultGateChecks returns the fixed ordered quality gate sequence:
// style normalization, vulnerability review, observability pass, and
// clarity simplification.
func DefaultGateChecks() []GateCheck {
	return []GateCheck{
		{
			Name:        "lint-normalize",
			Agent:       "code-linter",
			Description: "Run the project linters and normalize code style across all files changed by this feature. Fix every reported issue.",
		},
		{
			Name:        "security-review",
			Agent:       "security-reviewer",
			Description: "Review the changed code for vulnerability patterns: injection, path traversal, unsafe deserialization, secret handling. Fix what you find.",
		},
		{
			Name:        "logging-review",
			Agent:       "observability-reviewer",
			Description: "Review the changed code for observability: add missing log statements at error paths and key state transitions, remove noisy ones.",
		},
		{
			Name:        "simplify",
			Agent:       "code-simplifier",
			Description: "Simplify the changed code for clarity without altering behavior: remove dead code, flatten needless indirection, improve names.",
		},
	}
}

// QualityGate runs a fixed sequence of best-effort single-shot checks
// after the functional loop passes. Checks are independent: a failing
// check never blocks the remaining ones and is never retried; its
// outcome is folded into the phase record and reported as an open issue.
type QualityGate struct {
	worker Worker
	checks []GateCheck
}

// NewQualityGate creates a QualityGate with the given checks. A nil or
// empty check list uses the default sequence.
func NewQualityGate(worker Worker, checks []GateCheck) *QualityGate {
	if worker == nil {
		panic("quality gate requires a worker")
	}
	if len(checks) == 0 {
		checks = DefaultGateChecks()
	}
	return &QualityGate{worker: worker, checks: checks}
}

// Run executes every gate check in order against the workspace,
// appending each outcome to phase.Outcomes. It returns the open issues
// produced by failing checks. Cancellation is observed between checks;
// remaining checks are skipped once ctx is done.
func (qg *QualityGate) Run(ctx context.Context, phase *models.Phase, workspace string) []string {
	var issues []string

	for _, check := range qg.checks {
		if ctx.Err() != nil {
			return issues
		}

		task := models.Task{
			ID:          fmt.Sprintf("%s/%s", phase.Spec.Name, check.Name),
			Name:        check.Name,
			Description: check.Description,
			Workspace:   workspace,
			Agent:       check.Agent,
		}

		outcome := qg.worker.Invoke(ctx, task)
		phase.Outcomes = append(phase.Outcomes, outcome)

		if !outcome.Succeeded() {
			issues = append(issues, fmt.Sprintf("quality gate %s failed: %s", check.Name, outcome.Diagnostics))
		}
	}

	return issues
}
