// Package report finalizes run results into a RunReport and renders the
// human-readable run summary, the only artifact foreman persists by
// default.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/foreman/internal/models"
)

// Exit codes for run termination. Calling automation distinguishes
// "gave up" from "was stopped" by code.
const (
	ExitPass      = 0   // Every hard-blocking phase passed
	ExitFail      = 1   // A hard-blocking phase failed
	ExitConfig    = 2   // Configuration error before any phase ran
	ExitCancelled = 130 // Run stopped by cancellation signal
)

// SummaryFileName is the run summary written under <workspace>/.foreman/.
const SummaryFileName = "run-summary.txt"

// Input carries everything Finalize needs. Finalize is a pure function
// of this input: calling it twice with the same input yields identical
// reports.
type Input struct {
	RunID      string
	SpecFile   string
	Phases     []models.Phase
	OpenIssues []string
	Cancelled  bool
	StartedAt  time.Time
	Duration   time.Duration
}

// Finalize builds the terminal RunReport. Overall status is pass iff the
// run was not cancelled and every executed hard-blocking phase passed
// and no hard-blocking phase was skipped.
func Finalize(in Input) *models.RunReport {
	status := models.RunPass

	for _, p := range in.Phases {
		if !p.Spec.HardBlocking {
			continue
		}
		if !p.Passed() {
			status = models.RunFail
			break
		}
	}

	if in.Cancelled {
		status = models.RunCancelled
	}

	report := &models.RunReport{
		RunID:         in.RunID,
		SpecFile:      in.SpecFile,
		OverallStatus: status,
		StartedAt:     in.StartedAt,
		Duration:      in.Duration,
	}
	report.Phases = append(report.Phases, in.Phases...)
	report.OpenIssues = append(report.OpenIssues, in.OpenIssues...)

	return report
}

// ExitCode maps the report's overall status to a process exit code.
func ExitCode(report *models.RunReport) int {
	switch report.OverallStatus {
	case models.RunPass:
		return ExitPass
	case models.RunCancelled:
		return ExitCancelled
	default:
		return ExitFail
	}
}

// WriteSummary renders the human-readable run summary.
func WriteSummary(w io.Writer, report *models.RunReport) {
	fmt.Fprintf(w, "Run %s\n", report.RunID)
	fmt.Fprintf(w, "Spec: %s\n", report.SpecFile)
	fmt.Fprintf(w, "Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", report.Duration.Round(time.Second))
	fmt.Fprintf(w, "Status: %s\n", report.OverallStatus)
	fmt.Fprintf(w, "\nPhases:\n")

	for _, p := range report.Phases {
		if !p.Executed {
			fmt.Fprintf(w, "  - %-20s not executed\n", p.Spec.Name)
			continue
		}
		fmt.Fprintf(w, "  - %-20s %-10s %d/%d iteration(s)\n",
			p.Spec.Name, p.StatusLabel(), p.Loop.Iterations, p.Loop.MaxIterations)
		if p.Loop.Status == models.LoopExhausted {
			if last := p.LastFailure(); last != "" {
				fmt.Fprintf(w, "      last failure: %s\n", firstLine(last))
			}
		}
	}

	if len(report.OpenIssues) > 0 {
		fmt.Fprintf(w, "\nOpen issues:\n")
		for _, issue := range report.OpenIssues {
			fmt.Fprintf(w, "  - %s\n", firstLine(issue))
		}
	}
}

// WriteSummaryFile persists the summary to <workspace>/.foreman/ and
// returns the written path.
func WriteSummaryFile(workspace string, report *models.RunReport) (string, error) {
	dir := filepath.Join(workspace, ".foreman")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create summary directory: %w", err)
	}

	path := filepath.Join(dir, SummaryFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	WriteSummary(f, report)
	return path, nil
}

// firstLine truncates multi-line diagnostics for the summary listing.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
