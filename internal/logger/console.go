// Package logger provides logging implementations for foreman execution.
//
// The logger package offers structured logging of run progress at the
// phase and attempt levels. Implementations are thread-safe. Color
// output is automatically enabled for terminal output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/foreman/internal/models"
)

// Log level constants for filtering
const (
	levelDebug int = 0
	levelInfo  int = 1
	levelWarn  int = 2
	levelError int = 3
)

// ConsoleLogger logs run progress to a writer with timestamps and
// thread safety. All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded.
// Valid levels: debug, info, warn, error (case-insensitive); empty or
// invalid levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and
// validates it, defaulting to "info".
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if validLevels[normalized] {
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func (cl *ConsoleLogger) logf(level, format string, args ...interface{}) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
}

// statusColor returns the sprint function for a loop or run status.
func (cl *ConsoleLogger) statusColor(status string) func(a ...interface{}) string {
	if !cl.colorOutput {
		return fmt.Sprint
	}
	switch status {
	case models.LoopPassed, models.RunPass, models.OutcomeSuccess:
		return color.New(color.FgGreen).SprintFunc()
	case models.LoopExhausted, models.RunFail, models.OutcomeFailure:
		return color.New(color.FgRed).SprintFunc()
	case models.RunCancelled, models.PhaseInterrupted:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgCyan).SprintFunc()
	}
}

// LogRunStart logs the start of a run.
func (cl *ConsoleLogger) LogRunStart(runID, specFile string, phaseCount int) {
	cl.logf("info", "Starting run %s for %s with %d phase(s)", runID, specFile, phaseCount)
}

// LogPhaseStart logs the start of a phase.
func (cl *ConsoleLogger) LogPhaseStart(spec models.PhaseSpec) {
	if spec.Kind == models.KindRetryLoop {
		cl.logf("info", "Phase %s starting (retry loop, budget %d)", spec.Name, spec.MaxIterations)
		return
	}
	cl.logf("info", "Phase %s starting (single shot)", spec.Name)
}

// LogAttempt logs one work-unit outcome within a phase.
func (cl *ConsoleLogger) LogAttempt(phaseName string, attempt int, outcome models.Outcome) {
	status := cl.statusColor(outcome.Status)(outcome.Status)
	if outcome.Succeeded() {
		cl.logf("debug", "Phase %s attempt %d: %s (%s)", phaseName, attempt, status, outcome.Duration.Round(time.Second))
		return
	}
	cl.logf("warn", "Phase %s attempt %d: %s (%s): %s", phaseName, attempt, status, outcome.Reason, firstLine(outcome.Diagnostics))
}

// LogPhaseComplete logs a phase finishing, terminally or interrupted.
func (cl *ConsoleLogger) LogPhaseComplete(phase models.Phase, duration time.Duration) {
	status := cl.statusColor(phase.StatusLabel())(phase.StatusLabel())
	cl.logf("info", "Phase %s %s after %d/%d iteration(s) in %s",
		phase.Spec.Name, status, phase.Loop.Iterations, phase.Loop.MaxIterations, duration.Round(time.Second))
}

// LogPhaseSkipped logs a phase skipped by a hard-blocking failure or
// cancellation.
func (cl *ConsoleLogger) LogPhaseSkipped(spec models.PhaseSpec) {
	cl.logf("warn", "Phase %s not executed", spec.Name)
}

// LogSummary logs the run summary.
func (cl *ConsoleLogger) LogSummary(result *models.RunReport) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "\nRun Summary:\n")
	fmt.Fprintf(cl.writer, "  Status: %s\n", cl.statusColor(result.OverallStatus)(result.OverallStatus))
	fmt.Fprintf(cl.writer, "  Phases: %d\n", len(result.Phases))
	fmt.Fprintf(cl.writer, "  Iterations used: %d\n", result.IterationsUsed())
	fmt.Fprintf(cl.writer, "  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.OpenIssues) > 0 {
		fmt.Fprintf(cl.writer, "\nOpen Issues:\n")
		for _, issue := range result.OpenIssues {
			fmt.Fprintf(cl.writer, "  - %s\n", firstLine(issue))
		}
	}
}

// firstLine truncates multi-line diagnostics for single-line log output.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
