package executor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/foreman/internal/models"
	"github.com/harrison/foreman/internal/report"
)

// Logger defines the interface for logging sequencer progress and results.
type Logger interface {
	LogRunStart(runID, specFile string, phaseCount int)
	LogPhaseStart(spec models.PhaseSpec)
	LogAttempt(phaseName string, attempt int, outcome models.Outcome)
	LogPhaseComplete(phase models.Phase, duration time.Duration)
	LogPhaseSkipped(spec models.PhaseSpec)
	LogSummary(result *models.RunReport)
}

// PhaseBinding pairs a phase spec with the task factory that drives it.
type PhaseBinding struct {
	Spec    models.PhaseSpec
	Factory TaskFactory
	Worker  Worker // Optional per-phase worker override (nil uses the sequencer default)
	RunGate bool   // Run the quality gate once this phase passes
}

// Sequencer executes phases strictly in order, one work unit at a time.
// A phase only starts once its predecessor reached a terminal loop state;
// a hard-blocking failure marks every subsequent phase as not executed.
type Sequencer struct {
	worker    Worker
	gate      *QualityGate
	logger    Logger
	specFile  string
	workspace string
	clock     func() time.Time

	// HandleSignals converts SIGINT/SIGTERM into run cancellation.
	// Disabled in tests.
	HandleSignals bool
}

// NewSequencer creates a Sequencer for one run. The logger is optional
// and can be nil; the gate is optional and disables gate execution when nil.
func NewSequencer(worker Worker, gate *QualityGate, logger Logger, specFile, workspace string) *Sequencer {
	if worker == nil {
		panic("sequencer requires a worker")
	}
	return &Sequencer{
		worker:    worker,
		gate:      gate,
		logger:    logger,
		specFile:  specFile,
		workspace: workspace,
		clock:     time.Now,
	}
}

// loggingWorker reports every outcome to the sequencer logger as it is
// produced, without altering it.
type loggingWorker struct {
	inner     Worker
	logger    Logger
	phaseName string
	attempt   int
}

func (lw *loggingWorker) Invoke(ctx context.Context, task models.Task) models.Outcome {
	outcome := lw.inner.Invoke(ctx, task)
	lw.attempt++
	if lw.logger != nil {
		lw.logger.LogAttempt(lw.phaseName, lw.attempt, outcome)
	}
	return outcome
}

// Execute runs the bound phases in order and returns the finalized run
// report. Configuration errors (empty phase list, invalid phase specs)
// are returned before any phase executes. Cancellation is observed at
// every phase boundary and loop iteration; a cancelled run reports
// overall status cancelled, never fail.
func (s *Sequencer) Execute(ctx context.Context, bindings []PhaseBinding) (*models.RunReport, error) {
	if len(bindings) == 0 {
		return nil, NewConfigError("phases", "phase list is empty", ErrNoPhases)
	}
	for _, b := range bindings {
		if err := b.Spec.Validate(); err != nil {
			return nil, NewConfigError("phases", "invalid phase spec", err)
		}
		if b.Factory == nil {
			return nil, NewConfigError(b.Spec.Name, "phase has no task factory", nil)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.HandleSignals {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing current work unit then stopping...")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	runID := uuid.NewString()
	startedAt := s.clock()

	if s.logger != nil {
		s.logger.LogRunStart(runID, s.specFile, len(bindings))
	}

	var (
		phases     []models.Phase
		openIssues []string
		aborted    bool
		cancelled  bool
	)

	for _, b := range bindings {
		phase := models.Phase{Spec: b.Spec}

		if aborted || cancelled || ctx.Err() != nil {
			if ctx.Err() != nil {
				cancelled = true
			}
			if s.logger != nil {
				s.logger.LogPhaseSkipped(b.Spec)
			}
			phases = append(phases, phase)
			continue
		}

		if s.logger != nil {
			s.logger.LogPhaseStart(b.Spec)
		}
		phaseStart := s.clock()

		worker := b.Worker
		if worker == nil {
			worker = s.worker
		}
		logged := &loggingWorker{inner: worker, logger: s.logger, phaseName: b.Spec.Name}

		max := b.Spec.MaxIterations
		if b.Spec.Kind == models.KindSingleShot {
			max = 1
		}

		loop := NewRetryLoop(logged)
		state, err := loop.Run(ctx, &phase, b.Factory, max)
		phase.Loop = state
		phase.Executed = true

		if err != nil {
			if IsConfigError(err) {
				return nil, err
			}
			// Context cancellation: record the partial phase and stop
			// starting new work.
			cancelled = true
			phases = append(phases, phase)
			if s.logger != nil {
				s.logger.LogPhaseComplete(phase, s.clock().Sub(phaseStart))
			}
			continue
		}

		switch state.Status {
		case models.LoopPassed:
			if b.RunGate && s.gate != nil {
				openIssues = append(openIssues, s.gate.Run(ctx, &phase, s.workspace)...)
			}
		case models.LoopExhausted:
			issue := fmt.Sprintf("phase %s exhausted after %d attempt(s)", b.Spec.Name, state.Iterations)
			if last := phase.LastFailure(); last != "" {
				issue = fmt.Sprintf("%s: %s", issue, last)
			}
			openIssues = append(openIssues, issue)
			if b.Spec.HardBlocking {
				aborted = true
			}
		}

		phases = append(phases, phase)
		if s.logger != nil {
			s.logger.LogPhaseComplete(phase, s.clock().Sub(phaseStart))
		}
	}

	result := report.Finalize(report.Input{
		RunID:      runID,
		SpecFile:   s.specFile,
		Phases:     phases,
		OpenIssues: openIssues,
		Cancelled:  cancelled,
		StartedAt:  startedAt,
		Duration:   s.clock().Sub(startedAt),
	})

	if s.logger != nil {
		s.logger.LogSummary(result)
	}

	return result, nil
}
