package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"mediaconv/internal/logging"
	"mediaconv/internal/services"
)

// Strategy converts one job. Execute drives the stages in order.
type Strategy interface {
	// Prepare waits until the source is safe to read.
	Prepare(ctx context.Context, job *Job) error
	// Convert probes the source and writes the destination.
	Convert(ctx context.Context, job *Job) error
	// OnSuccess applies the archive policy to the source.
	OnSuccess(ctx context.Context, job *Job) error
	// OnError reports a failed job and cleans up partial output.
	OnError(ctx context.Context, job *Job, result Result)
}

// Outcome tags how far a job got.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeStabilityFailed
	OutcomeProbeFailed
	OutcomeConvertFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeStabilityFailed:
		return "stability_failed"
	case OutcomeProbeFailed:
		return "probe_failed"
	case OutcomeConvertFailed:
		return "convert_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Outcomes lists every outcome, in declaration order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeOK, OutcomeStabilityFailed, OutcomeProbeFailed, OutcomeConvertFailed}
}

// Result summarizes one Execute call.
type Result struct {
	Outcome Outcome
	Err     error
	// ArchiveErr is the OnSuccess failure; the conversion itself succeeded.
	ArchiveErr error
	Duration   time.Duration
}

// Succeeded reports whether the conversion produced its destination.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeOK
}

// ProbeError marks a Convert failure that happened while inspecting the
// source, before any output was written.
type ProbeError struct {
	Err error
}

func (e *ProbeError) Error() string {
	if e == nil || e.Err == nil {
		return "probe failed"
	}
	return e.Err.Error()
}

func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Execute runs s against job: Prepare, then Convert, then OnSuccess on
// OutcomeOK or OnError otherwise. It never returns an error and never
// panics; a panicking stage yields OutcomeConvertFailed.
func Execute(ctx context.Context, s Strategy, job *Job, logger *slog.Logger) Result {
	start := time.Now()
	ctx = services.WithJobID(ctx, job.ID())
	logger = logging.WithContext(ctx, logger).With(
		logging.String(logging.FieldSource, job.Source()),
		logging.String(logging.FieldDest, job.Dest()),
	)

	result := Result{Outcome: OutcomeOK}
	if err := runStage(ctx, "prepare", func(ctx context.Context) error { return s.Prepare(ctx, job) }); err != nil {
		result.Outcome = OutcomeStabilityFailed
		if isPanic(err) {
			result.Outcome = OutcomeConvertFailed
		}
		result.Err = err
	} else if err := runStage(ctx, "convert", func(ctx context.Context) error { return s.Convert(ctx, job) }); err != nil {
		result.Outcome = OutcomeConvertFailed
		var probeErr *ProbeError
		if !isPanic(err) && errors.As(err, &probeErr) {
			result.Outcome = OutcomeProbeFailed
		}
		result.Err = err
	}
	logPanic(logger, result.Err)

	if result.Succeeded() {
		if err := runStage(ctx, "on_success", func(ctx context.Context) error { return s.OnSuccess(ctx, job) }); err != nil {
			result.ArchiveErr = err
			if isPanic(err) {
				result.Outcome = OutcomeConvertFailed
				result.Err = err
				logPanic(logger, err)
			}
			logging.WarnWithContext(logger, "archive step failed", "archive_failed",
				logging.String("policy", job.Archive().Mode.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "converted file kept, source left where it was"),
			)
		}
		result.Duration = time.Since(start)
		if result.Succeeded() {
			logger.Info("conversion complete",
				logging.Duration("duration", result.Duration),
				logging.String(logging.FieldEventType, "job_complete"),
			)
		}
		return result
	}

	result.Duration = time.Since(start)
	if err := runStage(ctx, "on_error", func(ctx context.Context) error {
		s.OnError(ctx, job, result)
		return nil
	}); err != nil {
		logger.Error("error handler failed", logging.Error(err))
	}
	return result
}

type panicError struct {
	stage string
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.stage, e.value)
}

func isPanic(err error) bool {
	var p *panicError
	return errors.As(err, &p)
}

func logPanic(logger *slog.Logger, err error) {
	var p *panicError
	if !errors.As(err, &p) {
		return
	}
	logging.ErrorWithContext(logger, "strategy stage panicked", "stage_panic",
		logging.String(logging.FieldStage, p.stage),
		logging.Any("panic", p.value),
		logging.String("stack", string(p.stack)),
	)
}

// runStage calls fn with the stage recorded on ctx and converts a panic into
// a *panicError.
func runStage(ctx context.Context, stage string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{stage: stage, value: r, stack: debug.Stack()}
		}
	}()
	return fn(services.WithStage(ctx, stage))
}
