package strategy

import (
	"context"
	"iter"
	"log/slog"
	"os"
	"time"

	"mediaconv/internal/config"
	"mediaconv/internal/fileutil"
	"mediaconv/internal/logging"
	"mediaconv/internal/media"
	"mediaconv/internal/media/ffprobe"
	"mediaconv/internal/services"
)

// Prober inspects a source file. A nil result with a nil error means the
// file is not media.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffprobe.Result, error)
}

// Transcoder converts a source into a destination and reports progress as
// a lazy, one-shot sequence.
type Transcoder interface {
	Convert(ctx context.Context, req media.Request) iter.Seq2[media.Progress, error]
}

// External converts jobs with an external prober and transcoder pair.
type External struct {
	kind             string
	prober           Prober
	transcoder       Transcoder
	pollInterval     time.Duration
	stabilityTimeout time.Duration
	logger           *slog.Logger
}

// ExternalOption configures an External strategy.
type ExternalOption func(*External)

// WithPollInterval sets the delay between stability samples.
func WithPollInterval(interval time.Duration) ExternalOption {
	return func(e *External) {
		e.pollInterval = interval
	}
}

// WithStabilityTimeout bounds the stability wait. Zero waits forever.
func WithStabilityTimeout(timeout time.Duration) ExternalOption {
	return func(e *External) {
		e.stabilityTimeout = timeout
	}
}

// NewExternal constructs a strategy around prober and transcoder. kind is
// only used for logging and history.
func NewExternal(kind string, prober Prober, transcoder Transcoder, logger *slog.Logger, opts ...ExternalOption) *External {
	e := &External{
		kind:       kind,
		prober:     prober,
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "converter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kind returns the strategy name.
func (e *External) Kind() string {
	return e.kind
}

// Prepare blocks until the source stops growing.
func (e *External) Prepare(ctx context.Context, job *Job) error {
	if e.stabilityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stabilityTimeout)
		defer cancel()
	}
	logging.WithContext(ctx, e.logger).Debug("waiting for file to settle",
		logging.String(logging.FieldSource, job.Source()),
		logging.Duration("poll_interval", e.pollInterval),
	)
	return fileutil.WaitUntilStable(ctx, job.Source(), e.pollInterval)
}

// Convert probes the source and drains the transcoder's progress.
func (e *External) Convert(ctx context.Context, job *Job) error {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldSource, job.Source()))

	probe, err := e.prober.Probe(ctx, job.Source())
	if err != nil {
		return &ProbeError{Err: err}
	}
	if probe == nil || !probe.HasMedia() {
		return &ProbeError{Err: services.Wrap(services.ErrInvalidMedia, "convert", "probe", job.Source()+" has no audio or video streams", nil)}
	}

	duration := time.Duration(probe.DurationSeconds() * float64(time.Second))
	logger.Info("conversion started",
		logging.String(logging.FieldDest, job.Dest()),
		logging.Int("video_streams", probe.VideoStreamCount()),
		logging.Int("audio_streams", probe.AudioStreamCount()),
		logging.Duration("media_duration", duration),
		logging.Bytes("source_size", probe.SizeBytes()),
		logging.String(logging.FieldEventType, "job_started"),
	)

	sampler := logging.NewProgressSampler(10)
	seq := e.transcoder.Convert(ctx, media.Request{
		Source:   job.Source(),
		Dest:     job.Dest(),
		Options:  job.Format(),
		Duration: duration,
	})
	return media.Drain(seq, func(p media.Progress) {
		if !sampler.ShouldLog(p.Percent, p.Stage) {
			return
		}
		logger.Info("conversion progress",
			logging.String("progress_stage", p.Stage),
			logging.Float64("percent", p.Percent),
			logging.Float64("fps", p.FPS),
			logging.Float64("speed", p.Speed),
		)
	})
}

// OnSuccess applies the job's archive policy to its source.
func (e *External) OnSuccess(ctx context.Context, job *Job) error {
	logger := logging.WithContext(ctx, e.logger)
	policy := job.Archive()
	switch policy.Mode {
	case config.ArchiveDelete:
		if err := os.Remove(job.Source()); err != nil {
			return services.Wrap(services.ErrCleanup, "on_success", "delete source", job.Source(), err)
		}
		logger.Info("source deleted", logging.String(logging.FieldSource, job.Source()))
	case config.ArchiveMove:
		archived, err := fileutil.MoveInto(job.Source(), policy.Dir)
		if err != nil {
			return services.Wrap(services.ErrCleanup, "on_success", "archive source", job.Source(), err)
		}
		logger.Info("source archived",
			logging.String(logging.FieldSource, job.Source()),
			logging.String("archive_path", archived),
		)
	default:
		logger.Debug("source left in place", logging.String(logging.FieldSource, job.Source()))
	}
	return nil
}

// OnError logs the failure. Only a failed conversion can have written the
// destination, so earlier stages leave an existing file there alone.
func (e *External) OnError(ctx context.Context, job *Job, result Result) {
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String(logging.FieldSource, job.Source()),
		logging.String(logging.FieldDest, job.Dest()),
	)
	logging.ErrorWithContext(logger, "conversion failed", "job_failed",
		logging.String("outcome", result.Outcome.String()),
		logging.String("error_kind", services.Kind(result.Err)),
		logging.Error(result.Err),
		logging.String(logging.FieldErrorHint, hintFor(result.Outcome)),
	)

	if result.Outcome != OutcomeConvertFailed {
		return
	}
	removed, err := fileutil.RemoveIfExists(job.Dest())
	if err != nil {
		logging.WarnWithContext(logger, "partial output cleanup failed", "cleanup_failed",
			logging.Error(services.Wrap(services.ErrCleanup, "on_error", "remove destination", job.Dest(), err)),
			logging.String(logging.FieldImpact, "a partial file remains in the output folder"),
		)
		return
	}
	if removed {
		logger.Info("partial output removed")
	}
}

func hintFor(outcome Outcome) string {
	switch outcome {
	case OutcomeStabilityFailed:
		return "file vanished or kept growing; copy it into the input folder again"
	case OutcomeProbeFailed:
		return "file is not readable media; check the source with ffprobe"
	default:
		return "check the transcoder output above and the output format options"
	}
}
