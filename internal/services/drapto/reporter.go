package drapto

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	draptolib "github.com/five82/drapto"

	"mediaconv/internal/logging"
	"mediaconv/internal/media"
)

// reporter turns Drapto callbacks into media.Progress events on a channel.
// Callbacks with no progress meaning are logged.
type reporter struct {
	ctx    context.Context
	logger *slog.Logger
	events chan media.Progress

	mu     sync.Mutex
	closed bool
	issue  string
}

func newReporter(ctx context.Context, logger *slog.Logger) *reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &reporter{ctx: ctx, logger: logger, events: make(chan media.Progress, 16)}
}

func (r *reporter) send(event media.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- event:
	case <-r.ctx.Done():
	}
}

func (r *reporter) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
}

func (r *reporter) setIssue(issue string) {
	r.mu.Lock()
	r.issue = issue
	r.mu.Unlock()
}

func (r *reporter) lastIssue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issue
}

func (r *reporter) Hardware(s draptolib.HardwareSummary) {
	r.logger.Debug("drapto hardware", logging.String("hostname", s.Hostname))
}

func (r *reporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Info("drapto initialized",
		logging.String(logging.FieldSource, s.InputFile),
		logging.String(logging.FieldDest, s.OutputFile),
		logging.Any("resolution", s.Resolution),
		logging.Any("duration", s.Duration),
	)
}

func (r *reporter) StageProgress(s draptolib.StageProgress) {
	r.send(media.Progress{
		Stage:   strings.TrimSpace(s.Stage),
		Percent: float64(s.Percent),
	})
}

func (r *reporter) CropResult(s draptolib.CropSummary) {
	r.logger.Info("drapto crop detection",
		logging.Any("crop", s.Crop),
		logging.Bool("required", s.Required),
		logging.Bool("disabled", s.Disabled),
	)
}

func (r *reporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Debug("drapto encoding config",
		logging.Any("encoder", s.Encoder),
		logging.Any("preset", s.Preset),
		logging.Any("quality", s.Quality),
	)
}

func (r *reporter) EncodingStarted(totalFrames uint64) {
	r.logger.Debug("drapto encoding started", logging.Any("total_frames", totalFrames))
}

func (r *reporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.send(media.Progress{
		Stage:   "encoding",
		Percent: float64(s.Percent),
		Frame:   int64(s.CurrentFrame),
		FPS:     float64(s.FPS),
		Speed:   float64(s.Speed),
	})
}

func (r *reporter) ValidationComplete(s draptolib.ValidationSummary) {
	if s.Passed {
		r.logger.Info("drapto validation passed")
		return
	}
	var failed []string
	for _, step := range s.Steps {
		if !step.Passed {
			failed = append(failed, step.Name)
		}
	}
	r.setIssue("validation failed: " + strings.Join(failed, ", "))
	r.logger.Warn("drapto validation failed",
		logging.String("failed_steps", strings.Join(failed, ", ")),
		logging.String(logging.FieldEventType, "drapto_validation_failed"),
		logging.String(logging.FieldImpact, "encoded output may be unusable"),
	)
}

func (r *reporter) EncodingComplete(s draptolib.EncodingOutcome) {
	r.logger.Info("drapto encoding complete",
		logging.Bytes("original_size", int64(s.OriginalSize)),
		logging.Bytes("encoded_size", int64(s.EncodedSize)),
		logging.Any("total_time", s.TotalTime),
	)
	r.send(media.Progress{
		Stage:   "complete",
		Percent: 100,
		Size:    int64(s.EncodedSize),
		Done:    true,
	})
}

func (r *reporter) Warning(message string) {
	r.logger.Warn("drapto warning",
		logging.String("detail", message),
		logging.String(logging.FieldEventType, "drapto_warning"),
	)
}

func (r *reporter) Error(e draptolib.ReporterError) {
	issue := strings.TrimSpace(e.Title + ": " + e.Message)
	r.setIssue(issue)
	r.logger.Error("drapto error",
		logging.String("title", e.Title),
		logging.String("detail", e.Message),
		logging.String("context", e.Context),
		logging.String(logging.FieldErrorHint, e.Suggestion),
		logging.String(logging.FieldEventType, "drapto_error"),
	)
}

func (r *reporter) OperationComplete(message string) {
	r.logger.Debug("drapto operation complete", logging.String("detail", message))
}

func (r *reporter) BatchStarted(s draptolib.BatchStartInfo) {
	r.logger.Debug("drapto batch started", logging.Any("total_files", s.TotalFiles))
}

func (r *reporter) FileProgress(s draptolib.FileProgressContext) {
	r.logger.Debug("drapto file progress",
		logging.Any("current_file", s.CurrentFile),
		logging.Any("total_files", s.TotalFiles),
	)
}

func (r *reporter) BatchComplete(s draptolib.BatchSummary) {
	r.logger.Debug("drapto batch complete", logging.Any("successful", s.SuccessfulCount))
}

var _ draptolib.Reporter = (*reporter)(nil)
