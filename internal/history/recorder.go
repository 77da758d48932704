package history

import (
	"context"
	"log/slog"
	"os"
	"time"

	"mediaconv/internal/logging"
	"mediaconv/internal/services"
	"mediaconv/internal/strategy"
)

// EntryFor builds the history row for a finished job. The output size is
// read from the destination when the job succeeded.
func EntryFor(ctx context.Context, job *strategy.Job, kind string, result strategy.Result) Entry {
	finished := time.Now()
	entry := Entry{
		JobID:    job.ID(),
		Source:   job.Source(),
		Dest:     job.Dest(),
		Strategy: kind,
		Outcome:  result.Outcome.String(),
		Started:  finished.Add(-result.Duration),
		Finished: finished,
		Duration: result.Duration,
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		entry.RunID = runID
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	if result.ArchiveErr != nil {
		entry.ArchiveError = result.ArchiveErr.Error()
	}
	if result.Succeeded() {
		if info, err := os.Stat(job.Dest()); err == nil {
			entry.OutputSize = info.Size()
		}
	}
	return entry
}

// Recorder writes finished jobs to a Store, logging failures instead of
// returning them.
type Recorder struct {
	store  *Store
	kind   string
	logger *slog.Logger
}

// NewRecorder returns a recorder for jobs run by strategy kind.
func NewRecorder(store *Store, kind string, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, kind: kind, logger: logging.NewComponentLogger(logger, "history")}
}

// Record stores the outcome of job.
func (r *Recorder) Record(ctx context.Context, job *strategy.Job, result strategy.Result) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Record(ctx, EntryFor(ctx, job, r.kind, result)); err != nil {
		logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
			logging.String(logging.FieldJobID, job.ID()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from mediaconv history"),
		)
	}
}
