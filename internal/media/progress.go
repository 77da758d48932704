package media

import (
	"errors"
	"iter"
	"sync/atomic"
	"time"
)

// ErrSequenceConsumed is yielded when a progress sequence is ranged over a second time.
var ErrSequenceConsumed = errors.New("progress sequence already consumed")

// Progress is one event reported by a transcoder while it runs.
type Progress struct {
	Stage string
	// Percent is 0..100, or negative when the total duration is unknown.
	Percent float64
	Frame   int64
	FPS     float64
	Speed   float64
	OutTime time.Duration
	Size    int64
	Done    bool
}

// OneShot wraps seq so that only the first range over it runs the producer.
// Later ranges yield a single ErrSequenceConsumed.
func OneShot(seq iter.Seq2[Progress, error]) iter.Seq2[Progress, error] {
	var used atomic.Bool
	return func(yield func(Progress, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Progress{}, ErrSequenceConsumed)
			return
		}
		seq(yield)
	}
}

// Drain consumes seq to completion, passing each event to fn, and returns the
// first error the sequence yields. fn may be nil.
func Drain(seq iter.Seq2[Progress, error], fn func(Progress)) error {
	if seq == nil {
		return nil
	}
	for event, err := range seq {
		if err != nil {
			return err
		}
		if fn != nil {
			fn(event)
		}
	}
	return nil
}

// Request describes one conversion handed to a transcoder.
type Request struct {
	Source string
	Dest   string
	// Options are the named encoding options; "format" selects the container.
	Options map[string]string
	// Duration of the input when known, used to compute Percent.
	Duration time.Duration
}
