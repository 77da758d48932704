package ffmpeg

import (
	"bufio"
	"context"
	"iter"
	"os/exec"
	"strings"
	"sync"
	"time"

	"mediaconv/internal/media"
	"mediaconv/internal/procgroup"
	"mediaconv/internal/services"
)

var commandContext = exec.CommandContext

const stderrTailBytes = 4096

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithGrace sets how long ffmpeg gets to exit after an abandoned conversion
// before it is killed.
func WithGrace(grace time.Duration) Option {
	return func(t *Transcoder) {
		if grace > 0 {
			t.grace = grace
		}
	}
}

// Transcoder runs ffmpeg conversions.
type Transcoder struct {
	binary string
	grace  time.Duration
}

// New constructs a Transcoder using binary, defaulting to "ffmpeg".
func New(binary string, opts ...Option) *Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	t := &Transcoder{binary: binary, grace: procgroup.DefaultGrace}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Binary returns the ffmpeg executable in use.
func (t *Transcoder) Binary() string {
	return t.binary
}

// Convert returns the progress of converting req as a lazy sequence. Nothing
// runs until the sequence is ranged over, and it can be ranged over once.
// Stopping the range early terminates ffmpeg. A non-zero exit is yielded as a
// final error carrying the tail of ffmpeg's stderr.
func (t *Transcoder) Convert(ctx context.Context, req media.Request) iter.Seq2[media.Progress, error] {
	return media.OneShot(func(yield func(media.Progress, error) bool) {
		args, err := BuildArgs(req)
		if err != nil {
			yield(media.Progress{}, err)
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		cmd := commandContext(runCtx, t.binary, args...) //nolint:gosec
		procgroup.Set(cmd, t.grace)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(media.Progress{}, services.Wrap(services.ErrExternalTool, "converter", "ffmpeg", "stdout pipe", err))
			return
		}
		stderr := &tailBuffer{limit: stderrTailBytes}
		cmd.Stderr = stderr

		if err := cmd.Start(); err != nil {
			yield(media.Progress{}, services.Wrap(services.ErrExternalTool, "converter", "ffmpeg", "start "+t.binary, err))
			return
		}

		parser := newProgressParser(req.Duration)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			event, ok := parser.feed(scanner.Text())
			if !ok {
				continue
			}
			if !yield(event, nil) {
				cancel()
				_ = cmd.Wait()
				return
			}
		}
		scanErr := scanner.Err()

		if err := cmd.Wait(); err != nil {
			yield(media.Progress{}, services.Wrap(services.ErrExternalTool, "converter", "ffmpeg", stderr.String(), err))
			return
		}
		if scanErr != nil {
			yield(media.Progress{}, services.Wrap(services.ErrExternalTool, "converter", "ffmpeg", "read progress", scanErr))
		}
	})
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
