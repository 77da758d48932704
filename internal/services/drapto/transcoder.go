package drapto

import (
	"context"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"

	draptolib "github.com/five82/drapto"

	"mediaconv/internal/logging"
	"mediaconv/internal/media"
	"mediaconv/internal/services"
)

// Container is the only output container Drapto produces.
const Container = "mkv"

type encodeFunc func(ctx context.Context, inputPath, outputDir string, rep draptolib.Reporter) error

// runEncode is swapped in tests to avoid running the real encoder.
var runEncode encodeFunc = func(ctx context.Context, inputPath, outputDir string, rep draptolib.Reporter) error {
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return err
	}
	_, err = encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep)
	return err
}

// Transcoder converts media with the Drapto library.
type Transcoder struct {
	logger *slog.Logger
}

// New constructs a Drapto-backed transcoder.
func New(logger *slog.Logger) *Transcoder {
	return &Transcoder{logger: logging.NewComponentLogger(logger, "drapto")}
}

// OutputPath returns where Drapto writes the encode of inputPath inside outputDir.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+"."+Container)
}

// Convert encodes req.Source into the directory of req.Dest. Drapto names the
// output itself, so req.Dest must be the path OutputPath would produce. Format
// options are ignored; Drapto picks its own settings.
func (t *Transcoder) Convert(ctx context.Context, req media.Request) iter.Seq2[media.Progress, error] {
	return media.OneShot(func(yield func(media.Progress, error) bool) {
		if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Dest) == "" {
			yield(media.Progress{}, services.Wrap(services.ErrConfiguration, "converter", "drapto", "source and destination required", nil))
			return
		}
		outputDir := filepath.Dir(req.Dest)
		if expected := OutputPath(req.Source, outputDir); filepath.Clean(req.Dest) != expected {
			yield(media.Progress{}, services.Wrap(services.ErrConfiguration, "converter", "drapto", "destination must be "+expected, nil))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		rep := newReporter(runCtx, t.logger)
		done := make(chan error, 1)
		go func() {
			err := runEncode(runCtx, req.Source, outputDir, rep)
			rep.close()
			done <- err
		}()

		for event := range rep.events {
			if !yield(event, nil) {
				cancel()
				for range rep.events {
				}
				<-done
				return
			}
		}

		if err := <-done; err != nil {
			detail := "encode " + filepath.Base(req.Source)
			if issue := rep.lastIssue(); issue != "" {
				detail = issue
			}
			yield(media.Progress{}, services.Wrap(services.ErrExternalTool, "converter", "drapto", detail, err))
		}
	})
}
