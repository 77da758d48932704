package strategy

import (
	"fmt"
	"log/slog"
	"strings"

	"mediaconv/internal/config"
	"mediaconv/internal/deps"
	"mediaconv/internal/media/ffmpeg"
	"mediaconv/internal/media/ffprobe"
	"mediaconv/internal/services"
	"mediaconv/internal/services/drapto"
)

// Build constructs the strategy named by kind from cfg after checking that
// the binaries it needs resolve. An empty kind selects ffmpeg.
func Build(kind string, cfg *config.Config, logger *slog.Logger) (*External, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "strategy", "build", "config unavailable", nil)
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = config.StrategyFFmpeg
	}

	opts := []ExternalOption{
		WithPollInterval(cfg.PollInterval()),
		WithStabilityTimeout(cfg.StabilityTimeout()),
	}

	switch kind {
	case config.StrategyFFmpeg:
		if err := deps.Verify(deps.CheckBinaries(deps.RequirementsFor(kind, cfg))); err != nil {
			return nil, err
		}
		prober := ffprobe.NewProber(cfg.ProberBinary())
		transcoder := ffmpeg.New(cfg.EncoderBinary())
		return NewExternal(kind, prober, transcoder, logger, opts...), nil

	case config.StrategyDrapto:
		if container := cfg.OutputFormat().Container(); container != drapto.Container {
			return nil, services.Wrap(services.ErrConfiguration, "strategy", "build",
				fmt.Sprintf("drapto writes %s output, media.out_format.format is %q", drapto.Container, container), nil)
		}
		if err := deps.Verify(deps.CheckBinaries(deps.RequirementsFor(kind, cfg))); err != nil {
			return nil, err
		}
		prober := ffprobe.NewProber(cfg.ProberBinary())
		return NewExternal(kind, prober, drapto.New(logger), logger, opts...), nil

	default:
		return nil, services.Wrap(services.ErrConfiguration, "strategy", "build", fmt.Sprintf("unknown strategy %q", kind), nil)
	}
}
