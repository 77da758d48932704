package ffmpeg

import (
	"strconv"
	"strings"
	"time"

	"mediaconv/internal/media"
)

// progressParser accumulates the key=value lines ffmpeg writes with
// -progress and emits one event per block. Blocks end with progress=continue
// or progress=end.
type progressParser struct {
	duration time.Duration
	current  media.Progress
}

func newProgressParser(duration time.Duration) *progressParser {
	return &progressParser{duration: duration, current: media.Progress{Stage: "encoding", Percent: -1}}
}

func (p *progressParser) feed(line string) (media.Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return media.Progress{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = v
		}
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		if v, err := strconv.ParseInt(value, 10, 64); err == nil && v >= 0 {
			p.current.OutTime = time.Duration(v) * time.Microsecond
		}
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Size = v
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.current.Speed = v
		}
	case "progress":
		event := p.current
		event.Done = value == "end"
		event.Percent = p.percent(event.OutTime)
		if event.Done {
			event.Percent = 100
		}
		return event, true
	}
	return media.Progress{}, false
}

func (p *progressParser) percent(out time.Duration) float64 {
	if p.duration <= 0 {
		return -1
	}
	pct := float64(out) / float64(p.duration) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
