package ffmpeg

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mediaconv/internal/media"
	"mediaconv/internal/services"
)

// namedOptions maps friendly option names to ffmpeg flags. Any other key is
// passed through verbatim as "-key value".
var namedOptions = map[string]string{
	"video_codec":    "-c:v",
	"audio_codec":    "-c:a",
	"subtitle_codec": "-c:s",
	"video_bitrate":  "-b:v",
	"audio_bitrate":  "-b:a",
	"video_filter":   "-vf",
	"audio_filter":   "-af",
	"audio_channels": "-ac",
	"audio_rate":     "-ar",
	"frame_rate":     "-r",
	"pixel_format":   "-pix_fmt",
}

// muxers maps file extensions to ffmpeg muxer names where they differ.
var muxers = map[string]string{
	"mkv":  "matroska",
	"mka":  "matroska",
	"ts":   "mpegts",
	"m2ts": "mpegts",
	"m4v":  "mp4",
	"m4a":  "ipod",
}

var optionName = regexp.MustCompile(`^[a-z0-9][a-z0-9_:.\-]*$`)

// Muxer returns the ffmpeg muxer for a container extension.
func Muxer(container string) string {
	container = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(container)), ".")
	if muxer, ok := muxers[container]; ok {
		return muxer
	}
	return container
}

// BuildArgs returns the ffmpeg argument list for req. Progress is written as
// key=value blocks to stdout.
func BuildArgs(req media.Request) ([]string, error) {
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Dest) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "converter", "args", "source and destination required", nil)
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-i", req.Source}

	keys := make([]string, 0, len(req.Options))
	for key := range req.Options {
		if key == "format" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.TrimSpace(req.Options[key])
		flag, ok := namedOptions[key]
		if !ok {
			if !optionName.MatchString(key) {
				return nil, services.Wrap(services.ErrConfiguration, "converter", "args", fmt.Sprintf("invalid option name %q", key), nil)
			}
			flag = "-" + key
		}
		args = append(args, flag)
		if value != "" {
			args = append(args, value)
		}
	}

	if container := req.Options["format"]; strings.TrimSpace(container) != "" {
		args = append(args, "-f", Muxer(container))
	}
	args = append(args, "-progress", "pipe:1", "-nostats", req.Dest)
	return args, nil
}
