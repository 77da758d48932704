// Package ffmpeg drives the ffmpeg binary for a single conversion.
//
// BuildArgs turns a named option map into an argument list (friendly names
// like video_codec map to -c:v, other keys pass through as -key value).
// Transcoder.Convert exposes ffmpeg's -progress output as a one-shot
// iter.Seq2 of media.Progress events; the caller drains it to completion.
package ffmpeg
