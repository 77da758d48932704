package ffmpeg

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"mediaconv/internal/media"
	"mediaconv/internal/services"
)

func TestBuildArgsMapsNamedOptions(t *testing.T) {
	args, err := BuildArgs(media.Request{
		Source: "/in/movie.avi",
		Dest:   "/out/movie.mkv",
		Options: map[string]string{
			"format":      "mkv",
			"video_codec": "libx264",
			"crf":         "22",
			"an":          "",
		},
	})
	if err != nil {
		t.Fatalf("BuildArgs: %v", err)
	}
	got := strings.Join(args, " ")
	want := "-hide_banner -nostdin -y -loglevel error -i /in/movie.avi -an -crf 22 -c:v libx264 -f matroska -progress pipe:1 -nostats /out/movie.mkv"
	if got != want {
		t.Fatalf("unexpected args:\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildArgsWithoutContainer(t *testing.T) {
	args, err := BuildArgs(media.Request{Source: "a.avi", Dest: "b.avi"})
	if err != nil {
		t.Fatalf("BuildArgs: %v", err)
	}
	if slices.Contains(args, "-f") {
		t.Fatalf("did not expect -f without a container: %v", args)
	}
	if args[len(args)-1] != "b.avi" {
		t.Fatalf("expected destination last, got %v", args)
	}
}

func TestBuildArgsRejectsInvalidOptionName(t *testing.T) {
	_, err := BuildArgs(media.Request{
		Source:  "a.avi",
		Dest:    "b.mp4",
		Options: map[string]string{"bad key; rm": "x"},
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildArgsRequiresPaths(t *testing.T) {
	if _, err := BuildArgs(media.Request{Source: "a.avi"}); err == nil {
		t.Fatal("expected error without destination")
	}
}

func TestMuxer(t *testing.T) {
	cases := map[string]string{
		"mkv":  "matroska",
		".TS":  "mpegts",
		"mp4":  "mp4",
		"webm": "webm",
	}
	for in, want := range cases {
		if got := Muxer(in); got != want {
			t.Fatalf("Muxer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressParserEmitsPerBlock(t *testing.T) {
	parser := newProgressParser(10 * time.Second)
	lines := []string{
		"frame=120",
		"fps=24.5",
		"out_time_us=5000000",
		"total_size=1024",
		"speed=2.0x",
		"progress=continue",
	}
	var events []media.Progress
	for _, line := range lines {
		if event, ok := parser.feed(line); ok {
			events = append(events, event)
		}
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	event := events[0]
	if event.Frame != 120 || event.FPS != 24.5 || event.Size != 1024 || event.Speed != 2.0 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Percent != 50 {
		t.Fatalf("expected 50%%, got %v", event.Percent)
	}
	if event.Done {
		t.Fatal("did not expect done")
	}

	end, ok := parser.feed("progress=end")
	if !ok || !end.Done || end.Percent != 100 {
		t.Fatalf("unexpected end event: %+v ok=%v", end, ok)
	}
}

func TestProgressParserUnknownDuration(t *testing.T) {
	parser := newProgressParser(0)
	parser.feed("out_time_us=5000000")
	event, ok := parser.feed("progress=continue")
	if !ok || event.Percent >= 0 {
		t.Fatalf("expected unknown percent, got %+v", event)
	}
}

func TestTailBufferKeepsTail(t *testing.T) {
	buf := &tailBuffer{limit: 8}
	_, _ = buf.Write([]byte("0123456789"))
	_, _ = buf.Write([]byte("ab"))
	if got := buf.String(); got != "456789ab" {
		t.Fatalf("unexpected tail %q", got)
	}
}
