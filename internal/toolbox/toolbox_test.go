package toolbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"promptreel/internal/util"
)

// recordingRunner captures every invocation and plays back canned
// results keyed by binary name.
type recordingRunner struct {
	specs  []util.CmdSpec
	stdout string
}

func (r *recordingRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	r.specs = append(r.specs, spec)
	return util.CmdResult{Stdout: []byte(r.stdout)}, nil
}

func (r *recordingRunner) last(t *testing.T) util.CmdSpec {
	t.Helper()
	if len(r.specs) == 0 {
		t.Fatal("no command ran")
	}
	return r.specs[len(r.specs)-1]
}

func hasSubsequence(args []string, want ...string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		match := true
		for j := range want {
			if args[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newTestToolbox() (*Toolbox, *recordingRunner) {
	r := &recordingRunner{}
	return New(Options{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", Runner: r}), r
}

func TestWritePlaylist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.txt")
	if err := WritePlaylist(path, []string{"/tmp/a.mp4", "/tmp/b.mp4"}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "file /tmp/a.mp4\nfile /tmp/b.mp4\n"
	if string(b) != want {
		t.Fatalf("playlist content:\n%q\nwant\n%q", b, want)
	}

	if err := WritePlaylist(path, nil); err == nil {
		t.Fatal("expected error for empty playlist")
	}
}

func TestConcatenateCopiesWhenNoRescale(t *testing.T) {
	tb, r := newTestToolbox()
	target := filepath.Join(t.TempDir(), "out.mp4")

	out, err := tb.Concatenate(context.Background(), "/tmp/p.txt", target, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if out != target {
		t.Fatalf("target: got %s", out)
	}
	spec := r.last(t)
	if spec.Path != "ffmpeg" {
		t.Fatalf("binary: got %s", spec.Path)
	}
	if !hasSubsequence(spec.Args, "-f", "concat", "-safe", "0", "-i", "/tmp/p.txt") {
		t.Fatalf("concat input args missing: %v", spec.Args)
	}
	if !hasSubsequence(spec.Args, "-c", "copy") {
		t.Fatalf("expected stream copy: %v", spec.Args)
	}
	if hasSubsequence(spec.Args, "-vf") {
		t.Fatalf("unexpected filter for multiplier 1.0: %v", spec.Args)
	}
}

func TestConcatenateRescales(t *testing.T) {
	tb, r := newTestToolbox()
	target := filepath.Join(t.TempDir(), "out.mp4")

	if _, err := tb.Concatenate(context.Background(), "/tmp/p.txt", target, 2.0); err != nil {
		t.Fatal(err)
	}
	spec := r.last(t)
	if !hasSubsequence(spec.Args, "-vf", "setpts=PTS/2") {
		t.Fatalf("video retiming missing: %v", spec.Args)
	}
	if !hasSubsequence(spec.Args, "-af", "atempo=2") {
		t.Fatalf("audio retiming missing: %v", spec.Args)
	}
	if !hasSubsequence(spec.Args, "-c:v", "libx264") {
		t.Fatalf("rescale must re-encode: %v", spec.Args)
	}
	if spec.Args[len(spec.Args)-1] != target {
		t.Fatalf("target not last: %v", spec.Args)
	}
}

func TestReencodeArgs(t *testing.T) {
	tb, r := newTestToolbox()
	target := filepath.Join(t.TempDir(), "out.mp4")

	if _, err := tb.Reencode(context.Background(), "/tmp/in.mp4", target); err != nil {
		t.Fatal(err)
	}
	spec := r.last(t)
	for _, want := range [][]string{
		{"-i", "/tmp/in.mp4"},
		{"-c:v", "libx264"},
		{"-preset", "veryfast"},
		{"-profile:v", "main"},
		{"-pix_fmt", "yuv420p"},
		{"-c:a", "aac"},
		{"-movflags", "+faststart"},
	} {
		if !hasSubsequence(spec.Args, want...) {
			t.Errorf("args %v missing from %v", want, spec.Args)
		}
	}
}

func TestFrameExtractionNames(t *testing.T) {
	tb, r := newTestToolbox()
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.mp4")

	first, err := tb.FirstFrame(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if first != filepath.Join(dir, "clip_first.jpg") {
		t.Fatalf("first frame name: got %s", first)
	}
	if !hasSubsequence(r.last(t).Args, "-frames:v", "1") {
		t.Fatalf("single frame arg missing: %v", r.last(t).Args)
	}

	last, err := tb.LastFrame(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if last != filepath.Join(dir, "clip_last.jpg") {
		t.Fatalf("last frame name: got %s", last)
	}
	// Seeking from the end must precede the input.
	spec := r.last(t)
	if !hasSubsequence(spec.Args, "-sseof", "-0.25", "-i", in) {
		t.Fatalf("end seek args: %v", spec.Args)
	}
}

func TestAudioSlice(t *testing.T) {
	tb, r := newTestToolbox()
	target := filepath.Join(t.TempDir(), "slice.mp3")

	if _, err := tb.AudioSlice(context.Background(), "/tmp/music.mp3", 12.5, 40, target); err != nil {
		t.Fatal(err)
	}
	spec := r.last(t)
	if !hasSubsequence(spec.Args, "-ss", "12.5", "-to", "40", "-i", "/tmp/music.mp3") {
		t.Fatalf("slice args: %v", spec.Args)
	}
	if !hasSubsequence(spec.Args, "-c:a", "copy") {
		t.Fatalf("slice should not re-encode: %v", spec.Args)
	}

	if _, err := tb.AudioSlice(context.Background(), "/tmp/music.mp3", 10, 10, target); err == nil {
		t.Fatal("expected error for empty slice")
	}
	if _, err := tb.AudioSlice(context.Background(), "/tmp/music.mp3", 10, 5, target); err == nil {
		t.Fatal("expected error for inverted slice")
	}
}

func TestMuxAudioOverVideo(t *testing.T) {
	tb, r := newTestToolbox()
	target := filepath.Join(t.TempDir(), "mux.mp4")

	if _, err := tb.MuxAudioOverVideo(context.Background(), "/tmp/v.mp4", "/tmp/a.mp3", target); err != nil {
		t.Fatal(err)
	}
	spec := r.last(t)
	for _, want := range [][]string{
		{"-i", "/tmp/v.mp4"},
		{"-i", "/tmp/a.mp3"},
		{"-map", "0:v:0"},
		{"-map", "1:a:0"},
		{"-c:v", "copy"},
	} {
		if !hasSubsequence(spec.Args, want...) {
			t.Errorf("args %v missing from %v", want, spec.Args)
		}
	}
	found := false
	for _, a := range spec.Args {
		if a == "-shortest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("-shortest missing: %v", spec.Args)
	}
}

func TestProbeDuration(t *testing.T) {
	tb, r := newTestToolbox()
	r.stdout = "12.345\n"

	sec, err := tb.ProbeDuration(context.Background(), "/tmp/v.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if sec != 12.345 {
		t.Fatalf("duration: got %v", sec)
	}
	spec := r.last(t)
	if spec.Path != "ffprobe" {
		t.Fatalf("binary: got %s", spec.Path)
	}
	if !hasSubsequence(spec.Args, "-show_entries", "format=duration") {
		t.Fatalf("probe args: %v", spec.Args)
	}

	r.stdout = "N/A\n"
	if _, err := tb.ProbeDuration(context.Background(), "/tmp/v.mp4"); err == nil {
		t.Fatal("expected parse error for N/A")
	}
}

func TestProbeDimensions(t *testing.T) {
	tb, r := newTestToolbox()
	r.stdout = "1920x1080\n"

	w, h, err := tb.ProbeDimensions(context.Background(), "/tmp/v.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if w != 1920 || h != 1080 {
		t.Fatalf("dimensions: got %dx%d", w, h)
	}
	if !hasSubsequence(r.last(t).Args, "-show_entries", "stream=width,height") {
		t.Fatalf("probe args: %v", r.last(t).Args)
	}

	r.stdout = "garbage"
	if _, _, err := tb.ProbeDimensions(context.Background(), "/tmp/v.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultsApplied(t *testing.T) {
	tb := New(Options{})
	if tb.ffmpeg != "ffmpeg" || tb.ffprobe != "ffprobe" {
		t.Fatalf("defaults: %s / %s", tb.ffmpeg, tb.ffprobe)
	}
	if tb.runner == nil {
		t.Fatal("runner not defaulted")
	}
}

func TestFmtFloatTrimsTrailingZeros(t *testing.T) {
	tests := map[float64]string{
		1:      "1",
		2.0:    "2",
		1.5:    "1.5",
		0.3333: "0.3333",
	}
	for in, want := range tests {
		if got := fmtFloat(in); got != want {
			t.Errorf("fmtFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
