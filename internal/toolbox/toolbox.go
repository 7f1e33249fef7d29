// Package toolbox wraps the local media tool (ffmpeg/ffprobe) behind
// synchronous operations: concatenation, re-encoding, frame and audio
// extraction, muxing, and duration probes. All invocations go through
// an injectable CmdRunner so tests can fake the tool.
package toolbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"promptreel/internal/util"
)

// Options configure a Toolbox.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Verbose     bool
	Runner      util.CmdRunner
}

// Toolbox executes local media operations.
type Toolbox struct {
	ffmpeg  string
	ffprobe string
	verbose bool
	runner  util.CmdRunner
}

// New constructs a Toolbox, applying defaults for missing components.
func New(opts Options) *Toolbox {
	ffmpeg := opts.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := opts.FFprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	return &Toolbox{ffmpeg: ffmpeg, ffprobe: ffprobe, verbose: opts.Verbose, runner: runner}
}

// WritePlaylist writes a concat playlist file, one `file <path>` line
// per clip, in declaration order.
func WritePlaylist(path string, clips []string) error {
	if len(clips) == 0 {
		return errors.New("playlist: no clips")
	}
	var b strings.Builder
	for _, c := range clips {
		b.WriteString("file ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Concatenate joins the playlist's clips into targetName. A rate
// multiplier other than 1.0 re-times the video to fit the expected
// total duration.
func (t *Toolbox) Concatenate(ctx context.Context, playlistPath, targetName string, rateMultiplier float64) (string, error) {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", playlistPath,
	}
	if rateMultiplier > 0 && math.Abs(rateMultiplier-1.0) > 1e-9 {
		args = append(args,
			"-vf", fmt.Sprintf("setpts=PTS/%s", fmtFloat(rateMultiplier)),
			"-af", fmt.Sprintf("atempo=%s", fmtFloat(rateMultiplier)),
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, targetName)
	return t.runFFmpeg(ctx, args, targetName, "concatenate")
}

// Reencode normalizes input into the uniform codec/container.
func (t *Toolbox) Reencode(ctx context.Context, inputPath, targetName string) (string, error) {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		targetName,
	}
	return t.runFFmpeg(ctx, args, targetName, "reencode")
}

// FirstFrame extracts the first frame of a clip as an image.
func (t *Toolbox) FirstFrame(ctx context.Context, inputPath string) (string, error) {
	out := frameName(inputPath, "first")
	args := []string{
		"-y",
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	}
	return t.runFFmpeg(ctx, args, out, "first frame")
}

// LastFrame extracts the final frame of a clip as an image.
func (t *Toolbox) LastFrame(ctx context.Context, inputPath string) (string, error) {
	out := frameName(inputPath, "last")
	args := []string{
		"-y",
		"-sseof", "-0.25",
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-update", "1",
		out,
	}
	return t.runFFmpeg(ctx, args, out, "last frame")
}

// AudioSlice extracts [startS, endS) of an audio file into targetName.
func (t *Toolbox) AudioSlice(ctx context.Context, inputAudio string, startS, endS float64, targetName string) (string, error) {
	if endS <= startS {
		return "", fmt.Errorf("audio slice: end %.2f not after start %.2f", endS, startS)
	}
	args := []string{
		"-y",
		"-ss", fmtFloat(startS),
		"-to", fmtFloat(endS),
		"-i", inputAudio,
		"-c:a", "copy",
		targetName,
	}
	return t.runFFmpeg(ctx, args, targetName, "audio slice")
}

// MuxAudioOverVideo lays an audio track over a video stream. The video
// stream is copied; output stops at the shorter of the two.
func (t *Toolbox) MuxAudioOverVideo(ctx context.Context, videoPath, audioPath, targetName string) (string, error) {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		targetName,
	}
	return t.runFFmpeg(ctx, args, targetName, "mux audio")
}

// ProbeDuration returns the media duration in seconds.
func (t *Toolbox) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	res, err := t.runner.Run(ctx, util.CmdSpec{
		Path: t.ffprobe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			inputPath,
		},
		Verbose: t.verbose,
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(res.Stderr))
	}
	s := strings.TrimSpace(string(res.Stdout))
	sec, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, perr)
	}
	return sec, nil
}

// ProbeDimensions returns the width and height of the first video
// stream.
func (t *Toolbox) ProbeDimensions(ctx context.Context, inputPath string) (int, int, error) {
	res, err := t.runner.Run(ctx, util.CmdSpec{
		Path: t.ffprobe,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "stream=width,height",
			"-of", "csv=s=x:p=0",
			inputPath,
		},
		Verbose: t.verbose,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions: %w\n%s", err, string(res.Stderr))
	}
	parts := strings.Split(strings.TrimSpace(string(res.Stdout)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parse dimensions %q", strings.TrimSpace(string(res.Stdout)))
	}
	w, werr := strconv.Atoi(parts[0])
	h, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("parse dimensions %q", strings.TrimSpace(string(res.Stdout)))
	}
	return w, h, nil
}

func (t *Toolbox) runFFmpeg(ctx context.Context, args []string, target, op string) (string, error) {
	if err := util.EnsureDir(filepath.Dir(target)); err != nil {
		return "", fmt.Errorf("%s: ensure output dir: %w", op, err)
	}
	res, err := t.runner.Run(ctx, util.CmdSpec{
		Path:    t.ffmpeg,
		Args:    args,
		Verbose: t.verbose,
	})
	if err != nil {
		// Delete incomplete file
		_ = util.RemoveIfExists(target)
		return "", fmt.Errorf("ffmpeg %s: %w\n%s", op, err, tail(res.Stderr))
	}
	return target, nil
}

func frameName(inputPath, which string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + "_" + which + ".jpg"
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func tail(b []byte) string {
	const keep = 2048
	if len(b) <= keep {
		return string(b)
	}
	return "..." + string(b[len(b)-keep:])
}
