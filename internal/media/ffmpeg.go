package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Per-invocation timeouts. Long enough for multi-hour compilations on slow
// disks, short enough that a wedged subprocess cannot stall a batch forever.
const (
	probeTimeout  = 15 * time.Second
	filterTimeout = 60 * time.Second
	encodeTimeout = 45 * time.Minute
)

// FFmpeg is the exec-based Toolchain implementation. A zero EncodeTimeout
// falls back to the package default.
type FFmpeg struct {
	EncodeTimeout time.Duration
}

var _ Toolchain = (*FFmpeg)(nil)

func (f FFmpeg) encodeDeadline() time.Duration {
	if f.EncodeTimeout > 0 {
		return f.EncodeTimeout
	}
	return encodeTimeout
}

// DurationSeconds probes duration via ffprobe.
func (FFmpeg) DurationSeconds(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse output: %w", path, err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe %s: no duration in output", path)
	}
	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: invalid duration %q", path, probe.Format.Duration)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("ffprobe %s: non-positive duration %f", path, dur)
	}
	return dur, nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// LeadingSilenceSeconds runs silencedetect on the first five seconds and
// reports leading silence length, or 0 when the track starts with audio.
func (FFmpeg) LeadingSilenceSeconds(ctx context.Context, path string) (float64, error) {
	const analyzeSeconds = 5.0

	ctx, cancel := context.WithTimeout(ctx, filterTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-af", "silencedetect=noise=-50dB:d=0.3",
		"-t", fmt.Sprintf("%.0f", analyzeSeconds),
		"-f", "null", "-",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	// silencedetect writes to stderr; a nonzero exit with parseable output
	// still yields a usable measurement.
	_ = cmd.Run()

	out := stderr.String()
	startMatch := silenceStartRe.FindStringSubmatch(out)
	if startMatch == nil {
		return 0, nil
	}
	start, err := strconv.ParseFloat(startMatch[1], 64)
	if err != nil || start >= 0.5 {
		return 0, nil
	}
	if endMatch := silenceEndRe.FindStringSubmatch(out); endMatch != nil {
		end, err := strconv.ParseFloat(endMatch[1], 64)
		if err == nil {
			return end - start, nil
		}
	}
	return analyzeSeconds - start, nil
}

// ConcatAudio joins inputs via the concat demuxer, re-encoding to a common
// format so mixed source codecs concatenate cleanly.
func (f FFmpeg) ConcatAudio(ctx context.Context, inputs []string, outPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("ffmpeg concat: no input files")
	}

	listPath := outPath + ".concat.txt"
	var lines []string
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("ffmpeg concat: %w", err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	ctx, cancel := context.WithTimeout(ctx, f.encodeDeadline())
	defer cancel()

	return run(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
}

// NormalizeLoudness applies single-pass EBU R128 loudness normalization.
func (f FFmpeg) NormalizeLoudness(ctx context.Context, inPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.encodeDeadline())
	defer cancel()

	return run(ctx, "ffmpeg", "-y",
		"-i", inPath,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
}

// MuxStillVideo loops a still image over the audio into an H.264 MP4.
func (f FFmpeg) MuxStillVideo(ctx context.Context, imagePath, audioPath, outPath string, params VideoParams) error {
	ctx, cancel := context.WithTimeout(ctx, f.encodeDeadline())
	defer cancel()

	scale := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		params.Width, params.Height, params.Width, params.Height)

	return run(ctx, "ffmpeg", "-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-vf", scale,
		"-r", strconv.Itoa(params.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-shortest",
		outPath,
	)
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := stderr.String()
		if len(detail) > 2000 {
			detail = detail[len(detail)-2000:]
		}
		return fmt.Errorf("%s failed: %w: %s", name, err, detail)
	}
	return nil
}
