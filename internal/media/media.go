// Package media wraps the ffmpeg/ffprobe toolchain. All invocations go
// through exec.CommandContext with explicit timeouts so the pipeline never
// blocks on a dead subprocess.
package media

import "context"

// VideoParams are the output settings for muxed video.
type VideoParams struct {
	Width  int
	Height int
	FPS    int
}

// Toolchain is the media toolchain contract consumed by the review and
// render steps. Tests substitute a fake.
type Toolchain interface {
	// DurationSeconds probes the media duration.
	DurationSeconds(ctx context.Context, path string) (float64, error)
	// LeadingSilenceSeconds measures silence at the head of the file,
	// returning 0 when none is detected.
	LeadingSilenceSeconds(ctx context.Context, path string) (float64, error)
	// ConcatAudio joins the inputs, in order, into a single audio file.
	ConcatAudio(ctx context.Context, inputs []string, outPath string) error
	// NormalizeLoudness applies loudness normalization.
	NormalizeLoudness(ctx context.Context, inPath, outPath string) error
	// MuxStillVideo combines a still image with an audio file into an MP4.
	MuxStillVideo(ctx context.Context, imagePath, audioPath, outPath string, params VideoParams) error
}
