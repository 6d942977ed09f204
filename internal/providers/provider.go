// Package providers holds the external collaborator contracts (LLM planner,
// music generation, video upload) and their HTTP implementations. Steps
// depend only on the interfaces so tests can substitute fakes.
package providers

import "context"

// Job states reported by the music provider.
const (
	JobPending  = "pending"
	JobComplete = "complete"
	JobFailed   = "failed"
)

// PlanRequest describes what the planner should produce.
type PlanRequest struct {
	Theme         string
	JobCount      int // each job yields two variants
	TargetMinutes int
	Vocals        bool
	Lyrics        bool
	StyleGuidance string
	EnergyLevel   string
	BannedTerms   []string
}

// PlannedJob is one generation prompt produced by the planner.
type PlannedJob struct {
	Style  string
	Title  string
	Prompt string
	Lyrics string
}

// PlanResult is the planner output: prompts plus video metadata.
type PlanResult struct {
	Jobs        []PlannedJob
	Title       string
	Description string
	Tags        []string
}

// Planner generates track prompts and video metadata from a theme.
type Planner interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*PlanResult, error)
}

// JobRequest is one music generation submission.
type JobRequest struct {
	Style        string
	Title        string
	Lyrics       string // exact lyrics when Instrumental is false
	Instrumental bool
}

// Variant is one audio result of a generation job.
type Variant struct {
	AudioURL        string
	StreamAudioURL  string
	DurationSeconds float64
}

// JobStatus is a poll result. Raw carries the provider response body for
// diagnostics only.
type JobStatus struct {
	State        string // JobPending | JobComplete | JobFailed
	Variants     []Variant
	ErrorMessage string
	Raw          string
}

// Music submits generation jobs, polls them, and downloads results.
// Submission is a paid, non-idempotent action; callers must persist the
// returned task ID before any further provider interaction.
type Music interface {
	SubmitJob(ctx context.Context, req JobRequest) (taskID string, err error)
	PollJob(ctx context.Context, taskID string) (*JobStatus, error)
	DownloadAudio(ctx context.Context, audioURL, destPath string) error
}

// UploadRequest describes a video upload.
type UploadRequest struct {
	VideoPath       string
	Title           string
	Description     string
	Tags            []string
	CategoryID      string
	Privacy         string
	DefaultLanguage string
	MadeForKids     bool
}

// VideoUploader uploads videos and attaches thumbnails. Thumbnail attach is
// idempotent at the provider; video insert is not.
type VideoUploader interface {
	UploadVideo(ctx context.Context, req UploadRequest) (videoID string, err error)
	UploadThumbnail(ctx context.Context, videoID, thumbnailPath string) error
}
