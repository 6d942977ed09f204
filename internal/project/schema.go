// Package project defines the persisted per-project state document and the
// store that owns reading, validating, and writing it.
//
// project.json is the single source of truth for a project. Every component
// mutates an in-memory copy and commits it through Store.Save, which validates
// the full document before any byte is written.
package project

// Pipeline steps in execution order. "new" and "done" bracket the order but
// are not runnable steps.
const (
	StepNew      = "new"
	StepPlan     = "plan"
	StepGenerate = "generate"
	StepReview   = "review"
	StepRender   = "render"
	StepUpload   = "upload"
	StepDone     = "done"
)

// StepOrder is the fixed execution order of runnable pipeline steps.
var StepOrder = []string{StepPlan, StepGenerate, StepReview, StepRender, StepUpload}

// Track status values.
const (
	TrackOK     = "ok"
	TrackFailed = "failed"
)

// LastError is the classified failure record persisted on status updates.
type LastError struct {
	Step     string `json:"step"`
	Message  string `json:"message"`
	Stack    string `json:"stack"`
	At       string `json:"at"` // RFC 3339
	Kind     string `json:"kind,omitempty"`
	Provider string `json:"provider,omitempty"`
	Raw      string `json:"raw,omitempty"`
}

// Status tracks pipeline progress for resume decisions.
type Status struct {
	CurrentStep        string         `json:"current_step"`
	LastSuccessfulStep string         `json:"last_successful_step,omitempty"`
	LastError          *LastError     `json:"last_error,omitempty"`
	Attempts           map[string]int `json:"attempts,omitempty"` // step -> attempt count
}

// VocalsConfig controls whether generated tracks carry vocals.
type VocalsConfig struct {
	Enabled bool `json:"enabled"`
}

// LyricsConfig controls lyric sourcing when vocals are enabled.
type LyricsConfig struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"` // "gemini" | "manual"
}

// VideoConfig holds output video settings.
type VideoConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// UploadConfig holds YouTube upload settings.
type UploadConfig struct {
	Privacy         string `json:"privacy"` // "unlisted" | "private" | "public"
	CategoryID      string `json:"category_id"`
	MadeForKids     bool   `json:"made_for_kids"`
	DefaultLanguage string `json:"default_language"`
}

// PlanPrompt is one planned generation job. Each job yields two variants.
// JobIndex is a pointer so the migration step can tell "absent" apart from
// job zero in legacy documents.
type PlanPrompt struct {
	JobIndex      *int   `json:"job_index,omitempty"`
	Style         string `json:"style"`
	Title         string `json:"title"`
	Prompt        string `json:"prompt"`
	SeedHint      string `json:"seed_hint,omitempty"`
	VocalsEnabled bool   `json:"vocals_enabled"`
	LyricsText    string `json:"lyrics_text,omitempty"`

	// LegacyTrackIndex is accepted from old documents where each prompt was
	// a single track. Migrated to JobIndex on load, never written back.
	LegacyTrackIndex *int `json:"track_index,omitempty"`
}

// YouTubeMetadata is the planned video title/description/tags.
type YouTubeMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Plan is the output of the plan step.
type Plan struct {
	Prompts         []PlanPrompt     `json:"prompts"`
	YouTubeMetadata *YouTubeMetadata `json:"youtube_metadata,omitempty"`
}

// TrackError records why a track attempt failed. AttemptCount accumulates
// across retries of the same track index so callers can enforce caps.
type TrackError struct {
	Message      string `json:"message"`
	Raw          string `json:"raw,omitempty"`
	AttemptCount int    `json:"attempt_count"`
}

// QCIssue is a single quality-control finding on a track.
type QCIssue struct {
	Code    string   `json:"code"` // e.g. "too_short", "leading_silence", "missing_file"
	Message string   `json:"message"`
	Value   *float64 `json:"value,omitempty"`
}

// TrackQC holds quality-control results for one track.
type TrackQC struct {
	Passed   bool               `json:"passed"`
	Issues   []QCIssue          `json:"issues,omitempty"`
	Measured map[string]float64 `json:"measured,omitempty"`
}

// Track is the persisted record for one variant of one generation job.
// Track records are mutated in place by track index and never deleted.
type Track struct {
	TrackIndex      int         `json:"track_index"`
	Title           string      `json:"title,omitempty"`
	Style           string      `json:"style,omitempty"`
	Prompt          string      `json:"prompt"`
	Provider        string      `json:"provider"`
	JobID           string      `json:"job_id,omitempty"` // shared by both variants of a job
	JobIndex        *int        `json:"job_index,omitempty"`
	VariantIndex    *int        `json:"variant_index,omitempty"`
	AudioURL        string      `json:"audio_url,omitempty"` // kept for resume
	AudioPath       string      `json:"audio_path,omitempty"`
	DurationSeconds float64     `json:"duration_seconds"`
	Status          string      `json:"status"`
	Error           *TrackError `json:"error,omitempty"`
	QC              *TrackQC    `json:"qc,omitempty"`
}

// Review is the output of the review step.
type Review struct {
	QCReportJSONPath     string         `json:"qc_report_json_path,omitempty"`
	QCReportTextPath     string         `json:"qc_report_txt_path,omitempty"`
	ApprovedTrackIndices []int          `json:"approved_track_indices"`
	RejectedTrackIndices []int          `json:"rejected_track_indices"`
	QCSummary            map[string]int `json:"qc_summary,omitempty"`
}

// Render is the output of the render step.
type Render struct {
	BackgroundPath       string `json:"background_path,omitempty"`
	ThumbnailPath        string `json:"thumbnail_path,omitempty"`
	SelectedTrackIndices []int  `json:"selected_track_indices"`
	OutputMP4Path        string `json:"output_mp4_path,omitempty"`
	ChaptersPath         string `json:"chapters_path,omitempty"`
	DescriptionPath      string `json:"description_path,omitempty"`
}

// YouTube is the output of the upload step. A set VideoID means the video
// upload is complete and must never be repeated; ThumbnailUploaded may lag
// behind and be retried independently.
type YouTube struct {
	VideoID           string `json:"video_id,omitempty"`
	UploadedAt        string `json:"uploaded_at,omitempty"`
	Privacy           string `json:"privacy,omitempty"`
	Title             string `json:"title,omitempty"`
	ThumbnailUploaded bool   `json:"thumbnail_uploaded"`
	ThumbnailPath     string `json:"thumbnail_path,omitempty"`
}

// Project is the root aggregate persisted as project.json.
type Project struct {
	ProjectID     string       `json:"project_id"`
	CreatedAt     string       `json:"created_at"`
	Theme         string       `json:"theme"`
	ChannelID     string       `json:"channel_id,omitempty"`
	Intent        string       `json:"intent,omitempty"`
	TargetMinutes int          `json:"target_minutes"`
	TrackCount    int          `json:"track_count"`
	Vocals        VocalsConfig `json:"vocals"`
	Lyrics        LyricsConfig `json:"lyrics"`
	Video         VideoConfig  `json:"video"`
	Upload        UploadConfig `json:"upload"`
	Status        Status       `json:"status"`
	Plan          *Plan        `json:"plan,omitempty"`
	Tracks        []Track      `json:"tracks"`
	Review        *Review      `json:"review,omitempty"`
	Render        *Render      `json:"render,omitempty"`
	YouTube       *YouTube     `json:"youtube,omitempty"`
}

// TrackByIndex returns the track with the given track index, or nil.
func (p *Project) TrackByIndex(idx int) *Track {
	for i := range p.Tracks {
		if p.Tracks[i].TrackIndex == idx {
			return &p.Tracks[i]
		}
	}
	return nil
}

// TrackByJobVariant returns the track for (jobIndex, variantIndex), or nil.
func (p *Project) TrackByJobVariant(jobIndex, variantIndex int) *Track {
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if t.JobIndex != nil && t.VariantIndex != nil &&
			*t.JobIndex == jobIndex && *t.VariantIndex == variantIndex {
			return t
		}
	}
	return nil
}

// PutTrack replaces the track with the same track index, or appends.
func (p *Project) PutTrack(t Track) {
	for i := range p.Tracks {
		if p.Tracks[i].TrackIndex == t.TrackIndex {
			p.Tracks[i] = t
			return
		}
	}
	p.Tracks = append(p.Tracks, t)
}

// StepIndex returns the position of step in StepOrder, or -1.
func StepIndex(step string) int {
	for i, s := range StepOrder {
		if s == step {
			return i
		}
	}
	return -1
}

func intPtr(v int) *int { return &v }

// IntPtr returns a pointer to v. Convenience for the optional index fields.
func IntPtr(v int) *int { return intPtr(v) }
