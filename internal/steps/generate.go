package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
)

// Generate runs the music generation step. Jobs are processed in plan order;
// each yields two variants persisted as tracks. Per-variant and per-job
// failures never abort the step — only setup failures (missing plan,
// provider construction) do.
func (e *Env) Generate(ctx context.Context, projectID string) error {
	return e.runStep(ctx, projectID, project.StepGenerate, e.generateBody)
}

// genJob is the working context for one generation job: the prompt plus the
// two track indices its variants own. Track indices are assigned from a
// running counter in plan order and never change across retries.
type genJob struct {
	prompt   project.PlanPrompt
	jobIndex int
	trackIdx [2]int
	// attempt counts for this processing cycle, one per variant, computed
	// before any record is written so repeated failures within the cycle
	// don't double-increment.
	attempt [2]int
}

func (e *Env) generateBody(ctx context.Context, p *project.Project, log *logging.StepLogger) error {
	if p.Plan == nil || len(p.Plan.Prompts) == 0 {
		return fmt.Errorf("validation: project plan not found, run the plan step first")
	}

	music, err := e.NewMusic(ctx)
	if err != nil {
		return fmt.Errorf("initialize music provider: %w", err)
	}

	log.Info("Generating %d jobs (%d tracks)", len(p.Plan.Prompts), 2*len(p.Plan.Prompts))

	successful, failed := 0, 0
	nextTrackIndex := 0

	for _, prompt := range p.Plan.Prompts {
		job := genJob{
			prompt:   prompt,
			jobIndex: *prompt.JobIndex,
			trackIdx: [2]int{nextTrackIndex, nextTrackIndex + 1},
		}
		nextTrackIndex += 2

		s, f := e.processJob(ctx, p, log, music, job)
		successful += s
		failed += f
	}

	log.Info("Generate step completed: %d successful, %d failed", successful, failed)
	return nil
}

// processJob drives one job through its state machine:
// unsubmitted -> submitted (task id persisted) -> complete | failed.
// Returns (successful, failed) variant counts.
func (e *Env) processJob(ctx context.Context, p *project.Project, log *logging.StepLogger, music providers.Music, job genJob) (int, int) {
	// Resume short-circuit: both variants done and their audio on disk.
	if e.variantDone(p, job, 0) && e.variantDone(p, job, 1) {
		log.Info("Job %d already complete (both variants exist), skipping", job.jobIndex)
		return 2, 0
	}

	for v := 0; v < 2; v++ {
		job.attempt[v] = 1
		if existing := p.TrackByIndex(job.trackIdx[v]); existing != nil && existing.Error != nil {
			job.attempt[v] = existing.Error.AttemptCount + 1
		}
	}

	// Attempt cap: a job whose unfinished variants have all exhausted their
	// attempts is terminally failed, not retried forever.
	if e.attemptsExhausted(p, job) {
		log.Warn("Job %d skipped: attempt cap (%d) reached for its remaining variants", job.jobIndex, e.MaxTrackAttempts)
		return 0, 2
	}

	// Reuse an in-flight task id from either variant record. Submission is
	// paid and non-idempotent, so a known id is never resubmitted.
	taskID := ""
	for v := 0; v < 2; v++ {
		if t := p.TrackByJobVariant(job.jobIndex, v); t != nil && t.JobID != "" {
			taskID = t.JobID
			log.Info("Resuming job %d with existing task id %s", job.jobIndex, taskID)
			break
		}
	}

	if taskID == "" {
		var err error
		taskID, err = e.submitJob(ctx, p, log, music, job)
		if err != nil {
			return e.failJob(p, log, job, "", fmt.Sprintf("submit failed: %v", err), "")
		}
	}

	status, err := e.pollJob(ctx, log, music, job, taskID)
	if err != nil {
		return e.failJob(p, log, job, taskID, err.Error(), "")
	}
	if status.State == providers.JobFailed {
		msg := status.ErrorMessage
		if msg == "" {
			msg = "generation failed with no error detail"
		}
		log.Error("Job %d generation failed: %s", job.jobIndex, msg)
		return e.failJob(p, log, job, taskID, msg, status.Raw)
	}
	if len(status.Variants) == 0 {
		return e.failJob(p, log, job, taskID, "no tracks returned from suno", status.Raw)
	}

	successful, failed := 0, 0
	for v := 0; v < 2; v++ {
		if e.variantDone(p, job, v) {
			log.Info("Variant %d (track %d) already exists, skipping", v, job.trackIdx[v])
			successful++
			continue
		}
		if err := e.completeVariant(ctx, p, log, music, job, taskID, status, v); err != nil {
			e.writeFailedTrack(p, job, v, taskID, err.Error(), status.Raw)
			log.Error("Track %d: %v", job.trackIdx[v], err)
			failed++
		} else {
			successful++
		}
		if err := e.Store.Save(p); err != nil {
			log.Error("persist after variant %d of job %d: %v", v, job.jobIndex, err)
		}
	}
	return successful, failed
}

// variantDone reports whether a variant track is recorded ok and its audio
// file still exists. A missing file makes the record untrusted, forcing a
// re-download on this pass.
func (e *Env) variantDone(p *project.Project, job genJob, variant int) bool {
	t := p.TrackByJobVariant(job.jobIndex, variant)
	if t == nil || t.Status != project.TrackOK || t.AudioPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(e.Store.Dir(p.ProjectID), t.AudioPath))
	return err == nil
}

// attemptsExhausted reports whether every not-yet-complete variant of the
// job already carries attempt_count at or above the cap.
func (e *Env) attemptsExhausted(p *project.Project, job genJob) bool {
	maxAttempts := e.MaxTrackAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	exhausted := true
	for v := 0; v < 2; v++ {
		if e.variantDone(p, job, v) {
			continue
		}
		t := p.TrackByIndex(job.trackIdx[v])
		if t == nil || t.Error == nil || t.Error.AttemptCount < maxAttempts {
			exhausted = false
		}
	}
	return exhausted
}

// submitJob submits a new generation request and immediately persists the
// task id on both variant placeholder records, so a crash after submission
// cannot cause a duplicate submission on restart.
func (e *Env) submitJob(ctx context.Context, p *project.Project, log *logging.StepLogger, music providers.Music, job genJob) (string, error) {
	log.Info("Submitting job %d: %s (%s)", job.jobIndex, job.prompt.Title, job.prompt.Style)

	req := providers.JobRequest{
		Style:        job.prompt.Style,
		Title:        job.prompt.Title,
		Instrumental: !job.prompt.VocalsEnabled,
	}
	if job.prompt.VocalsEnabled {
		req.Lyrics = job.prompt.LyricsText
	}

	taskID, err := music.SubmitJob(ctx, req)
	if err != nil {
		return "", err
	}
	log.Info("Submitted job %d, task id %s", job.jobIndex, taskID)

	for v := 0; v < 2; v++ {
		if e.variantDone(p, job, v) {
			continue
		}
		e.writeFailedTrack(p, job, v, taskID, "job submitted, awaiting generation result", "")
	}
	if err := e.Store.Save(p); err != nil {
		return "", fmt.Errorf("persist task id for job %d: %w", job.jobIndex, err)
	}
	return taskID, nil
}

// pollJob polls until the provider reports complete or failed, with bounded
// exponential backoff and a hard wall-clock timeout.
func (e *Env) pollJob(ctx context.Context, log *logging.StepLogger, music providers.Music, job genJob, taskID string) (*providers.JobStatus, error) {
	log.Info("Polling job %d (task %s)", job.jobIndex, taskID)

	deadline := time.Now().Add(e.PollTimeout)
	delay := e.PollInitialDelay

	for {
		status, err := music.PollJob(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if status.State != providers.JobPending {
			return status, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("generation timeout after %s for task %s", e.PollTimeout, taskID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
		if delay > e.PollMaxDelay {
			delay = e.PollMaxDelay
		}
	}
}

// completeVariant downloads one variant's audio and probes its duration.
// An untrustworthy duration is a hard failure for the variant, because the
// render selection math depends on it.
func (e *Env) completeVariant(ctx context.Context, p *project.Project, log *logging.StepLogger, music providers.Music, job genJob, taskID string, status *providers.JobStatus, variant int) error {
	trackIndex := job.trackIdx[variant]

	if variant >= len(status.Variants) {
		return fmt.Errorf("variant %d not present in provider response (%d variants)", variant, len(status.Variants))
	}
	data := status.Variants[variant]

	audioURL := strings.TrimSpace(data.AudioURL)
	if audioURL == "" {
		audioURL = strings.TrimSpace(data.StreamAudioURL)
	}
	if audioURL == "" {
		return fmt.Errorf("no usable audio URL in variant data")
	}

	relPath := filepath.Join("tracks", fmt.Sprintf("track_%02d%s", trackIndex, audioExt(audioURL)))
	absPath := filepath.Join(e.Store.Dir(p.ProjectID), relPath)

	log.Info("Downloading variant %d (track %d) to %s", variant, trackIndex, relPath)
	if err := music.DownloadAudio(ctx, audioURL, absPath); err != nil {
		return fmt.Errorf("download audio: %w", err)
	}

	duration, err := e.Media.DurationSeconds(ctx, absPath)
	if err != nil {
		log.Warn("ffprobe failed for track %d: %v, falling back to provider duration", trackIndex, err)
		duration = data.DurationSeconds
	}
	if duration <= 0 {
		return fmt.Errorf("could not determine duration (ffprobe failed and provider duration unavailable)")
	}

	p.PutTrack(project.Track{
		TrackIndex:      trackIndex,
		Title:           variantTitle(job.prompt.Title, variant),
		Style:           job.prompt.Style,
		Prompt:          job.prompt.Prompt,
		Provider:        "suno",
		JobID:           taskID,
		JobIndex:        project.IntPtr(job.jobIndex),
		VariantIndex:    project.IntPtr(variant),
		AudioURL:        audioURL,
		AudioPath:       relPath,
		DurationSeconds: duration,
		Status:          project.TrackOK,
	})

	log.Info("Variant %d (track %d) completed: %s (%.2fs)", variant, trackIndex, relPath, duration)
	return nil
}

// failJob records both variants as failed and persists. Used for job-level
// failures (submit, poll, provider-reported failure, timeout).
func (e *Env) failJob(p *project.Project, log *logging.StepLogger, job genJob, taskID, message, raw string) (int, int) {
	successful, failed := 0, 0
	for v := 0; v < 2; v++ {
		if e.variantDone(p, job, v) {
			successful++
			continue
		}
		e.writeFailedTrack(p, job, v, taskID, message, raw)
		failed++
	}
	if err := e.Store.Save(p); err != nil {
		log.Error("persist failed job %d: %v", job.jobIndex, err)
	}
	return successful, failed
}

// writeFailedTrack upserts a failed track record for one variant, carrying
// this cycle's attempt count.
func (e *Env) writeFailedTrack(p *project.Project, job genJob, variant int, taskID, message, raw string) {
	p.PutTrack(project.Track{
		TrackIndex:   job.trackIdx[variant],
		Title:        variantTitle(job.prompt.Title, variant),
		Style:        job.prompt.Style,
		Prompt:       job.prompt.Prompt,
		Provider:     "suno",
		JobID:        taskID,
		JobIndex:     project.IntPtr(job.jobIndex),
		VariantIndex: project.IntPtr(variant),
		Status:       project.TrackFailed,
		Error: &project.TrackError{
			Message:      message,
			Raw:          raw,
			AttemptCount: job.attempt[variant],
		},
	})
}

func variantTitle(base string, variant int) string {
	if variant == 0 {
		return base + " I"
	}
	return base + " II"
}

func audioExt(audioURL string) string {
	base := audioURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if ext := filepath.Ext(filepath.Base(base)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".mp3"
}
