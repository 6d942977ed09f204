// Package runner drives pipeline steps sequentially for a project and runs
// batches of projects with per-project failure isolation.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/retry"
	"github.com/JustinDumasCarr/yt-factory/internal/steps"
)

// Runner executes step ranges against a step environment.
type Runner struct {
	Env *steps.Env
}

// Options controls a run_project invocation.
type Options struct {
	FromStep       string // explicit start; empty infers from last_successful_step
	UseRetries     bool   // wrap plan/generate/upload in transient-error backoff
	MaxStepRetries int    // per-step retry cap when UseRetries is set, 0 uses the default
}

// retriableSteps are the steps worth replaying in batch mode. Review and
// render are local and deterministic; retrying them hides real bugs.
var retriableSteps = map[string]bool{
	project.StepPlan:     true,
	project.StepGenerate: true,
	project.StepUpload:   true,
}

// RunProject runs the contiguous step slice ending at toStep. The start is
// opts.FromStep, or the step after last_successful_step, or the first step.
// If the start is already past toStep the call is a no-op.
func (r *Runner) RunProject(ctx context.Context, projectID, toStep string, opts Options) error {
	toIdx := project.StepIndex(toStep)
	if toIdx < 0 {
		return fmt.Errorf("invalid target step %q, must be one of %v", toStep, project.StepOrder)
	}

	p, err := r.Env.Store.Load(projectID)
	if err != nil {
		return err
	}

	startIdx := 0
	if opts.FromStep != "" {
		startIdx = project.StepIndex(opts.FromStep)
		if startIdx < 0 {
			return fmt.Errorf("invalid start step %q, must be one of %v", opts.FromStep, project.StepOrder)
		}
	} else if last := p.Status.LastSuccessfulStep; last != "" {
		if lastIdx := project.StepIndex(last); lastIdx >= 0 {
			startIdx = lastIdx + 1
		}
	}
	if startIdx > toIdx {
		logging.Infof("Project %s is already at or past %s, nothing to do", projectID, toStep)
		return nil
	}

	for _, step := range project.StepOrder[startIdx : toIdx+1] {
		if err := r.runStep(ctx, projectID, step, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, projectID, step string, opts Options) error {
	fn := func() error {
		switch step {
		case project.StepPlan:
			return r.Env.Plan(ctx, projectID)
		case project.StepGenerate:
			return r.Env.Generate(ctx, projectID)
		case project.StepReview:
			return r.Env.Review(ctx, projectID)
		case project.StepRender:
			return r.Env.Render(ctx, projectID)
		case project.StepUpload:
			return r.runUploadWithSkip(ctx, projectID)
		default:
			return fmt.Errorf("unknown step %q", step)
		}
	}

	if opts.UseRetries && retriableSteps[step] {
		return retry.Do(ctx, retry.Config{
			MaxRetries: opts.MaxStepRetries,
			OnRetry: func(attempt int, delay time.Duration, err error) {
				logging.Warnf("Step %s failed (attempt %d), retrying in %s: %v", step, attempt+1, delay, err)
			},
		}, fn)
	}
	return fn()
}

// runUploadWithSkip refuses to re-run upload for an already-uploaded project.
// The insert is not idempotent at the provider, so a persisted video_id must
// never be re-submitted even when an operator forces the step.
func (r *Runner) runUploadWithSkip(ctx context.Context, projectID string) error {
	p, err := r.Env.Store.Load(projectID)
	if err != nil {
		return err
	}
	if p.YouTube != nil && p.YouTube.VideoID != "" {
		log, err := logging.NewStepLogger(r.Env.Store.Dir(projectID), project.StepUpload)
		if err != nil {
			return err
		}
		defer log.Close()
		log.Info("Video already uploaded as %s (https://youtu.be/%s), skipping upload step",
			p.YouTube.VideoID, p.YouTube.VideoID)
		return nil
	}
	return r.Env.Upload(ctx, projectID)
}

// ModeToStep maps a batch/queue mode name to its target step.
var ModeToStep = map[string]string{
	"full":     project.StepUpload,
	"upload":   project.StepUpload,
	"render":   project.StepRender,
	"review":   project.StepReview,
	"generate": project.StepGenerate,
	"plan":     project.StepPlan,
}

// ProjectOutcome records one project's result within a batch.
type ProjectOutcome struct {
	ProjectID          string `json:"project_id,omitempty"`
	ChannelID          string `json:"channel_id"`
	Theme              string `json:"theme"`
	StartedAt          string `json:"started_at,omitempty"`
	CompletedAt        string `json:"completed_at,omitempty"`
	LastSuccessfulStep string `json:"last_successful_step,omitempty"`
	FailedStep         string `json:"failed_step,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	YouTubeVideoID     string `json:"youtube_video_id,omitempty"`
}

// BatchSummary is the write-once result file for a batch run.
type BatchSummary struct {
	BatchID       string           `json:"batch_id"`
	ChannelID     string           `json:"channel_id"`
	Mode          string           `json:"mode"`
	TargetStep    string           `json:"target_step"`
	CreatedAt     string           `json:"created_at"`
	CompletedAt   string           `json:"completed_at"`
	TotalProjects int              `json:"total_projects"`
	Successful    int              `json:"successful"`
	Failed        int              `json:"failed"`
	Projects      []ProjectOutcome `json:"projects"`
}

// RunBatch creates count projects for the channel and runs each to the
// mode-mapped target step. One project's failure never stops the batch; every
// outcome lands in the summary file under the projects root.
func (r *Runner) RunBatch(ctx context.Context, channelID string, count int, mode, baseTheme, batchID string) (*BatchSummary, error) {
	targetStep, ok := ModeToStep[mode]
	if !ok {
		return nil, fmt.Errorf("invalid mode %q, must be one of full, upload, render, review, generate, plan", mode)
	}
	if batchID == "" {
		batchID = time.Now().Format("20060102_150405") + "_batch"
	}

	summary := &BatchSummary{
		BatchID:       batchID,
		ChannelID:     channelID,
		Mode:          mode,
		TargetStep:    targetStep,
		CreatedAt:     time.Now().Format(time.RFC3339),
		TotalProjects: count,
	}

	for i := 1; i <= count; i++ {
		theme := baseTheme
		if count > 1 {
			theme = fmt.Sprintf("%s %d", baseTheme, i)
		}
		outcome := r.runOne(ctx, channelID, theme, targetStep)
		if outcome.FailedStep == "" {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.Projects = append(summary.Projects, outcome)
	}

	summary.CompletedAt = time.Now().Format(time.RFC3339)
	if err := r.writeSummary(batchID, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// runOne isolates a single project's lifecycle: any failure is captured into
// the outcome instead of propagating.
func (r *Runner) runOne(ctx context.Context, channelID, theme, targetStep string) ProjectOutcome {
	outcome := ProjectOutcome{
		ChannelID: channelID,
		Theme:     theme,
		StartedAt: time.Now().Format(time.RFC3339),
	}

	projectID, err := r.Env.CreateProject(steps.NewProjectParams{
		Theme:     theme,
		ChannelID: channelID,
	})
	if err != nil {
		outcome.FailedStep = project.StepNew
		outcome.ErrorMessage = err.Error()
		outcome.CompletedAt = time.Now().Format(time.RFC3339)
		return outcome
	}
	outcome.ProjectID = projectID

	runErr := r.RunProject(ctx, projectID, targetStep, Options{UseRetries: true})
	outcome.CompletedAt = time.Now().Format(time.RFC3339)

	p, loadErr := r.Env.Store.Load(projectID)
	if loadErr != nil {
		if runErr != nil {
			outcome.FailedStep = "unknown"
			outcome.ErrorMessage = runErr.Error()
		}
		return outcome
	}

	outcome.LastSuccessfulStep = p.Status.LastSuccessfulStep
	if p.YouTube != nil {
		outcome.YouTubeVideoID = p.YouTube.VideoID
	}
	if runErr != nil {
		outcome.FailedStep = p.Status.CurrentStep
		if p.Status.LastError != nil {
			outcome.ErrorMessage = p.Status.LastError.Message
		} else {
			outcome.ErrorMessage = runErr.Error()
		}
	}
	return outcome
}

func (r *Runner) writeSummary(batchID string, summary *BatchSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch summary: %w", err)
	}
	// The projects root may not exist yet when every item failed before
	// project creation.
	if err := os.MkdirAll(r.Env.Store.Root, 0o755); err != nil {
		return fmt.Errorf("write batch summary: %w", err)
	}
	path := filepath.Join(r.Env.Store.Root, batchID+"_summary.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write batch summary: %w", err)
	}
	logging.Infof("Batch summary written: %s", path)
	return nil
}
