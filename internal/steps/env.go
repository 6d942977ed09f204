// Package steps implements the pipeline steps (new, plan, generate, review,
// render, upload). Each step is idempotent: it decides, from persisted state
// plus on-disk artifacts, what work remains, and persists progress after
// every unit of work so a crash loses at most one unit.
package steps

import (
	"context"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/media"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
)

// Env carries every dependency a step needs. Providers are constructed
// lazily inside the step that uses them, so a provider auth failure surfaces
// as that step's setup failure, not at process start.
type Env struct {
	Store    *project.Store
	Channels *channel.Registry
	Media    media.Toolchain

	NewPlanner  func(ctx context.Context) (providers.Planner, error)
	NewMusic    func(ctx context.Context) (providers.Music, error)
	NewUploader func(ctx context.Context) (providers.VideoUploader, error)

	// Generate step tuning.
	MaxTrackAttempts int           // terminal-skip cap per track, default 2
	PollInitialDelay time.Duration // default 5s
	PollMaxDelay     time.Duration // default 30s
	PollTimeout      time.Duration // wall-clock cap per job, default 20m
}

// NewEnv wires the production environment: real providers and the exec-based
// media toolchain.
func NewEnv(store *project.Store, channels *channel.Registry) *Env {
	return &Env{
		Store:    store,
		Channels: channels,
		Media:    media.FFmpeg{},
		NewPlanner: func(ctx context.Context) (providers.Planner, error) {
			return providers.NewGeminiClient()
		},
		NewMusic: func(ctx context.Context) (providers.Music, error) {
			return providers.NewSunoClient()
		},
		NewUploader: func(ctx context.Context) (providers.VideoUploader, error) {
			return providers.NewYouTubeClient(ctx)
		},
		MaxTrackAttempts: 2,
		PollInitialDelay: 5 * time.Second,
		PollMaxDelay:     30 * time.Second,
		PollTimeout:      20 * time.Minute,
	}
}

// runStep wraps a step body with the shared lifecycle: load the document,
// mark the step current, run the body, then persist the outcome through the
// status tracker. Failures are persisted before they propagate so the next
// resume sees them.
func (e *Env) runStep(ctx context.Context, projectID, step string, body func(ctx context.Context, p *project.Project, log *logging.StepLogger) error) error {
	p, err := e.Store.Load(projectID)
	if err != nil {
		return err
	}

	log, err := logging.NewStepLogger(e.Store.Dir(projectID), step)
	if err != nil {
		return err
	}
	defer log.Close()

	p.Status.CurrentStep = step
	project.BumpAttempt(p, step)
	if err := e.Store.Save(p); err != nil {
		return err
	}

	if err := body(ctx, p, log); err != nil {
		project.UpdateStatus(p, step, err)
		if saveErr := e.Store.Save(p); saveErr != nil {
			log.Error("could not persist failure state: %v", saveErr)
		}
		log.Error("%s step failed: %v", step, err)
		return err
	}

	project.UpdateStatus(p, step, nil)
	if err := e.Store.Save(p); err != nil {
		return err
	}
	return nil
}
