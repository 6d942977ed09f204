package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/media"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
	"github.com/JustinDumasCarr/yt-factory/internal/steps"
)

const runnerProfileYAML = `channel_id: lofi
name: Lofi Nights
duration_rules:
  target_minutes: 10
  track_count: 4
  min_track_seconds: 60
title_templates:
  - template: "{theme} | Lofi Mix"
description_template:
  template: "Enjoy {theme}.\n\n{chapters}"
upload_defaults:
  privacy: unlisted
  category_id: "10"
`

type stubPlanner struct{ jobs int }

func (s *stubPlanner) GeneratePlan(ctx context.Context, req providers.PlanRequest) (*providers.PlanResult, error) {
	r := &providers.PlanResult{Title: "Mix", Description: "desc", Tags: []string{"lofi"}}
	for i := 0; i < s.jobs; i++ {
		r.Jobs = append(r.Jobs, providers.PlannedJob{Style: "lofi", Title: fmt.Sprintf("Track %d", i), Prompt: "calm"})
	}
	return r, nil
}

type stubMusic struct {
	submits   int
	downloads int
}

func (s *stubMusic) SubmitJob(ctx context.Context, req providers.JobRequest) (string, error) {
	s.submits++
	return fmt.Sprintf("task-%d", s.submits), nil
}

func (s *stubMusic) PollJob(ctx context.Context, taskID string) (*providers.JobStatus, error) {
	return &providers.JobStatus{
		State: providers.JobComplete,
		Variants: []providers.Variant{
			{AudioURL: "https://cdn.example/" + taskID + "_a.mp3", DurationSeconds: 120},
			{AudioURL: "https://cdn.example/" + taskID + "_b.mp3", DurationSeconds: 120},
		},
	}, nil
}

func (s *stubMusic) DownloadAudio(ctx context.Context, audioURL, destPath string) error {
	s.downloads++
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("audio"), 0o644)
}

type stubUploader struct{ uploads int }

func (s *stubUploader) UploadVideo(ctx context.Context, req providers.UploadRequest) (string, error) {
	s.uploads++
	return "vid-1", nil
}

func (s *stubUploader) UploadThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	return nil
}

type stubToolchain struct{}

func (stubToolchain) DurationSeconds(ctx context.Context, path string) (float64, error) {
	return 120, nil
}
func (stubToolchain) LeadingSilenceSeconds(ctx context.Context, path string) (float64, error) {
	return 0, nil
}
func (stubToolchain) ConcatAudio(ctx context.Context, inputs []string, outPath string) error {
	return os.WriteFile(outPath, []byte("concat"), 0o644)
}
func (stubToolchain) NormalizeLoudness(ctx context.Context, inPath, outPath string) error {
	return os.WriteFile(outPath, []byte("normalized"), 0o644)
}
func (stubToolchain) MuxStillVideo(ctx context.Context, imagePath, audioPath, outPath string, params media.VideoParams) error {
	return os.WriteFile(outPath, []byte("video"), 0o644)
}

type testRig struct {
	runner   *Runner
	music    *stubMusic
	uploader *stubUploader
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	root := t.TempDir()
	channelsDir := filepath.Join(root, "channels")
	require.NoError(t, os.MkdirAll(channelsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(channelsDir, "lofi.yaml"), []byte(runnerProfileYAML), 0o644))

	music := &stubMusic{}
	uploader := &stubUploader{}
	env := &steps.Env{
		Store:    project.NewStore(filepath.Join(root, "projects")),
		Channels: channel.NewRegistry(channelsDir),
		Media:    stubToolchain{},
		NewPlanner: func(ctx context.Context) (providers.Planner, error) {
			return &stubPlanner{jobs: 2}, nil
		},
		NewMusic: func(ctx context.Context) (providers.Music, error) {
			return music, nil
		},
		NewUploader: func(ctx context.Context) (providers.VideoUploader, error) {
			return uploader, nil
		},
		MaxTrackAttempts: 2,
		PollInitialDelay: time.Millisecond,
		PollMaxDelay:     time.Millisecond,
		PollTimeout:      time.Second,
	}
	return &testRig{runner: &Runner{Env: env}, music: music, uploader: uploader}
}

// newProject creates a project and drops the background asset render needs.
func (r *testRig) newProject(t *testing.T) string {
	t.Helper()
	projectID, err := r.runner.Env.CreateProject(steps.NewProjectParams{
		Theme:     "Deep Focus",
		ChannelID: "lofi",
	})
	require.NoError(t, err)
	bg := filepath.Join(r.runner.Env.Store.Dir(projectID), "assets", "background.png")
	require.NoError(t, os.WriteFile(bg, []byte("png"), 0o644))
	return projectID
}

func TestRunProjectEndToEnd(t *testing.T) {
	rig := newTestRig(t)
	projectID := rig.newProject(t)

	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepUpload, Options{}))

	p, err := rig.runner.Env.Store.Load(projectID)
	require.NoError(t, err)
	assert.Equal(t, project.StepUpload, p.Status.LastSuccessfulStep)
	require.NotNil(t, p.YouTube)
	assert.Equal(t, "vid-1", p.YouTube.VideoID)
	assert.Equal(t, 2, rig.music.submits)
	assert.Equal(t, 1, rig.uploader.uploads)
}

func TestRunProjectResumesFromLastSuccessfulStep(t *testing.T) {
	rig := newTestRig(t)
	projectID := rig.newProject(t)

	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepGenerate, Options{}))
	assert.Equal(t, 2, rig.music.submits)

	// A second run to the same target starts past it and does nothing.
	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepGenerate, Options{}))
	assert.Equal(t, 2, rig.music.submits)
	assert.Equal(t, 4, rig.music.downloads)
}

func TestRunProjectFromStepOverride(t *testing.T) {
	rig := newTestRig(t)
	projectID := rig.newProject(t)

	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepGenerate, Options{}))

	// Forcing generate again re-enters the step; the completed job records
	// keep it from resubmitting.
	opts := Options{FromStep: project.StepGenerate}
	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepGenerate, opts))
	assert.Equal(t, 2, rig.music.submits)
}

func TestRunProjectRejectsInvalidSteps(t *testing.T) {
	rig := newTestRig(t)
	projectID := rig.newProject(t)

	err := rig.runner.RunProject(context.Background(), projectID, "publish", Options{})
	assert.ErrorContains(t, err, "invalid target step")

	err = rig.runner.RunProject(context.Background(), projectID, project.StepUpload, Options{FromStep: "setup"})
	assert.ErrorContains(t, err, "invalid start step")
}

func TestRunProjectNeverReuploadsKnownVideo(t *testing.T) {
	rig := newTestRig(t)
	projectID := rig.newProject(t)
	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepUpload, Options{}))
	require.Equal(t, 1, rig.uploader.uploads)

	// Even when forced, the upload step is skipped for an uploaded project.
	opts := Options{FromStep: project.StepUpload}
	require.NoError(t, rig.runner.RunProject(context.Background(), projectID, project.StepUpload, opts))
	assert.Equal(t, 1, rig.uploader.uploads)
}

func TestModeToStep(t *testing.T) {
	assert.Equal(t, project.StepUpload, ModeToStep["full"])
	assert.Equal(t, project.StepUpload, ModeToStep["upload"])
	assert.Equal(t, project.StepRender, ModeToStep["render"])
	assert.Equal(t, project.StepPlan, ModeToStep["plan"])
	_, ok := ModeToStep["publish"]
	assert.False(t, ok)
}

func TestRunBatchWritesSummary(t *testing.T) {
	rig := newTestRig(t)

	summary, err := rig.runner.RunBatch(context.Background(), "lofi", 2, "generate", "Deep Focus", "test_batch")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalProjects)
	assert.Equal(t, 2, summary.Successful)
	assert.Zero(t, summary.Failed)
	require.Len(t, summary.Projects, 2)
	// Multi-project batches suffix the theme.
	assert.Equal(t, "Deep Focus 1", summary.Projects[0].Theme)
	assert.Equal(t, "Deep Focus 2", summary.Projects[1].Theme)
	assert.Equal(t, project.StepGenerate, summary.Projects[0].LastSuccessfulStep)

	data, err := os.ReadFile(filepath.Join(rig.runner.Env.Store.Root, "test_batch_summary.json"))
	require.NoError(t, err)
	var onDisk BatchSummary
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "test_batch", onDisk.BatchID)
	assert.Equal(t, project.StepGenerate, onDisk.TargetStep)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	rig := newTestRig(t)

	summary, err := rig.runner.RunBatch(context.Background(), "missing", 2, "plan", "Theme", "fail_batch")
	require.NoError(t, err)

	assert.Zero(t, summary.Successful)
	assert.Equal(t, 2, summary.Failed)
	for _, outcome := range summary.Projects {
		assert.Equal(t, project.StepNew, outcome.FailedStep)
		assert.Contains(t, outcome.ErrorMessage, "channel profile not found")
	}

	// No project was ever created, so the projects root did not exist before
	// this run; the summary must still land on disk.
	_, statErr := os.Stat(filepath.Join(rig.runner.Env.Store.Root, "fail_batch_summary.json"))
	assert.NoError(t, statErr)
}

func TestRunBatchRejectsInvalidMode(t *testing.T) {
	rig := newTestRig(t)
	_, err := rig.runner.RunBatch(context.Background(), "lofi", 1, "publish", "Theme", "")
	assert.ErrorContains(t, err, "invalid mode")
}
