package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/media"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
)

const testProfileYAML = `channel_id: lofi
name: Lofi Nights
intent: background focus music
duration_rules:
  target_minutes: 10
  track_count: 4
  min_track_seconds: 60
prompt_constraints:
  energy_level: low
  banned_terms: [edm]
title_templates:
  - template: "{theme} | Lofi Mix"
description_template:
  template: "Enjoy {theme}.\n\n{chapters}\n{cta}"
  cta_block: "Subscribe for more."
tag_rules:
  banned_terms: [nightcore]
upload_defaults:
  privacy: unlisted
  category_id: "10"
`

type fakePlanner struct {
	result  *providers.PlanResult
	err     error
	calls   int
	lastReq providers.PlanRequest
}

func (f *fakePlanner) GeneratePlan(ctx context.Context, req providers.PlanRequest) (*providers.PlanResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeMusic struct {
	submits     int
	submitErr   error
	statuses    map[string]*providers.JobStatus
	polls       int
	pollErr     error
	downloads   int
	downloadErr error
}

func (f *fakeMusic) SubmitJob(ctx context.Context, req providers.JobRequest) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return fmt.Sprintf("task-%d", f.submits), nil
}

func (f *fakeMusic) PollJob(ctx context.Context, taskID string) (*providers.JobStatus, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if st, ok := f.statuses[taskID]; ok {
		return st, nil
	}
	return &providers.JobStatus{State: providers.JobFailed, ErrorMessage: "unknown task " + taskID}, nil
}

func (f *fakeMusic) DownloadAudio(ctx context.Context, audioURL, destPath string) error {
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("audio"), 0o644)
}

// completeStatus builds a completed job status with two downloadable variants.
func completeStatus(urlPrefix string) *providers.JobStatus {
	return &providers.JobStatus{
		State: providers.JobComplete,
		Variants: []providers.Variant{
			{AudioURL: urlPrefix + "_a.mp3", DurationSeconds: 120},
			{AudioURL: urlPrefix + "_b.mp3", DurationSeconds: 120},
		},
	}
}

type fakeUploader struct {
	uploads          int
	thumbs           int
	uploadErr        error
	thumbErr         error
	lastReq          providers.UploadRequest
	lastThumbVideoID string
}

func (f *fakeUploader) UploadVideo(ctx context.Context, req providers.UploadRequest) (string, error) {
	f.uploads++
	f.lastReq = req
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return fmt.Sprintf("vid-%d", f.uploads), nil
}

func (f *fakeUploader) UploadThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	f.thumbs++
	f.lastThumbVideoID = videoID
	return f.thumbErr
}

type fakeToolchain struct {
	defaultDuration float64
	durations       map[string]float64 // keyed by base name
	durationErr     error
	silences        map[string]float64
	concatCalls     int
	normalizeCalls  int
	muxCalls        int
	lastInputs      []string
	toolErr         error
}

func (f *fakeToolchain) DurationSeconds(ctx context.Context, path string) (float64, error) {
	if f.durationErr != nil {
		return 0, f.durationErr
	}
	if d, ok := f.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return f.defaultDuration, nil
}

func (f *fakeToolchain) LeadingSilenceSeconds(ctx context.Context, path string) (float64, error) {
	return f.silences[filepath.Base(path)], nil
}

func (f *fakeToolchain) ConcatAudio(ctx context.Context, inputs []string, outPath string) error {
	f.concatCalls++
	f.lastInputs = inputs
	if f.toolErr != nil {
		return f.toolErr
	}
	return os.WriteFile(outPath, []byte("concat"), 0o644)
}

func (f *fakeToolchain) NormalizeLoudness(ctx context.Context, inPath, outPath string) error {
	f.normalizeCalls++
	if f.toolErr != nil {
		return f.toolErr
	}
	return os.WriteFile(outPath, []byte("normalized"), 0o644)
}

func (f *fakeToolchain) MuxStillVideo(ctx context.Context, imagePath, audioPath, outPath string, params media.VideoParams) error {
	f.muxCalls++
	if f.toolErr != nil {
		return f.toolErr
	}
	return os.WriteFile(outPath, []byte("video"), 0o644)
}

// fixture wires an Env against fakes rooted in a temp directory.
type fixture struct {
	env   *Env
	store *project.Store
	music *fakeMusic
	media *fakeToolchain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	channelsDir := filepath.Join(root, "channels")
	require.NoError(t, os.MkdirAll(channelsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(channelsDir, "lofi.yaml"), []byte(testProfileYAML), 0o644))

	music := &fakeMusic{statuses: map[string]*providers.JobStatus{}}
	toolchain := &fakeToolchain{defaultDuration: 120}
	store := project.NewStore(filepath.Join(root, "projects"))

	env := &Env{
		Store:    store,
		Channels: channel.NewRegistry(channelsDir),
		Media:    toolchain,
		NewMusic: func(ctx context.Context) (providers.Music, error) {
			return music, nil
		},
		MaxTrackAttempts: 2,
		PollInitialDelay: time.Millisecond,
		PollMaxDelay:     2 * time.Millisecond,
		PollTimeout:      time.Second,
	}
	return &fixture{env: env, store: store, music: music, media: toolchain}
}

// seedProject persists a project with jobCount planned prompts. jobCount zero
// means no plan yet.
func (f *fixture) seedProject(t *testing.T, jobCount int) *project.Project {
	t.Helper()
	trackCount := 2 * jobCount
	if trackCount == 0 {
		trackCount = 4
	}

	p := &project.Project{
		ProjectID:     "20260829_120000_deep-focus",
		CreatedAt:     "2026-08-29T12:00:00Z",
		Theme:         "Deep Focus",
		ChannelID:     "lofi",
		TargetMinutes: 10,
		TrackCount:    trackCount,
		Video:         project.VideoConfig{Width: 1920, Height: 1080, FPS: 30},
		Upload:        project.UploadConfig{Privacy: "unlisted", CategoryID: "10"},
		Status:        project.Status{CurrentStep: project.StepNew},
		Tracks:        []project.Track{},
	}
	if jobCount > 0 {
		plan := &project.Plan{}
		for i := 0; i < jobCount; i++ {
			plan.Prompts = append(plan.Prompts, project.PlanPrompt{
				JobIndex: project.IntPtr(i),
				Style:    "lofi hip hop",
				Title:    fmt.Sprintf("Mellow %d", i),
				Prompt:   "calm beats for studying",
			})
		}
		p.Plan = plan
	}

	_, err := f.store.CreateFolders(p.ProjectID)
	require.NoError(t, err)
	require.NoError(t, f.store.Save(p))
	return p
}

// writeTrackAudio creates the audio file for a track record under tracks/.
func (f *fixture) writeTrackAudio(t *testing.T, projectID string, trackIndex int) string {
	t.Helper()
	rel := filepath.Join("tracks", fmt.Sprintf("track_%02d.mp3", trackIndex))
	abs := filepath.Join(f.store.Dir(projectID), rel)
	require.NoError(t, os.WriteFile(abs, []byte("audio"), 0o644))
	return rel
}

func (f *fixture) reload(t *testing.T, projectID string) *project.Project {
	t.Helper()
	p, err := f.store.Load(projectID)
	require.NoError(t, err)
	return p
}

// okTrack builds a completed track record for seeding resume scenarios.
func okTrack(trackIndex, jobIndex, variantIndex int, taskID, audioPath string, duration float64) project.Track {
	return project.Track{
		TrackIndex:      trackIndex,
		Title:           fmt.Sprintf("Mellow %d", jobIndex),
		Prompt:          "calm beats for studying",
		Provider:        "suno",
		JobID:           taskID,
		JobIndex:        project.IntPtr(jobIndex),
		VariantIndex:    project.IntPtr(variantIndex),
		AudioPath:       audioPath,
		DurationSeconds: duration,
		Status:          project.TrackOK,
	}
}

func failedTrack(trackIndex, jobIndex, variantIndex int, taskID string, attempts int) project.Track {
	return project.Track{
		TrackIndex:   trackIndex,
		Prompt:       "calm beats for studying",
		Provider:     "suno",
		JobID:        taskID,
		JobIndex:     project.IntPtr(jobIndex),
		VariantIndex: project.IntPtr(variantIndex),
		Status:       project.TrackFailed,
		Error:        &project.TrackError{Message: "generation failed", AttemptCount: attempts},
	}
}
