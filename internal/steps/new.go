package steps

import (
	"fmt"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
)

// NewProjectParams are the immutable creative inputs for a project.
// Zero Minutes/Tracks fall back to the channel profile defaults.
type NewProjectParams struct {
	Theme     string
	ChannelID string
	Minutes   int
	Tracks    int
	Vocals    bool
	Lyrics    bool
}

// CreateProject creates the project folder tree and the initial project.json.
// Returns the generated project ID.
func (e *Env) CreateProject(params NewProjectParams) (string, error) {
	if params.Theme == "" {
		return "", fmt.Errorf("theme is required")
	}
	if params.ChannelID == "" {
		return "", fmt.Errorf("channel is required")
	}

	profile, err := e.Channels.Get(params.ChannelID)
	if err != nil {
		return "", err
	}

	minutes := params.Minutes
	if minutes == 0 {
		minutes = profile.DurationRules.TargetMinutes
	}
	tracks := params.Tracks
	if tracks == 0 {
		tracks = profile.DurationRules.TrackCount
	}
	lyrics := params.Lyrics && params.Vocals

	projectID := project.GenerateProjectID(params.Theme, time.Now())
	dir, err := e.Store.CreateFolders(projectID)
	if err != nil {
		return "", err
	}

	p := &project.Project{
		ProjectID:     projectID,
		CreatedAt:     time.Now().Format(time.RFC3339),
		Theme:         params.Theme,
		ChannelID:     params.ChannelID,
		Intent:        profile.Intent,
		TargetMinutes: minutes,
		TrackCount:    tracks,
		Vocals:        project.VocalsConfig{Enabled: params.Vocals},
		Lyrics:        project.LyricsConfig{Enabled: lyrics, Source: "gemini"},
		Video:         project.VideoConfig{Width: 1920, Height: 1080, FPS: 30},
		Upload: project.UploadConfig{
			Privacy:         profile.UploadDefaults.Privacy,
			CategoryID:      profile.UploadDefaults.CategoryID,
			MadeForKids:     profile.UploadDefaults.MadeForKids,
			DefaultLanguage: profile.UploadDefaults.DefaultLanguage,
		},
		Status: project.Status{CurrentStep: project.StepNew},
		Tracks: []project.Track{},
	}

	log, err := logging.NewStepLogger(dir, project.StepNew)
	if err != nil {
		return "", err
	}
	defer log.Close()

	log.Info("Creating project: %s", projectID)
	log.Info("Theme: %s, channel: %s, target: %d min, %d tracks, vocals: %t, lyrics: %t",
		params.Theme, params.ChannelID, minutes, tracks, params.Vocals, lyrics)

	project.UpdateStatus(p, project.StepNew, nil)
	if err := e.Store.Save(p); err != nil {
		project.UpdateStatus(p, project.StepNew, err)
		log.Error("Failed to create project: %v", err)
		return "", err
	}

	log.Info("Project created: %s", dir)
	return projectID, nil
}
