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

// Upload publishes the rendered video to YouTube. The video insert is
// performed at most once: a persisted video_id is never re-uploaded, even if
// a later part of the step (thumbnail) failed. The thumbnail attach retries
// independently on subsequent runs.
func (e *Env) Upload(ctx context.Context, projectID string) error {
	return e.runStep(ctx, projectID, project.StepUpload, e.uploadBody)
}

func (e *Env) uploadBody(ctx context.Context, p *project.Project, log *logging.StepLogger) error {
	if p.Render == nil || p.Render.OutputMP4Path == "" {
		return fmt.Errorf("validation: nothing rendered yet, run render first")
	}
	projectDir := e.Store.Dir(p.ProjectID)
	videoPath := filepath.Join(projectDir, p.Render.OutputMP4Path)
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("validation: rendered video missing: %s", p.Render.OutputMP4Path)
	}

	uploader, err := e.NewUploader(ctx)
	if err != nil {
		return fmt.Errorf("initialize uploader: %w", err)
	}

	if p.YouTube == nil {
		p.YouTube = &project.YouTube{}
	}

	if p.YouTube.VideoID != "" {
		log.Info("Video already uploaded as %s, skipping insert", p.YouTube.VideoID)
	} else {
		title, description, tags := e.uploadMetadata(p, projectDir)
		log.Info("Uploading %s as %q (%s)", p.Render.OutputMP4Path, title, p.Upload.Privacy)

		videoID, err := uploader.UploadVideo(ctx, providers.UploadRequest{
			VideoPath:       videoPath,
			Title:           title,
			Description:     description,
			Tags:            tags,
			CategoryID:      p.Upload.CategoryID,
			Privacy:         p.Upload.Privacy,
			DefaultLanguage: p.Upload.DefaultLanguage,
			MadeForKids:     p.Upload.MadeForKids,
		})
		if err != nil {
			return err
		}

		p.YouTube.VideoID = videoID
		p.YouTube.UploadedAt = time.Now().Format(time.RFC3339)
		p.YouTube.Privacy = p.Upload.Privacy
		p.YouTube.Title = title
		// Persist immediately. Losing this ID would re-upload on resume.
		if err := e.Store.Save(p); err != nil {
			return fmt.Errorf("video uploaded as %s but state save failed: %w", videoID, err)
		}
		log.Info("Uploaded: https://youtu.be/%s", videoID)
	}

	if !p.YouTube.ThumbnailUploaded && p.Render.ThumbnailPath != "" {
		thumbPath := filepath.Join(projectDir, p.Render.ThumbnailPath)
		if _, err := os.Stat(thumbPath); err != nil {
			log.Warn("Thumbnail file missing, skipping: %s", p.Render.ThumbnailPath)
		} else {
			if err := uploader.UploadThumbnail(ctx, p.YouTube.VideoID, thumbPath); err != nil {
				return fmt.Errorf("thumbnail upload for %s: %w", p.YouTube.VideoID, err)
			}
			p.YouTube.ThumbnailUploaded = true
			p.YouTube.ThumbnailPath = p.Render.ThumbnailPath
			if err := e.Store.Save(p); err != nil {
				return err
			}
			log.Info("Thumbnail attached")
		}
	}

	return nil
}

// uploadMetadata resolves the final title, description and tags from the
// channel template, the plan metadata and the rendered description file, in
// that order of preference.
func (e *Env) uploadMetadata(p *project.Project, projectDir string) (title, description string, tags []string) {
	var meta *project.YouTubeMetadata
	if p.Plan != nil {
		meta = p.Plan.YouTubeMetadata
	}

	if p.ChannelID != "" {
		if profile, err := e.Channels.Get(p.ChannelID); err == nil && len(profile.TitleTemplates) > 0 {
			tmpl := profile.TitleTemplates[0].Template
			if tmpl != "" {
				title = strings.ReplaceAll(tmpl, "{theme}", p.Theme)
				if meta != nil {
					title = strings.ReplaceAll(title, "{title}", meta.Title)
				}
			}
		}
	}
	if title == "" && meta != nil {
		title = meta.Title
	}
	if title == "" {
		title = p.Theme
	}

	if p.Render.DescriptionPath != "" {
		if data, err := os.ReadFile(filepath.Join(projectDir, p.Render.DescriptionPath)); err == nil {
			description = string(data)
		}
	}
	if description == "" && meta != nil {
		description = meta.Description
	}

	if meta != nil {
		tags = meta.Tags
	}
	return title, description, tags
}
