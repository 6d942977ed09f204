package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/media"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
)

// Render assembles the final video: selects approved tracks up to the target
// length, concatenates and normalizes the audio, muxes it with the channel
// background image, and writes chapters and description files.
func (e *Env) Render(ctx context.Context, projectID string) error {
	return e.runStep(ctx, projectID, project.StepRender, e.renderBody)
}

func (e *Env) renderBody(ctx context.Context, p *project.Project, log *logging.StepLogger) error {
	selected := e.selectTracks(p)
	if len(selected) == 0 {
		return fmt.Errorf("validation: no usable tracks to render, run generate and review first")
	}

	projectDir := e.Store.Dir(p.ProjectID)
	outDir := filepath.Join(projectDir, "output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	background, err := findAsset(projectDir, "background")
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	render := &project.Render{BackgroundPath: background}
	var inputs []string
	var total float64
	for _, t := range selected {
		inputs = append(inputs, filepath.Join(projectDir, t.AudioPath))
		render.SelectedTrackIndices = append(render.SelectedTrackIndices, t.TrackIndex)
		total += t.DurationSeconds
	}
	log.Info("Selected %d tracks, %.1f minutes of audio", len(selected), total/60)

	concatPath := filepath.Join(outDir, "compilation_raw.m4a")
	if err := e.Media.ConcatAudio(ctx, inputs, concatPath); err != nil {
		return err
	}
	log.Info("Concatenated audio: %s", concatPath)

	normalizedPath := filepath.Join(outDir, "compilation.m4a")
	if err := e.Media.NormalizeLoudness(ctx, concatPath, normalizedPath); err != nil {
		return err
	}
	log.Info("Normalized loudness: %s", normalizedPath)

	finalPath := filepath.Join(outDir, "final.mp4")
	params := media.VideoParams{Width: p.Video.Width, Height: p.Video.Height, FPS: p.Video.FPS}
	if err := e.Media.MuxStillVideo(ctx, background, normalizedPath, finalPath, params); err != nil {
		return err
	}
	render.OutputMP4Path = filepath.Join("output", "final.mp4")
	log.Info("Muxed final video: %s", finalPath)

	chaptersRel, err := writeChapters(outDir, selected)
	if err != nil {
		return err
	}
	render.ChaptersPath = chaptersRel

	descriptionRel, err := e.writeDescription(p, outDir, selected)
	if err != nil {
		return err
	}
	render.DescriptionPath = descriptionRel

	if thumb, err := findAsset(projectDir, "thumbnail"); err == nil {
		rel, _ := filepath.Rel(projectDir, thumb)
		render.ThumbnailPath = rel
	} else {
		log.Warn("No thumbnail asset found, upload will skip the thumbnail")
	}

	p.Render = render
	return nil
}

// selectTracks picks QC-approved tracks in index order until the target
// duration is reached (always at least one track past the boundary so the
// video is never short of the target).
func (e *Env) selectTracks(p *project.Project) []project.Track {
	approved := make(map[int]bool)
	if p.Review != nil {
		for _, idx := range p.Review.ApprovedTrackIndices {
			approved[idx] = true
		}
	}

	target := float64(p.TargetMinutes) * 60
	var selected []project.Track
	var total float64
	for _, t := range p.Tracks {
		if t.Status != project.TrackOK || t.AudioPath == "" {
			continue
		}
		// Without review data every ok track is eligible.
		if p.Review != nil && !approved[t.TrackIndex] {
			continue
		}
		selected = append(selected, t)
		total += t.DurationSeconds
		if total >= target {
			break
		}
	}
	return selected
}

// findAsset locates assets/<name>.(png|jpg|jpeg) in the project directory.
func findAsset(projectDir, name string) (string, error) {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		path := filepath.Join(projectDir, "assets", name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s image found under assets/ (expected %s.png or %s.jpg)", name, name, name)
}

// writeChapters emits a YouTube chapters block, one line per track.
func writeChapters(outDir string, tracks []project.Track) (string, error) {
	var b strings.Builder
	var offset float64
	for _, t := range tracks {
		b.WriteString(formatTimestamp(offset))
		b.WriteString(" ")
		if t.Title != "" {
			b.WriteString(t.Title)
		} else {
			fmt.Fprintf(&b, "Track %d", t.TrackIndex+1)
		}
		b.WriteString("\n")
		offset += t.DurationSeconds
	}

	rel := filepath.Join("output", "chapters.txt")
	if err := os.WriteFile(filepath.Join(outDir, "chapters.txt"), []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write chapters: %w", err)
	}
	return rel, nil
}

func (e *Env) writeDescription(p *project.Project, outDir string, tracks []project.Track) (string, error) {
	var body, cta string
	if p.ChannelID != "" {
		if profile, err := e.Channels.Get(p.ChannelID); err == nil {
			body = profile.DescriptionTemplate.Template
			cta = profile.DescriptionTemplate.CTABlock
		}
	}
	if body == "" && p.Plan != nil && p.Plan.YouTubeMetadata != nil {
		body = p.Plan.YouTubeMetadata.Description
	}

	var chapters strings.Builder
	var offset float64
	for _, t := range tracks {
		fmt.Fprintf(&chapters, "%s %s\n", formatTimestamp(offset), t.Title)
		offset += t.DurationSeconds
	}

	text := body
	text = strings.ReplaceAll(text, "{theme}", p.Theme)
	text = strings.ReplaceAll(text, "{chapters}", chapters.String())
	text = strings.ReplaceAll(text, "{cta}", cta)
	if !strings.Contains(body, "{chapters}") {
		text = text + "\n\n" + chapters.String()
	}

	rel := filepath.Join("output", "description.txt")
	if err := os.WriteFile(filepath.Join(outDir, "description.txt"), []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write description: %w", err)
	}
	return rel, nil
}

// formatTimestamp renders an offset as H:MM:SS or M:SS, the form YouTube
// chapter lists expect.
func formatTimestamp(seconds float64) string {
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
