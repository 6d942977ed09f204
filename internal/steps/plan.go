package steps

import (
	"context"
	"fmt"

	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
)

// Plan asks the LLM planner for generation prompts and video metadata and
// persists them on the project.
func (e *Env) Plan(ctx context.Context, projectID string) error {
	return e.runStep(ctx, projectID, project.StepPlan, e.planBody)
}

func (e *Env) planBody(ctx context.Context, p *project.Project, log *logging.StepLogger) error {
	if p.ChannelID == "" {
		return fmt.Errorf("validation: project missing channel_id")
	}
	profile, err := e.Channels.Get(p.ChannelID)
	if err != nil {
		return err
	}

	planner, err := e.NewPlanner(ctx)
	if err != nil {
		return fmt.Errorf("initialize planner: %w", err)
	}

	// Each job yields two variants, so the job count is half the track
	// count, rounded up.
	jobCount := (p.TrackCount + 1) / 2
	log.Info("Planning %d jobs (%d tracks) for theme %q", jobCount, p.TrackCount, p.Theme)

	result, err := planner.GeneratePlan(ctx, providers.PlanRequest{
		Theme:         p.Theme,
		JobCount:      jobCount,
		TargetMinutes: p.TargetMinutes,
		Vocals:        p.Vocals.Enabled,
		Lyrics:        p.Lyrics.Enabled,
		StyleGuidance: profile.PromptConstraints.StyleGuidance,
		EnergyLevel:   profile.PromptConstraints.EnergyLevel,
		BannedTerms:   profile.PromptConstraints.BannedTerms,
	})
	if err != nil {
		return err
	}

	jobs := result.Jobs
	if len(jobs) > jobCount {
		log.Warn("Planner returned %d jobs, truncating to %d", len(jobs), jobCount)
		jobs = jobs[:jobCount]
	} else if len(jobs) < jobCount {
		log.Warn("Planner returned only %d of %d requested jobs", len(jobs), jobCount)
	}

	plan := &project.Plan{}
	for i, job := range jobs {
		if job.Style == "" || job.Title == "" {
			return fmt.Errorf("validation: planner job %d missing style or title", i)
		}
		plan.Prompts = append(plan.Prompts, project.PlanPrompt{
			JobIndex:      project.IntPtr(i),
			Style:         job.Style,
			Title:         job.Title,
			Prompt:        job.Prompt,
			VocalsEnabled: p.Vocals.Enabled,
			LyricsText:    job.Lyrics,
		})
	}

	if result.Title != "" {
		plan.YouTubeMetadata = &project.YouTubeMetadata{
			Title:       result.Title,
			Description: result.Description,
			Tags:        filterTags(result.Tags, profile.TagRules),
		}
	}

	p.Plan = plan
	log.Info("Plan ready: %d prompts, metadata title %q", len(plan.Prompts), result.Title)
	return nil
}

// filterTags applies the channel tag rules: banned terms are dropped, and a
// non-empty whitelist restricts the set.
func filterTags(tags []string, rules channel.TagRules) []string {
	allowed := make(map[string]bool, len(rules.Whitelist))
	for _, t := range rules.Whitelist {
		allowed[t] = true
	}
	banned := make(map[string]bool, len(rules.BannedTerms))
	for _, t := range rules.BannedTerms {
		banned[t] = true
	}

	var out []string
	for _, t := range tags {
		if banned[t] {
			continue
		}
		if len(rules.Whitelist) > 0 && !allowed[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}
