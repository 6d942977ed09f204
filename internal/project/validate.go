package project

import (
	"fmt"
)

var validSteps = map[string]bool{
	StepNew:      true,
	StepPlan:     true,
	StepGenerate: true,
	StepReview:   true,
	StepRender:   true,
	StepUpload:   true,
	StepDone:     true,
}

var validPrivacy = map[string]bool{"unlisted": true, "private": true, "public": true}

// Validate checks the full document against the schema invariants. It is run
// on every load and before every save; a hand-edited file that breaks an
// invariant fails loudly here.
func Validate(p *Project) error {
	if p.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if p.Theme == "" {
		return fmt.Errorf("theme is required")
	}
	if p.TargetMinutes <= 0 {
		return fmt.Errorf("target_minutes must be positive, got %d", p.TargetMinutes)
	}
	if p.TrackCount <= 0 {
		return fmt.Errorf("track_count must be positive, got %d", p.TrackCount)
	}

	if !validSteps[p.Status.CurrentStep] {
		return fmt.Errorf("invalid status.current_step: %q", p.Status.CurrentStep)
	}
	if s := p.Status.LastSuccessfulStep; s != "" && !validSteps[s] {
		return fmt.Errorf("invalid status.last_successful_step: %q", s)
	}
	if p.Upload.Privacy != "" && !validPrivacy[p.Upload.Privacy] {
		return fmt.Errorf("invalid upload.privacy: %q", p.Upload.Privacy)
	}

	if p.Plan != nil {
		for i, pr := range p.Plan.Prompts {
			if pr.JobIndex == nil {
				return fmt.Errorf("plan.prompts[%d]: job_index is required", i)
			}
			if pr.Title == "" {
				return fmt.Errorf("plan.prompts[%d]: title is required", i)
			}
			if pr.Style == "" {
				return fmt.Errorf("plan.prompts[%d]: style is required", i)
			}
		}
	}

	seenIndex := make(map[int]bool, len(p.Tracks))
	seenJobVariant := make(map[[2]int]bool, len(p.Tracks))
	for i, t := range p.Tracks {
		if t.TrackIndex < 0 {
			return fmt.Errorf("tracks[%d]: negative track_index %d", i, t.TrackIndex)
		}
		if seenIndex[t.TrackIndex] {
			return fmt.Errorf("tracks[%d]: duplicate track_index %d", i, t.TrackIndex)
		}
		seenIndex[t.TrackIndex] = true

		if t.JobIndex != nil && t.VariantIndex != nil {
			if *t.VariantIndex != 0 && *t.VariantIndex != 1 {
				return fmt.Errorf("tracks[%d]: variant_index must be 0 or 1, got %d", i, *t.VariantIndex)
			}
			key := [2]int{*t.JobIndex, *t.VariantIndex}
			if seenJobVariant[key] {
				return fmt.Errorf("tracks[%d]: duplicate (job_index=%d, variant_index=%d)", i, key[0], key[1])
			}
			seenJobVariant[key] = true
		}

		switch t.Status {
		case TrackOK:
			if t.AudioPath == "" {
				return fmt.Errorf("tracks[%d]: status ok requires audio_path", i)
			}
		case TrackFailed:
		default:
			return fmt.Errorf("tracks[%d]: invalid status %q", i, t.Status)
		}
	}

	return nil
}
