package project

import (
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/pipe"
)

// UpdateStatus records a step outcome on the project document. On success
// (err == nil) it advances last_successful_step and clears last_error. On
// failure it leaves last_successful_step untouched and replaces last_error
// with the classified failure. The caller still owns persisting via Save.
func UpdateStatus(p *Project, step string, err error) {
	p.Status.CurrentStep = step

	if err == nil {
		// last_successful_step only moves forward along the step order;
		// re-running an earlier step successfully must not regress it.
		if stepRank(step) >= stepRank(p.Status.LastSuccessfulStep) {
			p.Status.LastSuccessfulStep = step
		}
		p.Status.LastError = nil
		return
	}

	ce := pipe.AsClassified(err)
	p.Status.LastError = &LastError{
		Step:     step,
		Message:  ce.Message,
		Stack:    ce.Stack,
		At:       time.Now().Format(time.RFC3339),
		Kind:     ce.Kind,
		Provider: ce.Provider,
		Raw:      ce.Raw,
	}
}

// stepRank orders steps for the monotonic last_successful_step rule.
// "new" sorts before every runnable step, "done" after; an empty value
// (no successful step yet) sorts lowest.
func stepRank(step string) int {
	switch step {
	case "":
		return -2
	case StepNew:
		return -1
	case StepDone:
		return len(StepOrder)
	default:
		return StepIndex(step)
	}
}

// BumpAttempt increments the per-step attempt counter.
func BumpAttempt(p *Project, step string) {
	if p.Status.Attempts == nil {
		p.Status.Attempts = make(map[string]int)
	}
	p.Status.Attempts[step]++
}
