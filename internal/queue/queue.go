// Package queue implements the file-based batch queue. Items are JSON files
// whose state is their directory: pending/, in_progress/, done/ or failed/.
// A crash leaves an item visibly stuck in in_progress for the operator
// instead of silently lost.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinDumasCarr/yt-factory/internal/logsummary"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/runner"
	"github.com/JustinDumasCarr/yt-factory/internal/steps"
)

// Queue directories under the queue root.
const (
	dirPending    = "pending"
	dirInProgress = "in_progress"
	dirDone       = "done"
	dirFailed     = "failed"
	dirRuns       = "runs"
)

// Item is one unit of queued batch work.
type Item struct {
	ChannelID          string `json:"channel_id"`
	Theme              string `json:"theme"`
	Mode               string `json:"mode"` // full, upload, render, review, generate, plan
	Minutes            int    `json:"minutes,omitempty"`
	Tracks             int    `json:"tracks,omitempty"`
	Vocals             bool   `json:"vocals"`
	Lyrics             bool   `json:"lyrics"`
	MaxProjectAttempts int    `json:"max_project_attempts"`
	MaxTrackAttempts   int    `json:"max_track_attempts"`
}

// ItemResult is the per-item outcome recorded in the run summary.
type ItemResult struct {
	QueueItem          string `json:"queue_item"`
	ProjectID          string `json:"project_id,omitempty"`
	Status             string `json:"status"` // success | failed
	LastSuccessfulStep string `json:"last_successful_step,omitempty"`
	YouTubeVideoID     string `json:"youtube_video_id,omitempty"`
	FailedStep         string `json:"failed_step,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// RunSummary aggregates one queue run: counts, success rate, error breakdown
// by classified kind, provider and step, and per-project log summaries.
type RunSummary struct {
	RunID            string                 `json:"run_id"`
	StartedAt        string                 `json:"started_at"`
	CompletedAt      string                 `json:"completed_at"`
	Processed        int                    `json:"processed"`
	Successful       int                    `json:"successful"`
	Failed           int                    `json:"failed"`
	SuccessRate      float64                `json:"success_rate"`
	Errors           ErrorBreakdown         `json:"errors"`
	Retries          RetryTotals            `json:"retries"`
	Items            []ItemResult           `json:"items"`
	ProjectSummaries []ProjectStepSummaries `json:"project_summaries"`
}

// ErrorBreakdown groups failure counts for triage.
type ErrorBreakdown struct {
	ByKind     map[string]int `json:"by_kind"`
	ByProvider map[string]int `json:"by_provider"`
	ByStep     map[string]int `json:"by_step"`
}

// RetryTotals counts retries observed across all step logs of the run.
type RetryTotals struct {
	Total int `json:"total"`
}

// ProjectStepSummaries collects the parsed step-log summaries for one failed
// project.
type ProjectStepSummaries struct {
	ProjectID     string                             `json:"project_id"`
	StepSummaries map[string]*logsummary.StepSummary `json:"step_summaries"`
}

// maxProjectSummaries caps how many failed projects get detailed log
// summaries in the run file, keeping it readable for large runs.
const maxProjectSummaries = 10

// Queue manages the queue directory tree and processes items.
type Queue struct {
	Root   string // queue root; pending/, in_progress/, etc. live beneath it
	Runner *runner.Runner
}

// New returns a queue rooted at dir.
func New(dir string, r *runner.Runner) *Queue {
	return &Queue{Root: dir, Runner: r}
}

func (q *Queue) ensureDirs() error {
	for _, d := range []string{dirPending, dirInProgress, dirDone, dirFailed, dirRuns} {
		if err := os.MkdirAll(filepath.Join(q.Root, d), 0o755); err != nil {
			return fmt.Errorf("create queue dir %s: %w", d, err)
		}
	}
	return nil
}

// AddParams describes items to enqueue. Count > 1 suffixes the theme with an
// index so each project gets a distinct theme.
type AddParams struct {
	ChannelID          string
	Theme              string
	Mode               string
	Count              int
	Minutes            int
	Tracks             int
	Vocals             bool
	Lyrics             bool
	MaxProjectAttempts int
	MaxTrackAttempts   int
}

// Add writes queue item files into pending/ and returns their filenames.
// Filenames are timestamp-prefixed so lexical order is FIFO order.
func (q *Queue) Add(params AddParams) ([]string, error) {
	if _, ok := runner.ModeToStep[params.Mode]; !ok {
		return nil, fmt.Errorf("invalid mode %q", params.Mode)
	}
	if err := q.ensureDirs(); err != nil {
		return nil, err
	}
	count := params.Count
	if count < 1 {
		count = 1
	}
	if params.MaxProjectAttempts == 0 {
		params.MaxProjectAttempts = 3
	}
	if params.MaxTrackAttempts == 0 {
		params.MaxTrackAttempts = 2
	}

	var created []string
	for i := 1; i <= count; i++ {
		item := Item{
			ChannelID:          params.ChannelID,
			Theme:              params.Theme,
			Mode:               params.Mode,
			Minutes:            params.Minutes,
			Tracks:             params.Tracks,
			Vocals:             params.Vocals,
			Lyrics:             params.Lyrics,
			MaxProjectAttempts: params.MaxProjectAttempts,
			MaxTrackAttempts:   params.MaxTrackAttempts,
		}
		if count > 1 {
			item.Theme = fmt.Sprintf("%s %d", params.Theme, i)
		}

		name := fmt.Sprintf("%s_%s_%s_%02d.json",
			time.Now().Format("20060102_150405"), params.ChannelID, params.Mode, i)
		name = strings.ReplaceAll(name, " ", "_")

		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return created, fmt.Errorf("marshal queue item: %w", err)
		}
		path := filepath.Join(q.Root, dirPending, name)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return created, fmt.Errorf("write queue item: %w", err)
		}
		created = append(created, name)
	}
	return created, nil
}

// Counts reports how many items sit in each queue state.
func (q *Queue) Counts() (map[string]int, error) {
	if err := q.ensureDirs(); err != nil {
		return nil, err
	}
	counts := make(map[string]int, 4)
	for _, d := range []string{dirPending, dirInProgress, dirDone, dirFailed} {
		names, err := q.itemNames(d)
		if err != nil {
			return nil, err
		}
		counts[d] = len(names)
	}
	return counts, nil
}

func (q *Queue) itemNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(q.Root, dir))
	if err != nil {
		return nil, fmt.Errorf("read queue dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (q *Queue) move(name, from, to string) error {
	src := filepath.Join(q.Root, from, name)
	dst := filepath.Join(q.Root, to, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move queue item %s from %s to %s: %w", name, from, to, err)
	}
	return nil
}

// Run processes pending items in FIFO order, at most limit of them (0 means
// all). Each item's full lifecycle is isolated, so one failure never stops
// the run. Returns the aggregated run summary, also persisted under runs/.
func (q *Queue) Run(ctx context.Context, limit int) (*RunSummary, error) {
	if err := q.ensureDirs(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	summary := &RunSummary{
		RunID:     runID,
		StartedAt: time.Now().Format(time.RFC3339),
		Errors: ErrorBreakdown{
			ByKind:     map[string]int{},
			ByProvider: map[string]int{},
			ByStep:     map[string]int{},
		},
		Items:            []ItemResult{},
		ProjectSummaries: []ProjectStepSummaries{},
	}

	pending, err := q.itemNames(dirPending)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	logFile, err := os.Create(filepath.Join(q.Root, dirRuns, runID+".log"))
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}
	defer logFile.Close()
	fmt.Fprintf(logFile, "Queue run started: %s\n", runID)
	fmt.Fprintf(logFile, "Processing %d items\n\n", len(pending))

	for _, name := range pending {
		if err := q.move(name, dirPending, dirInProgress); err != nil {
			return summary, err
		}
		fmt.Fprintf(logFile, "Processing: %s\n", name)

		result := q.processItem(ctx, name)
		summary.Items = append(summary.Items, result)
		if result.Status == "success" {
			summary.Successful++
			fmt.Fprintf(logFile, "  done: %s\n\n", result.ProjectID)
			if err := q.move(name, dirInProgress, dirDone); err != nil {
				return summary, err
			}
		} else {
			summary.Failed++
			fmt.Fprintf(logFile, "  failed: %s (%s)\n\n", result.ProjectID, result.ErrorMessage)
			if err := q.move(name, dirInProgress, dirFailed); err != nil {
				return summary, err
			}
		}
	}

	summary.Processed = len(summary.Items)
	if summary.Processed > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.Processed)
	}
	q.aggregate(summary)
	summary.CompletedAt = time.Now().Format(time.RFC3339)

	fmt.Fprintf(logFile, "Run completed: %s\nSuccessful: %d\nFailed: %d\n",
		runID, summary.Successful, summary.Failed)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return summary, fmt.Errorf("marshal run summary: %w", err)
	}
	path := filepath.Join(q.Root, dirRuns, runID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return summary, fmt.Errorf("write run summary: %w", err)
	}
	return summary, nil
}

// processItem runs one queue item end to end. All failures are captured in
// the returned result.
func (q *Queue) processItem(ctx context.Context, name string) ItemResult {
	result := ItemResult{QueueItem: name, Status: "failed"}

	data, err := os.ReadFile(filepath.Join(q.Root, dirInProgress, name))
	if err != nil {
		result.FailedStep = "queue"
		result.ErrorMessage = err.Error()
		return result
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		result.FailedStep = "queue"
		result.ErrorMessage = fmt.Sprintf("invalid queue item: %v", err)
		return result
	}
	if item.ChannelID == "" || item.Theme == "" {
		result.FailedStep = "queue"
		result.ErrorMessage = "queue item missing channel_id or theme"
		return result
	}

	// Per-item attempt caps apply only to this item's run.
	env := *q.Runner.Env
	if item.MaxTrackAttempts > 0 {
		env.MaxTrackAttempts = item.MaxTrackAttempts
	}
	r := &runner.Runner{Env: &env}

	projectID, err := env.CreateProject(steps.NewProjectParams{
		Theme:     item.Theme,
		ChannelID: item.ChannelID,
		Minutes:   item.Minutes,
		Tracks:    item.Tracks,
		Vocals:    item.Vocals,
		Lyrics:    item.Lyrics,
	})
	if err != nil {
		result.FailedStep = project.StepNew
		result.ErrorMessage = err.Error()
		return result
	}
	result.ProjectID = projectID

	targetStep := runner.ModeToStep[item.Mode]
	if targetStep == "" {
		targetStep = project.StepUpload
	}
	maxRetries := item.MaxProjectAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	runErr := r.RunProject(ctx, projectID, targetStep, runner.Options{
		UseRetries:     true,
		MaxStepRetries: maxRetries,
	})

	p, loadErr := env.Store.Load(projectID)
	if loadErr == nil {
		result.LastSuccessfulStep = p.Status.LastSuccessfulStep
		if p.YouTube != nil {
			result.YouTubeVideoID = p.YouTube.VideoID
		}
	}

	if runErr == nil {
		result.Status = "success"
		return result
	}
	if loadErr == nil {
		result.FailedStep = p.Status.CurrentStep
		if p.Status.LastError != nil {
			result.ErrorMessage = p.Status.LastError.Message
		} else {
			result.ErrorMessage = runErr.Error()
		}
	} else {
		result.FailedStep = "unknown"
		result.ErrorMessage = runErr.Error()
	}
	return result
}

// aggregate fills the error breakdown and per-project log summaries from the
// failed items' persisted state and step logs.
func (q *Queue) aggregate(summary *RunSummary) {
	store := q.Runner.Env.Store
	for _, item := range summary.Items {
		if item.Status != "failed" || item.ProjectID == "" {
			continue
		}

		p, err := store.Load(item.ProjectID)
		if err == nil && p.Status.LastError != nil {
			kind := p.Status.LastError.Kind
			if kind == "" {
				kind = "unknown"
			}
			provider := p.Status.LastError.Provider
			if provider == "" {
				provider = "unknown"
			}
			summary.Errors.ByKind[kind]++
			summary.Errors.ByProvider[provider]++
			step := item.FailedStep
			if step == "" {
				step = p.Status.CurrentStep
			}
			summary.Errors.ByStep[step]++
		}

		if len(summary.ProjectSummaries) >= maxProjectSummaries {
			continue
		}
		projectDir := store.Dir(item.ProjectID)
		stepSummaries := map[string]*logsummary.StepSummary{}
		for _, step := range project.StepOrder {
			ss, err := logsummary.Generate(projectDir, item.ProjectID, step)
			if err != nil || ss.Status == "no_logs" {
				continue
			}
			stepSummaries[step] = ss
			summary.Retries.Total += ss.Retries.Total
		}
		if len(stepSummaries) > 0 {
			summary.ProjectSummaries = append(summary.ProjectSummaries, ProjectStepSummaries{
				ProjectID:     item.ProjectID,
				StepSummaries: stepSummaries,
			})
		}
	}
}
