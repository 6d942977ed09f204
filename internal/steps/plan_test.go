package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/providers"
)

func plannerResult(jobs int) *providers.PlanResult {
	r := &providers.PlanResult{
		Title:       "Deep Focus Mix",
		Description: "An hour of calm beats.",
		Tags:        []string{"lofi", "nightcore", "study"},
	}
	for i := 0; i < jobs; i++ {
		r.Jobs = append(r.Jobs, providers.PlannedJob{
			Style:  "lofi hip hop",
			Title:  "Mellow",
			Prompt: "calm beats",
		})
	}
	return r
}

func TestPlanRequestsHalfTheTrackCount(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, 0)
	p.TrackCount = 5
	require.NoError(t, f.store.Save(p))

	planner := &fakePlanner{result: plannerResult(3)}
	f.env.NewPlanner = func(ctx context.Context) (providers.Planner, error) {
		return planner, nil
	}

	require.NoError(t, f.env.Plan(context.Background(), p.ProjectID))

	// Five tracks need three jobs of two variants each.
	assert.Equal(t, 3, planner.lastReq.JobCount)
	assert.Equal(t, "Deep Focus", planner.lastReq.Theme)
	assert.Equal(t, "low", planner.lastReq.EnergyLevel)
	assert.Equal(t, []string{"edm"}, planner.lastReq.BannedTerms)

	loaded := f.reload(t, p.ProjectID)
	require.NotNil(t, loaded.Plan)
	require.Len(t, loaded.Plan.Prompts, 3)
	for i, prompt := range loaded.Plan.Prompts {
		require.NotNil(t, prompt.JobIndex)
		assert.Equal(t, i, *prompt.JobIndex)
	}
	assert.Equal(t, project.StepPlan, loaded.Status.LastSuccessfulStep)
}

func TestPlanTruncatesSurplusJobs(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, 0) // track count 4, so two jobs

	planner := &fakePlanner{result: plannerResult(5)}
	f.env.NewPlanner = func(ctx context.Context) (providers.Planner, error) {
		return planner, nil
	}

	require.NoError(t, f.env.Plan(context.Background(), p.ProjectID))

	loaded := f.reload(t, p.ProjectID)
	assert.Len(t, loaded.Plan.Prompts, 2)
}

func TestPlanFiltersMetadataTags(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, 0)

	planner := &fakePlanner{result: plannerResult(2)}
	f.env.NewPlanner = func(ctx context.Context) (providers.Planner, error) {
		return planner, nil
	}

	require.NoError(t, f.env.Plan(context.Background(), p.ProjectID))

	loaded := f.reload(t, p.ProjectID)
	require.NotNil(t, loaded.Plan.YouTubeMetadata)
	assert.Equal(t, "Deep Focus Mix", loaded.Plan.YouTubeMetadata.Title)
	// "nightcore" is banned by the channel tag rules.
	assert.Equal(t, []string{"lofi", "study"}, loaded.Plan.YouTubeMetadata.Tags)
}

func TestPlanRejectsIncompleteJob(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, 0)

	result := plannerResult(2)
	result.Jobs[1].Style = ""
	f.env.NewPlanner = func(ctx context.Context) (providers.Planner, error) {
		return &fakePlanner{result: result}, nil
	}

	err := f.env.Plan(context.Background(), p.ProjectID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing style or title")

	loaded := f.reload(t, p.ProjectID)
	require.NotNil(t, loaded.Status.LastError)
	assert.Equal(t, project.StepPlan, loaded.Status.LastError.Step)
	assert.Empty(t, loaded.Status.LastSuccessfulStep)
}

func TestFilterTags(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		rules channel.TagRules
		want  []string
	}{
		{
			"no rules passes everything",
			[]string{"a", "b"},
			channel.TagRules{},
			[]string{"a", "b"},
		},
		{
			"banned terms dropped",
			[]string{"a", "bad", "b"},
			channel.TagRules{BannedTerms: []string{"bad"}},
			[]string{"a", "b"},
		},
		{
			"whitelist restricts",
			[]string{"a", "b", "c"},
			channel.TagRules{Whitelist: []string{"a", "c"}},
			[]string{"a", "c"},
		},
		{
			"banned wins over whitelist",
			[]string{"a", "b"},
			channel.TagRules{Whitelist: []string{"a", "b"}, BannedTerms: []string{"b"}},
			[]string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterTags(tt.tags, tt.rules))
		})
	}
}
