package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JustinDumasCarr/yt-factory/internal/config"
	"github.com/JustinDumasCarr/yt-factory/internal/exitcode"
)

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"step failed", fmt.Errorf("run: %w", ErrStepFailed), exitcode.StepFailed},
		{"queue failures", fmt.Errorf("queue: %w", ErrQueueFailures), exitcode.QueueFailures},
		{"checks failed", ErrChecksFailed, exitcode.ChecksFailed},
		{"interrupted", fmt.Errorf("wait: %w", context.Canceled), exitcode.Interrupted},
		{"generic", errors.New("boom"), exitcode.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestBuildEnvAppliesConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.ProjectsDir = "/data/projects"
	cfg.ChannelsDir = "/data/channels"
	cfg.MaxTrackAttempts = 4
	cfg.PollTimeoutMinutes = 7

	env := buildEnv(cfg)
	assert.Equal(t, "/data/projects", env.Store.Root)
	assert.Equal(t, "/data/channels", env.Channels.Dir)
	assert.Equal(t, 4, env.MaxTrackAttempts)
	assert.Equal(t, 7*time.Minute, env.PollTimeout)
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd(context.Background(), config.NewDefaultConfig(), "test")

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"new", "run", "batch", "queue", "status", "doctor"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("projects-dir"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}
