// Package cli builds the ytf command tree and maps outcomes to exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustinDumasCarr/yt-factory/internal/banner"
	"github.com/JustinDumasCarr/yt-factory/internal/channel"
	"github.com/JustinDumasCarr/yt-factory/internal/config"
	"github.com/JustinDumasCarr/yt-factory/internal/doctor"
	"github.com/JustinDumasCarr/yt-factory/internal/exitcode"
	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/media"
	"github.com/JustinDumasCarr/yt-factory/internal/notification"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
	"github.com/JustinDumasCarr/yt-factory/internal/queue"
	"github.com/JustinDumasCarr/yt-factory/internal/runner"
	"github.com/JustinDumasCarr/yt-factory/internal/schedule"
	"github.com/JustinDumasCarr/yt-factory/internal/steps"
)

// Sentinel errors that main maps to dedicated exit codes.
var (
	ErrStepFailed    = errors.New("pipeline step failed")
	ErrQueueFailures = errors.New("queue run had failures")
	ErrChecksFailed  = errors.New("prerequisite checks failed")
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, ErrStepFailed):
		return exitcode.StepFailed
	case errors.Is(err, ErrQueueFailures):
		return exitcode.QueueFailures
	case errors.Is(err, ErrChecksFailed):
		return exitcode.ChecksFailed
	case errors.Is(err, context.Canceled):
		return exitcode.Interrupted
	default:
		return exitcode.Error
	}
}

// buildEnv wires the step environment from resolved configuration.
func buildEnv(cfg *config.Config) *steps.Env {
	store := &project.Store{Root: cfg.ProjectsDir}
	channels := &channel.Registry{Dir: cfg.ChannelsDir}
	env := steps.NewEnv(store, channels)
	if cfg.MaxTrackAttempts > 0 {
		env.MaxTrackAttempts = cfg.MaxTrackAttempts
	}
	if cfg.PollTimeoutMinutes > 0 {
		env.PollTimeout = minutes(cfg.PollTimeoutMinutes)
	}
	if cfg.EncodeTimeoutMinutes > 0 {
		env.Media = media.FFmpeg{EncodeTimeout: minutes(cfg.EncodeTimeoutMinutes)}
	}
	return env
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// NewRootCmd builds the full ytf command tree. The context is canceled on
// SIGINT/SIGTERM by the caller and flows into every provider call.
func NewRootCmd(ctx context.Context, cfg *config.Config, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ytf",
		Short:   "Theme-to-YouTube music compilation pipeline",
		Long:    "ytf drives a theme through plan, generate, review, render and upload, with crash-safe resume at every step.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.LoadWithPrecedence("", "ytf.conf", cfg.ConfigFile)
			if err != nil {
				return err
			}
			// Flags already written into cfg win over file values.
			applyUnsetDefaults(cmd, cfg, resolved)
			logging.SetVerbose(cfg.Verbose)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug output")
	pf.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")
	pf.StringVar(&cfg.ProjectsDir, "projects-dir", cfg.ProjectsDir, "Projects root directory")
	pf.StringVar(&cfg.ChannelsDir, "channels-dir", cfg.ChannelsDir, "Channel profiles directory")
	pf.StringVar(&cfg.QueueDir, "queue-dir", cfg.QueueDir, "Queue root directory")

	rootCmd.AddCommand(
		newCmd(ctx, cfg),
		runCmd(ctx, cfg),
		batchCmd(ctx, cfg),
		queueCmd(ctx, cfg),
		statusCmd(cfg),
		doctorCmd(ctx, cfg),
	)
	SetCustomHelp(rootCmd)
	return rootCmd
}

// applyUnsetDefaults copies file/env-resolved values into cfg for every
// field whose flag the user did not set explicitly.
func applyUnsetDefaults(cmd *cobra.Command, cfg, resolved *config.Config) {
	if !cmd.Flags().Changed("projects-dir") {
		cfg.ProjectsDir = resolved.ProjectsDir
	}
	if !cmd.Flags().Changed("channels-dir") {
		cfg.ChannelsDir = resolved.ChannelsDir
	}
	if !cmd.Flags().Changed("queue-dir") {
		cfg.QueueDir = resolved.QueueDir
	}
	if !cmd.Flags().Changed("verbose") {
		cfg.Verbose = resolved.Verbose
	}
	cfg.MaxTrackAttempts = resolved.MaxTrackAttempts
	cfg.MaxStepAttempts = resolved.MaxStepAttempts
	cfg.PollTimeoutMinutes = resolved.PollTimeoutMinutes
	cfg.EncodeTimeoutMinutes = resolved.EncodeTimeoutMinutes
}

func newCmd(ctx context.Context, cfg *config.Config) *cobra.Command {
	var params steps.NewProjectParams
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new project from a theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := buildEnv(cfg)
			projectID, err := env.CreateProject(params)
			if err != nil {
				return err
			}
			logging.Successf("Created project %s", projectID)
			fmt.Println(projectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Theme, "theme", "", "Creative theme for the compilation (required)")
	cmd.Flags().StringVar(&params.ChannelID, "channel", "", "Channel profile ID (required)")
	cmd.Flags().IntVar(&params.Minutes, "minutes", 0, "Target video length in minutes (default: channel profile)")
	cmd.Flags().IntVar(&params.Tracks, "tracks", 0, "Number of tracks to generate (default: channel profile)")
	cmd.Flags().BoolVar(&params.Vocals, "vocals", false, "Generate tracks with vocals")
	cmd.Flags().BoolVar(&params.Lyrics, "lyrics", false, "Generate lyrics via the planner (requires --vocals)")
	cmd.MarkFlagRequired("theme")
	cmd.MarkFlagRequired("channel")
	return cmd
}

func runCmd(ctx context.Context, cfg *config.Config) *cobra.Command {
	var toStep, fromStep string
	var useRetries bool
	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Run pipeline steps for a project up to a target step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := buildEnv(cfg)
			projectID := args[0]
			started := time.Now()

			if p, err := env.Store.Load(projectID); err == nil {
				banner.PrintStartupBanner(p.ProjectID, p.Theme, p.ChannelID, toStep)
			}

			r := &runner.Runner{Env: env}
			err := r.RunProject(ctx, projectID, toStep, runner.Options{
				FromStep:       fromStep,
				UseRetries:     useRetries,
				MaxStepRetries: cfg.MaxStepAttempts - 1,
			})

			p, loadErr := env.Store.Load(projectID)
			if err != nil {
				step, msg := toStep, err.Error()
				if loadErr == nil {
					step = p.Status.CurrentStep
					if p.Status.LastError != nil {
						msg = p.Status.LastError.Message
					}
				}
				banner.PrintFailureBanner(projectID, step, msg)
				notification.Send(notification.WebhookFromEnv(), notification.EventStepFailed,
					notification.FormatEvent(notification.EventStepFailed, projectID, msg))
				return fmt.Errorf("%w: %v", ErrStepFailed, err)
			}

			var videoID string
			if loadErr == nil && p.YouTube != nil {
				videoID = p.YouTube.VideoID
			}
			banner.PrintCompletionBanner(projectID, int(time.Since(started).Seconds()), videoID)
			if videoID != "" {
				notification.Send(notification.WebhookFromEnv(), notification.EventUploaded,
					notification.FormatEvent(notification.EventUploaded, projectID, "https://youtu.be/"+videoID))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&toStep, "to", project.StepUpload, "Target step (plan, generate, review, render, upload)")
	cmd.Flags().StringVar(&fromStep, "from", "", "Force a starting step instead of resuming")
	cmd.Flags().BoolVar(&useRetries, "retries", false, "Retry transient step failures with backoff")
	return cmd
}

func batchCmd(ctx context.Context, cfg *config.Config) *cobra.Command {
	var channelID, mode, theme, batchID, startAt string
	var count int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Create and run multiple projects back to back",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := waitForStart(ctx, startAt); err != nil {
				return err
			}
			env := buildEnv(cfg)
			r := &runner.Runner{Env: env}
			summary, err := r.RunBatch(ctx, channelID, count, mode, theme, batchID)
			if err != nil {
				return err
			}
			logging.Infof("Batch %s: %d succeeded, %d failed", summary.BatchID, summary.Successful, summary.Failed)
			notification.Send(notification.WebhookFromEnv(), notification.EventBatchDone,
				notification.FormatEvent(notification.EventBatchDone, summary.BatchID,
					fmt.Sprintf("%d succeeded, %d failed", summary.Successful, summary.Failed)))
			if summary.Failed > 0 {
				return ErrQueueFailures
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "Channel profile ID (required)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of projects to create")
	cmd.Flags().StringVar(&mode, "mode", "full", "Target mode (full, upload, render, review, generate, plan)")
	cmd.Flags().StringVar(&theme, "theme", "", "Base theme, suffixed with an index when count > 1 (required)")
	cmd.Flags().StringVar(&batchID, "batch-id", "", "Batch ID (default: timestamp)")
	cmd.Flags().StringVar(&startAt, "at", "", "Delay start until this time (HH:MM, YYYY-MM-DD HH:MM)")
	cmd.MarkFlagRequired("channel")
	cmd.MarkFlagRequired("theme")
	return cmd
}

// waitForStart blocks until the scheduled start time, if one was given.
func waitForStart(ctx context.Context, startAt string) error {
	if startAt == "" {
		return nil
	}
	target, err := schedule.ParseSchedule(startAt)
	if err != nil {
		return err
	}
	return schedule.WaitUntil(ctx, target)
}

func queueCmd(ctx context.Context, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the file-based batch queue",
	}

	var add queue.AddParams
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add items to the pending queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := queue.New(cfg.QueueDir, &runner.Runner{Env: buildEnv(cfg)})
			created, err := q.Add(add)
			if err != nil {
				return err
			}
			for _, name := range created {
				logging.Successf("Queued: %s", name)
			}
			return nil
		},
	}
	addCmd.Flags().StringVar(&add.ChannelID, "channel", "", "Channel profile ID (required)")
	addCmd.Flags().StringVar(&add.Theme, "theme", "", "Base theme (required)")
	addCmd.Flags().StringVar(&add.Mode, "mode", "full", "Target mode (full, upload, render, review, generate, plan)")
	addCmd.Flags().IntVar(&add.Count, "count", 1, "Number of items to enqueue")
	addCmd.Flags().IntVar(&add.Minutes, "minutes", 0, "Minutes override")
	addCmd.Flags().IntVar(&add.Tracks, "tracks", 0, "Tracks override")
	addCmd.Flags().BoolVar(&add.Vocals, "vocals", false, "Generate tracks with vocals")
	addCmd.Flags().BoolVar(&add.Lyrics, "lyrics", false, "Generate lyrics via the planner")
	addCmd.Flags().IntVar(&add.MaxProjectAttempts, "max-project-attempts", 3, "Attempt cap per project step")
	addCmd.Flags().IntVar(&add.MaxTrackAttempts, "max-track-attempts", 2, "Attempt cap per track")
	addCmd.MarkFlagRequired("channel")
	addCmd.MarkFlagRequired("theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show queue item counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := queue.New(cfg.QueueDir, &runner.Runner{Env: buildEnv(cfg)})
			counts, err := q.Counts()
			if err != nil {
				return err
			}
			for _, state := range []string{"pending", "in_progress", "done", "failed"} {
				fmt.Printf("%-12s %d\n", state, counts[state])
			}
			return nil
		},
	}

	var limit int
	var startAt string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending queue items in FIFO order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := waitForStart(ctx, startAt); err != nil {
				return err
			}
			q := queue.New(cfg.QueueDir, &runner.Runner{Env: buildEnv(cfg)})
			summary, err := q.Run(ctx, limit)
			if err != nil {
				return err
			}
			banner.PrintQueueRunBanner(summary.RunID, summary.Processed, summary.Successful, summary.Failed)
			notification.Send(notification.WebhookFromEnv(), notification.EventQueueRunDone,
				notification.FormatEvent(notification.EventQueueRunDone, summary.RunID,
					fmt.Sprintf("%d processed, %d succeeded, %d failed",
						summary.Processed, summary.Successful, summary.Failed)))
			if summary.Failed > 0 {
				return ErrQueueFailures
			}
			return nil
		},
	}
	runCmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to process (0 = all)")
	runCmd.Flags().StringVar(&startAt, "at", "", "Delay start until this time (HH:MM, YYYY-MM-DD HH:MM)")

	cmd.AddCommand(addCmd, listCmd, runCmd)
	return cmd
}

func statusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show a project's pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := &project.Store{Root: cfg.ProjectsDir}
			p, err := store.Load(args[0])
			if err != nil {
				return err
			}
			printStatus(p)
			return nil
		},
	}
}

func printStatus(p *project.Project) {
	fmt.Printf("Project:          %s\n", p.ProjectID)
	fmt.Printf("Theme:            %s\n", p.Theme)
	fmt.Printf("Channel:          %s\n", p.ChannelID)
	fmt.Printf("Current step:     %s\n", p.Status.CurrentStep)
	fmt.Printf("Last successful:  %s\n", orDash(p.Status.LastSuccessfulStep))
	if p.Status.LastError != nil {
		fmt.Printf("Last error:       [%s/%s] %s (at %s, step %s)\n",
			p.Status.LastError.Kind, orDash(p.Status.LastError.Provider),
			p.Status.LastError.Message, p.Status.LastError.At, p.Status.LastError.Step)
	}

	var ok, failed int
	for _, t := range p.Tracks {
		if t.Status == project.TrackOK {
			ok++
		} else {
			failed++
		}
	}
	fmt.Printf("Tracks:           %d ok, %d failed of %d planned\n", ok, failed, p.TrackCount)
	if p.YouTube != nil && p.YouTube.VideoID != "" {
		fmt.Printf("YouTube:          https://youtu.be/%s (%s)\n", p.YouTube.VideoID, p.YouTube.Privacy)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func doctorCmd(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate prerequisites (ffmpeg, credentials, directories)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !doctor.RunAll(ctx, cfg.ProjectsDir) {
				return ErrChecksFailed
			}
			return nil
		},
	}
}
