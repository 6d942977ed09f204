package cli

import (
	"github.com/spf13/cobra"
)

const helpTemplate = `ytf - Theme-to-YouTube music compilation pipeline

USAGE
  ytf <command> [flags]

COMMANDS
  new       Create a project from a theme and channel profile
  run       Run pipeline steps for a project up to a target step
  batch     Create and run multiple projects back to back
  queue     Manage the file-based batch queue (add, list, run)
  status    Show a project's pipeline status
  doctor    Validate prerequisites (ffmpeg, credentials, directories)

GLOBAL FLAGS
  -v, --verbose          Enable debug output
  --config <path>        Path to additional config file
  --projects-dir <dir>   Projects root directory (default: projects)
  --channels-dir <dir>   Channel profiles directory (default: channels)
  --queue-dir <dir>      Queue root directory (default: queue)

PIPELINE STEPS
  plan      Ask the planner for generation prompts and video metadata
  generate  Submit music jobs, poll, download both variants per job
  review    Quality-control tracks, honor approved.txt / rejected.txt
  render    Concatenate, normalize, mux a still-image video, write chapters
  upload    Publish to YouTube (never re-uploads an existing video_id)

EXIT CODES
  0   Success         Requested work completed
  1   Error           Invalid arguments, file not found, misconfiguration
  2   StepFailed      A pipeline step failed; state persisted for resume
  3   QueueFailures   Queue or batch run finished but some items failed
  4   ChecksFailed    Doctor found unmet prerequisites
  130 Interrupted     SIGINT or SIGTERM received

EXAMPLES
  # Create a project and run it end to end
  ytf new --theme "rainy night jazz" --channel lofi
  ytf run 20260829_153000_rainy_night_jazz --to upload

  # Resume a crashed project (picks up after last_successful_step)
  ytf run 20260829_153000_rainy_night_jazz --to upload

  # Queue an overnight batch of ten videos
  ytf queue add --channel lofi --theme "city rain" --count 10 --mode full
  ytf queue run

  # Check prerequisites
  ytf doctor
`

// SetCustomHelp configures the cobra command to use our custom help template.
func SetCustomHelp(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
}
