// Package banner provides colored banner display functions for the ytf CLI.
//
// All banner functions write formatted output to stdout with color-coded headers
// and separators. These mark the important transitions of a pipeline run:
// start, completion, failure, and queue run results.
package banner

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const sepLine = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the run banner with project info.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  ytf - theme to YouTube pipeline
//	═══════════════════════════════════════════════════
//	  Project:  20260829_153000_rainy_night_jazz
//	  Theme:    rainy night jazz
//	  Channel:  lofi
//	  Target:   upload
//	═══════════════════════════════════════════════════
func PrintStartupBanner(projectID, theme, channelID, targetStep string) {
	sep := headerColor(sepLine)
	fmt.Println(sep)
	fmt.Println(headerColor("  ytf - theme to YouTube pipeline"))
	fmt.Println(sep)
	fmt.Printf("  Project:  %s\n", projectID)
	fmt.Printf("  Theme:    %s\n", theme)
	fmt.Printf("  Channel:  %s\n", channelID)
	fmt.Printf("  Target:   %s\n", targetStep)
	fmt.Println(sep)
}

// PrintCompletionBanner displays the completion banner with duration and the
// uploaded video URL when one exists.
func PrintCompletionBanner(projectID string, durationSecs int, videoID string) {
	sep := successColor(sepLine)
	fmt.Println(sep)
	fmt.Println(successColor("  ✓ Pipeline completed"))
	fmt.Printf("  Project:  %s\n", projectID)
	fmt.Printf("  Duration: %s\n", logging.FormatDuration(durationSecs))
	if videoID != "" {
		fmt.Printf("  Video:    https://youtu.be/%s\n", videoID)
	}
	fmt.Println(sep)
}

// PrintFailureBanner displays which step failed and why. The error message is
// the classified message persisted in project.json, so re-running status
// shows the same diagnosis.
func PrintFailureBanner(projectID, step, message string) {
	sep := errorColor(sepLine)
	fmt.Println(sep)
	fmt.Println(errorColor("  ✗ Pipeline step failed"))
	fmt.Printf("  Project:  %s\n", projectID)
	fmt.Printf("  Step:     %s\n", step)
	fmt.Printf("  Error:    %s\n", message)
	fmt.Println("  State is persisted; re-run to resume from this point")
	fmt.Println(sep)
}

// PrintQueueRunBanner displays queue run results.
func PrintQueueRunBanner(runID string, processed, successful, failed int) {
	col := successColor
	if failed > 0 {
		col = warnColor
	}
	sep := col(sepLine)
	fmt.Println(sep)
	fmt.Printf("  Queue run %s\n", runID)
	fmt.Printf("  Processed: %d  Succeeded: %d  Failed: %d\n", processed, successful, failed)
	fmt.Println(sep)
}
