// Package doctor validates prerequisites before the pipeline runs: the
// FFmpeg toolchain, provider credentials, and writable directories.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
)

const toolCheckTimeout = 5 * time.Second

// Check is one prerequisite probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) (bool, string)
}

// Checks builds the full prerequisite list for the given projects root.
func Checks(projectsRoot string) []Check {
	return []Check{
		{Name: "ffmpeg", Run: toolCheck("ffmpeg")},
		{Name: "ffprobe", Run: toolCheck("ffprobe")},
		{Name: "GEMINI_API_KEY", Run: envCheck("GEMINI_API_KEY")},
		{Name: "SUNO_API_KEY", Run: envCheck("SUNO_API_KEY")},
		{Name: "YOUTUBE_CLIENT_ID", Run: envCheck("YOUTUBE_CLIENT_ID")},
		{Name: "YOUTUBE_CLIENT_SECRET", Run: envCheck("YOUTUBE_CLIENT_SECRET")},
		{Name: "YOUTUBE_REFRESH_TOKEN", Run: envCheck("YOUTUBE_REFRESH_TOKEN")},
		{Name: "projects directory", Run: writableCheck(projectsRoot)},
	}
}

// RunAll executes every check and prints results. Returns false if any
// check failed.
func RunAll(ctx context.Context, projectsRoot string) bool {
	logging.Info("Running prerequisite checks...")
	allPassed := true
	for _, c := range Checks(projectsRoot) {
		ok, msg := c.Run(ctx)
		if ok {
			logging.Successf("%s: %s", c.Name, msg)
		} else {
			logging.Errorf("%s: %s", c.Name, msg)
			allPassed = false
		}
	}
	if allPassed {
		logging.Success("All checks passed")
	} else {
		logging.Error("Some checks failed, fix the issues above before running the pipeline")
	}
	return allPassed
}

func toolCheck(tool string) func(ctx context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		ctx, cancel := context.WithTimeout(ctx, toolCheckTimeout)
		defer cancel()
		cmd := exec.CommandContext(ctx, tool, "-version")
		out, err := cmd.Output()
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return false, "version check timed out"
			}
			return false, fmt.Sprintf("not found in PATH (%v)", err)
		}
		version := strings.SplitN(string(out), "\n", 2)[0]
		return true, version
	}
}

func envCheck(name string) func(ctx context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			return false, "not set or empty"
		}
		return true, "set"
	}
}

func writableCheck(dir string) func(ctx context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Sprintf("cannot create %s: %v", dir, err)
		}
		probe := filepath.Join(dir, ".doctor_test")
		if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
			return false, fmt.Sprintf("cannot write to %s: %v", dir, err)
		}
		os.Remove(probe)
		return true, fmt.Sprintf("writable: %s", dir)
	}
}
