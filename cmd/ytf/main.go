package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JustinDumasCarr/yt-factory/internal/cli"
	"github.com/JustinDumasCarr/yt-factory/internal/config"
	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	sighandler "github.com/JustinDumasCarr/yt-factory/internal/signal"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Provider credentials live in .env during local development.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupt received, finishing current unit of work...")
	})

	cfg := config.NewDefaultConfig()
	rootCmd := cli.NewRootCmd(ctx, cfg,
		fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
