package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/refgate/refgate/pkg/config"
	logpkg "github.com/refgate/refgate/pkg/log"
	"github.com/refgate/refgate/pkg/version"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""

	rootCmd = &cobra.Command{
		Use:          "refgate",
		Short:        "Server-side git reference update validation hooks",
		Long:         "Refgate validates pushed reference updates against per-repository policy and sends the notifications for the updates it accepts.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.AddCommand(
		hookCmd,
		initCmd,
		optionsCmd,
		deliverCmd,
		manCmd,
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
			Version = info.Main.Version
		} else {
			Version = "unknown (built from source)"
		}
	}
	rootCmd.Version = Version
	version.Version = Version
	version.CommitSHA = CommitSHA
}

func main() {
	ctx := context.Background()

	cfg := config.DefaultConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatal(err)
	}

	ctx = config.WithContext(ctx, cfg)

	logger, f, err := logpkg.NewLogger(cfg)
	if err != nil {
		log.Errorf("failed to create logger: %v", err)
	}
	if f != nil {
		defer f.Close() // nolint: errcheck
	}

	// Set global logger
	log.SetDefault(logger)

	// Set the max number of processes to the number of CPUs
	// This is useful when running refgate in a container
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warn("couldn't set automaxprocs", "error", err)
	}

	ctx = log.WithContext(ctx, logger)
	if rootCmd.ExecuteContext(ctx) != nil {
		os.Exit(1)
	}
}
