package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/hooks"
)

var initCmd = &cobra.Command{
	Use:   "init REPOSITORY...",
	Short: "Install the refgate hooks into repositories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		if !cfg.Exist() {
			if err := cfg.WriteConfig(); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
		}

		for _, path := range args {
			if _, err := git.Open(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := hooks.GenerateHooks(ctx, cfg, path); err != nil {
				return fmt.Errorf("install hooks into %s: %w", path, err)
			}
			cmd.Printf("installed hooks into %s\n", path)
		}
		return nil
	},
}
