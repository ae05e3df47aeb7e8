package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/refgate/refgate/pkg/audit"
	"github.com/refgate/refgate/pkg/backend"
	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/db"
	"github.com/refgate/refgate/pkg/db/migrate"
	"github.com/refgate/refgate/pkg/hooks"
	"github.com/refgate/refgate/pkg/mail"
)

var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Run git server hooks",
	Long:   "Handles the git server hooks installed by refgate init.",
	Hidden: true,
}

// repoPath resolves the repository the hook is running for. Git runs
// hooks with the repository as the working directory and GIT_DIR set.
func repoPath() (string, error) {
	if gd := os.Getenv("GIT_DIR"); gd != "" {
		return filepath.Abs(gd)
	}
	return os.Getwd()
}

// newBackend builds the hook backend. A broken audit database is
// degraded to a warning: recording the push is never worth blocking
// it.
func newBackend(cmd *cobra.Command) *backend.Backend {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := log.FromContext(ctx)

	sender, err := mail.NewSender(&cfg.Mail)
	if err != nil {
		logger.Error("mail sender", "err", err)
		sender = &mail.DummySender{}
	}

	var store *audit.Store
	if cfg.DB.DataSource != "" {
		d, err := db.Open(ctx, cfg.DB.Driver, cfg.DB.DataSource)
		if err != nil {
			logger.Warn("audit database unavailable", "err", err)
		} else if err := migrate.Migrate(ctx, d); err != nil {
			logger.Warn("audit database migration failed", "err", err)
		} else {
			store = audit.NewStore(d)
		}
	}

	return backend.New(cfg, logger, sender, store)
}

// readHookArgs parses the "old new ref" triples the wire hooks read
// from standard input.
func readHookArgs(cmd *cobra.Command) ([]hooks.HookArg, error) {
	args := make([]hooks.HookArg, 0)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid hook input: %s", scanner.Text())
		}
		args = append(args, hooks.HookArg{
			OldSha:  fields[0],
			NewSha:  fields[1],
			RefName: fields[2],
		})
	}
	return args, scanner.Err()
}

var hooksRunE = func(cmd *cobra.Command, args []string) error {
	rp, err := repoPath()
	if err != nil {
		return err
	}

	hks := newBackend(cmd)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errw := cmd.ErrOrStderr()

	switch cmd.Name() {
	case hooks.PreReceiveHook:
		hookArgs, err := readHookArgs(cmd)
		if err != nil {
			return err
		}
		return hks.PreReceive(ctx, out, errw, rp, hookArgs)
	case hooks.UpdateHook:
		return hks.Update(ctx, out, errw, rp, hooks.HookArg{
			RefName: args[0],
			OldSha:  args[1],
			NewSha:  args[2],
		})
	case hooks.PostReceiveHook:
		hookArgs, err := readHookArgs(cmd)
		if err != nil {
			return err
		}
		return hks.PostReceive(ctx, out, errw, rp, hookArgs)
	case hooks.PostUpdateHook:
		return hks.PostUpdate(ctx, out, errw, rp, args...)
	}

	return nil
}

var preReceiveCmd = &cobra.Command{
	Use:   "pre-receive",
	Short: "Run git pre-receive hook",
	RunE:  hooksRunE,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run git update hook",
	Args:  cobra.ExactArgs(3),
	RunE:  hooksRunE,
}

var postReceiveCmd = &cobra.Command{
	Use:   "post-receive",
	Short: "Run git post-receive hook",
	RunE:  hooksRunE,
}

var postUpdateCmd = &cobra.Command{
	Use:   "post-update",
	Short: "Run git post-update hook",
	RunE:  hooksRunE,
}

func init() {
	hookCmd.AddCommand(
		preReceiveCmd,
		updateCmd,
		postReceiveCmd,
		postUpdateCmd,
	)
}
