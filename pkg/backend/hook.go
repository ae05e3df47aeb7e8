package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/refgate/refgate/pkg/gate"
	"github.com/refgate/refgate/pkg/hooks"
)

var _ hooks.Hooks = (*Backend)(nil)

// writeRejection prints the rejection the way git relays hook output,
// one line at a time with a leading marker.
func writeRejection(w io.Writer, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		if line == "" {
			fmt.Fprintln(w, "***")
			continue
		}
		fmt.Fprintln(w, "*** "+line)
	}
}

func toRefChange(arg hooks.HookArg) gate.RefChange {
	return gate.RefChange{
		RefName: arg.RefName,
		OldRev:  arg.OldSha,
		NewRev:  arg.NewSha,
	}
}

// PreReceive runs the push-wide checks before any reference moves.
func (b *Backend) PreReceive(ctx context.Context, _ io.Writer, stderr io.Writer, repoPath string, args []hooks.HookArg) error {
	s, err := b.open(ctx, repoPath, "")
	if err != nil {
		b.logger.Error("pre-receive", "repo", repoPath, "err", err)
		writeRejection(stderr, err)
		return err
	}

	// The snapshot must describe the repository as it will look with
	// the push applied.
	changes := make([]gate.RefChange, 0, len(args))
	for _, arg := range args {
		rc := toRefChange(arg)
		changes = append(changes, rc)
		s.env.Refs.Set(rc.RefName, rc.NewRev)
	}

	if err := s.gate.CheckPush(ctx, changes); err != nil {
		writeRejection(stderr, err)
		return err
	}
	return nil
}

// Update validates a single reference transition. Each reference is
// judged on its own merits; a rejection here never affects the other
// references of the same push.
func (b *Backend) Update(ctx context.Context, _ io.Writer, stderr io.Writer, repoPath string, arg hooks.HookArg) error {
	s, err := b.open(ctx, repoPath, arg.NewSha)
	if err != nil {
		b.logger.Error("update", "repo", repoPath, "ref", arg.RefName, "err", err)
		writeRejection(stderr, err)
		return err
	}

	rc := toRefChange(arg)
	s.env.Refs.Set(rc.RefName, rc.NewRev)

	if _, _, err := s.gate.Check(ctx, rc); err != nil {
		writeRejection(stderr, err)
		return err
	}
	return nil
}

// PostReceive sends the notifications for the references that moved.
// By this point nothing can stop the push; failures are logged and
// swallowed so the pusher's terminal stays clean.
func (b *Backend) PostReceive(ctx context.Context, _ io.Writer, stderr io.Writer, repoPath string, args []hooks.HookArg) error {
	s, err := b.open(ctx, repoPath, "")
	if err != nil {
		b.logger.Error("post-receive", "repo", repoPath, "err", err)
		return nil
	}

	// Rewind the snapshot to the pre-push state, then apply the
	// updates one at a time so each commit is attributed to the first
	// reference that introduced it.
	for _, arg := range args {
		s.env.Refs.Set(arg.RefName, arg.OldSha)
	}

	for _, arg := range args {
		rc := toRefChange(arg)
		s.env.Refs.Set(rc.RefName, rc.NewRev)
		if err := b.notify(ctx, s, rc); err != nil {
			b.logger.Error("notify", "repo", repoPath, "ref", rc.RefName, "err", err)
			fmt.Fprintf(stderr, "warning: notification for %s failed\n", rc.RefName)
		}
	}
	return nil
}

// PostUpdate refreshes the auxiliary info files for dumb transports.
func (b *Backend) PostUpdate(ctx context.Context, _ io.Writer, _ io.Writer, repoPath string, _ ...string) error {
	s, err := b.open(ctx, repoPath, "")
	if err != nil {
		return err
	}
	return s.repo.UpdateServerInfo()
}
