// Package hooks defines the server-side git hook entry points.
package hooks

import (
	"context"
	"io"
)

// HookArg is an argument to a git hook.
type HookArg struct {
	OldSha  string
	NewSha  string
	RefName string
}

// Hooks provides an interface for git server-side hooks. A non-nil
// error from PreReceive or Update rejects the push or the reference;
// errors from the post hooks are logged but cannot stop the push.
type Hooks interface {
	PreReceive(ctx context.Context, stdout io.Writer, stderr io.Writer, repoPath string, args []HookArg) error
	Update(ctx context.Context, stdout io.Writer, stderr io.Writer, repoPath string, arg HookArg) error
	PostReceive(ctx context.Context, stdout io.Writer, stderr io.Writer, repoPath string, args []HookArg) error
	PostUpdate(ctx context.Context, stdout io.Writer, stderr io.Writer, repoPath string, args ...string) error
}

// Hook names.
const (
	PreReceiveHook  = "pre-receive"
	UpdateHook      = "update"
	PostReceiveHook = "post-receive"
	PostUpdateHook  = "post-update"
)
