// Package stylecheck runs an external style checker over the files
// touched by newly pushed commits.
package stylecheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/gobwas/glob"

	"github.com/refgate/refgate/pkg/policy"
)

// Checker invokes a style checking program for each commit (or once
// per push in combined mode). The program receives the repository
// path and the commit being checked as positional arguments, and the
// files to check on its standard input, one path per line.
type Checker struct {
	// Program is the path of the style checker. Empty disables
	// style checking entirely.
	Program string

	// RepoPath is passed to the program as its first argument.
	RepoPath string

	// Combined asks for a single checker invocation covering the
	// whole push rather than one call per commit.
	Combined bool

	// Exempt, when set, reports whether a path is exempt from
	// checking, typically from a gitattributes lookup.
	Exempt func(ctx context.Context, path string) (bool, error)

	excludes []glob.Glob
}

// FromOptions builds a Checker from the repository's policy options.
func FromOptions(opts *policy.Options, repoPath string) (*Checker, error) {
	c := &Checker{
		Program:  opts.Path("style-checker"),
		RepoPath: repoPath,
		Combined: opts.Bool("combined-style-checking"),
	}
	for _, pat := range opts.List("style-check-exclude") {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid style-check-exclude pattern %q: %w", pat, err)
		}
		c.excludes = append(c.excludes, g)
	}
	return c, nil
}

// Enabled reports whether a style checker is configured.
func (c *Checker) Enabled() bool {
	return c.Program != ""
}

// Filter returns the subset of paths that must be submitted to the
// checker, dropping excluded and exempt files.
func (c *Checker) Filter(ctx context.Context, paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
next:
	for _, p := range paths {
		for _, g := range c.excludes {
			if g.Match(p) {
				continue next
			}
		}
		if c.Exempt != nil {
			exempt, err := c.Exempt(ctx, p)
			if err != nil {
				return nil, err
			}
			if exempt {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// CheckError carries the output of a failed checker run.
type CheckError struct {
	Commit string
	Output []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("style check failed for commit %s", e.Commit)
}

// Check runs the checker over paths as of the given commit. A nil
// return means the files passed. Paths must already be filtered.
func (c *Checker) Check(ctx context.Context, commitID string, paths []string) error {
	if !c.Enabled() {
		return nil
	}
	if len(paths) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, c.Program, c.RepoPath, commitID)
	cmd.Stdin = strings.NewReader(strings.Join(paths, "\n") + "\n")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			return &CheckError{
				Commit: commitID,
				Output: splitOutput(out.String()),
			}
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("style checker %s not found: %w", c.Program, err)
		default:
			return fmt.Errorf("unable to run style checker %s: %w", c.Program, err)
		}
	}
	return nil
}

func splitOutput(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
