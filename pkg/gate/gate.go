// Package gate validates reference updates pushed to a repository
// against the repository's own policy configuration.
package gate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize/english"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/policy"
	"github.com/refgate/refgate/pkg/stylecheck"
)

// RefChange is one reference transition as reported by the server,
// before classification.
type RefChange struct {
	RefName string
	OldRev  string
	NewRev  string
}

// IsNoop reports whether the change leaves the reference untouched.
func (rc RefChange) IsNoop() bool {
	return rc.OldRev == rc.NewRev
}

// Gate evaluates reference updates against repository policy. One Gate
// serves one push; the refs snapshot in its environment must already
// reflect every update of that push.
type Gate struct {
	env     *Env
	ns      Namespaces
	checker *stylecheck.Checker
	logger  *log.Logger
}

// New builds a Gate over the given environment. Configuration problems
// surface as *ConfigError so the pusher is routed to an administrator.
func New(env *Env, checker *stylecheck.Checker, logger *log.Logger) (*Gate, error) {
	ns, err := NewNamespaces(env.Options)
	if err != nil {
		return nil, err
	}
	return &Gate{
		env:     env,
		ns:      ns,
		checker: checker,
		logger:  logger,
	}, nil
}

// Check validates one reference update end to end: classification,
// fast-forward policy, kind-specific validation, commit enumeration,
// history screening and style checking. A no-op change returns
// (nil, nil, nil). Policy violations are *InvalidUpdate.
func (g *Gate) Check(ctx context.Context, rc RefChange) (*Update, *ChangeSet, error) {
	if rc.IsNoop() {
		return nil, nil, nil
	}

	u, err := NewUpdate(ctx, g.env, g.ns, rc.RefName, rc.OldRev, rc.NewRev)
	if err != nil {
		return nil, nil, err
	}

	if err := g.checkFastForward(ctx, u); err != nil {
		return nil, nil, err
	}
	if err := u.h.validate(ctx, g.env, u); err != nil {
		return nil, nil, err
	}

	cs, err := Enumerate(ctx, g.env.Graph, g.env.Refs, u)
	if err != nil {
		return nil, nil, err
	}

	if err := g.screenHistory(ctx, u, cs); err != nil {
		return nil, nil, err
	}
	if err := g.styleCheck(ctx, u, cs); err != nil {
		return nil, nil, err
	}

	return u, cs, nil
}

// Describe classifies and enumerates an update without re-running the
// policy checks. It serves the notification phase, which runs after
// the update has already been accepted.
func (g *Gate) Describe(ctx context.Context, rc RefChange) (*Update, *ChangeSet, error) {
	if rc.IsNoop() {
		return nil, nil, nil
	}
	u, err := NewUpdate(ctx, g.env, g.ns, rc.RefName, rc.OldRev, rc.NewRev)
	if err != nil {
		return nil, nil, err
	}
	if u.Transition() == TransitionUpdate {
		ff, err := g.env.Graph.IsAncestor(ctx, u.OldRev.String(), u.NewRev.String())
		if err != nil {
			return nil, nil, err
		}
		u.NonFastForward = !ff
	}
	cs, err := Enumerate(ctx, g.env.Graph, g.env.Refs, u)
	if err != nil {
		return nil, nil, err
	}
	return u, cs, nil
}

// NoEmails reports whether email notification is disabled for the
// reference.
func (g *Gate) NoEmails(refName string) (bool, error) {
	return g.refMatches("no-emails", refName)
}

// Options exposes the policy options the gate was built over.
func (g *Gate) Options() *policy.Options {
	return g.env.Options
}

// EmailContents renders the notification for a checked update.
func (g *Gate) EmailContents(ctx context.Context, u *Update, cs *ChangeSet) (subject, body string, err error) {
	return u.h.emailContents(ctx, g.env, u, cs)
}

// CheckPush runs the push-wide safety checks: the repository must have
// a notification destination configured, and the push must not
// introduce more new commits than the configured email ceiling. These
// reject the push as a whole, regardless of which references it
// touches.
func (g *Gate) CheckPush(ctx context.Context, changes []RefChange) error {
	if len(g.env.Options.List("mailing-list")) == 0 {
		return &ConfigError{
			Msg: "the repository has no hooks.mailing-list configuration option set",
		}
	}

	limit := g.env.Options.Int("max-commit-emails")
	if limit <= 0 {
		return nil
	}
	n, err := g.countNewCommits(ctx, changes)
	if err != nil {
		return err
	}
	if n > limit {
		return &PushError{Lines: []string{
			fmt.Sprintf("This update introduces %s, which would send", english.Plural(n, "new commit", "")),
			fmt.Sprintf("as many emails, exceeding the current limit (%d).", limit),
			"",
			"Contact your repository administrator if you really meant to",
			"generate this many commit emails.",
		}}
	}
	return nil
}

// countNewCommits totals the commits new to the repository across the
// whole push, deduplicated push-wide.
func (g *Gate) countNewCommits(ctx context.Context, changes []RefChange) (int, error) {
	// The snapshot has the push applied; exclude only the references
	// the push does not touch, or sibling updates would hide each
	// other's commits from the count.
	pushed := make([]string, 0, len(changes))
	for _, rc := range changes {
		pushed = append(pushed, rc.RefName)
	}
	untouched := g.env.Refs.Except(pushed...)

	seen := make(map[string]bool)
	for _, rc := range changes {
		if rc.IsNoop() || git.Hash(rc.NewRev).IsZero() {
			continue
		}
		exclude := untouched
		if old := git.Hash(rc.OldRev); !old.IsZero() {
			exclude = append(exclude[:len(exclude):len(exclude)], rc.OldRev)
		}
		ids, err := g.env.Graph.RevList(ctx, rc.NewRev, exclude...)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	return len(seen), nil
}

// checkFastForward enforces the fast-forward-only policy on branch
// updates. Other kinds are only marked so their notification carries
// the warning block.
func (g *Gate) checkFastForward(ctx context.Context, u *Update) error {
	if u.Transition() != TransitionUpdate {
		return nil
	}
	ff, err := g.env.Graph.IsAncestor(ctx, u.OldRev.String(), u.NewRev.String())
	if err != nil {
		return err
	}
	if ff {
		return nil
	}
	u.NonFastForward = true

	if u.Kind != KindBranch {
		return nil
	}
	allowed, err := g.refMatches("allow-non-fast-forward", u.RefName)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	return invalidf(u.RefName,
		fmt.Sprintf("Non-fast-forward updates are not allowed on branch '%s'.", u.ShortRef()),
		"",
		"The changes you are pushing rewrite history that has already been",
		"published. Fetch the branch, rebase or merge your work on top of",
		"the published history, and push again.",
		"",
		"Contact your repository administrator if you believe this",
		"non-fast-forward update is legitimate.",
	)
}

// refMatches reports whether the reference's full name matches one of
// the patterns configured under the given list option. Patterns are
// anchored regular expressions over full reference names; entries that
// do not start with refs/ predate that rule and never match.
func (g *Gate) refMatches(option, refName string) (bool, error) {
	for _, pat := range g.env.Options.List(option) {
		if !strings.HasPrefix(pat, "refs/") {
			g.logger.Warn("ignoring pattern not matching a full reference name",
				"option", option, "pattern", pat)
			continue
		}
		re, err := regexp.Compile("^(?:" + pat + ")$")
		if err != nil {
			return false, &ConfigError{
				Msg: fmt.Sprintf("invalid hooks.%s pattern %q", option, pat),
				Err: err,
			}
		}
		if re.MatchString(refName) {
			return true, nil
		}
	}
	return false, nil
}

// screenHistory inspects each commit new to the repository: merge
// commit policy, commit log charset, and the ticket number
// requirement. Deletions have nothing to screen.
func (g *Gate) screenHistory(ctx context.Context, u *Update, cs *ChangeSet) error {
	if u.Transition() == TransitionDelete {
		return nil
	}
	if u.Kind != KindBranch && !u.Kind.IsTag() {
		return nil
	}

	rejectMerges, err := g.refMatches("reject-merge-commits", u.RefName)
	if err != nil {
		return err
	}

	charset := g.env.Options.String("commit-log-charset")
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return &ConfigError{
			Msg: fmt.Sprintf("invalid hooks.commit-log-charset value %q", charset),
			Err: err,
		}
	}
	dec := enc.NewDecoder()

	ticketRequired := g.env.Options.Bool("ticket-required")
	var ticketRE *regexp.Regexp
	if ticketRequired {
		pat := g.env.Options.String("ticket-pattern")
		ticketRE, err = regexp.Compile(pat)
		if err != nil {
			return &ConfigError{
				Msg: fmt.Sprintf("invalid hooks.ticket-pattern value %q", pat),
				Err: err,
			}
		}
	}
	bypass := g.env.Options.String("ticket-bypass")

	for _, c := range cs.NewCommits() {
		if rejectMerges && isMergeCommit(c) {
			return invalidf(u.RefName,
				fmt.Sprintf("Merge commits are not allowed on %s.", u.RefName),
				"",
				fmt.Sprintf("    commit %s", c.ID),
				fmt.Sprintf("    Subject: %s", c.Subject),
				"",
				"Rebase your changes instead of merging, or cherry-pick the",
				"individual commits, and push again.",
			)
		}

		// Strict decoders are not available for every charset, so an
		// inexpressible byte shows up as the replacement rune instead
		// of an error. Note the direction: eight-bit charsets such as
		// ISO-8859-15 decode every byte sequence cleanly, so this only
		// rejects for charsets like UTF-8 where decoding can fail.
		decoded, derr := dec.String(c.Message)
		if derr != nil || strings.ContainsRune(decoded, utf8.RuneError) {
			return invalidf(u.RefName,
				fmt.Sprintf("The description of commit %s", c.ID),
				fmt.Sprintf("contains characters not valid in the %s charset.", charset),
				"",
				"Either fix the commit description, or change the repository's",
				"hooks.commit-log-charset configuration option to the charset",
				"the description is written in.",
			)
		}

		if ticketRequired &&
			!ticketRE.MatchString(c.Message) &&
			!strings.Contains(c.Message, bypass) {
			return invalidf(u.RefName,
				"The following commit is missing a ticket number:",
				"",
				fmt.Sprintf("    commit %s", c.ID),
				fmt.Sprintf("    Subject: %s", c.Subject),
				"",
				"Amend the commit description to reference the ticket this",
				fmt.Sprintf("change belongs to, or include the marker '%s'", bypass),
				"to bypass this check, and push again.",
			)
		}
	}
	return nil
}

// isMergeCommit recognizes a merge by the shape of its description.
func isMergeCommit(c *CommitInfo) bool {
	if mergeSubjectRE.MatchString(c.Subject) {
		return true
	}
	for _, line := range strings.Split(c.Message, "\n") {
		if strings.TrimSpace(line) == "Conflicts:" {
			return true
		}
	}
	return false
}

var mergeSubjectRE = regexp.MustCompile(`^Merge\b`)

// styleCheck submits the files touched by each new commit to the
// configured style checker. Paths deleted by a commit are never
// submitted.
func (g *Gate) styleCheck(ctx context.Context, u *Update, cs *ChangeSet) error {
	if g.checker == nil || !g.checker.Enabled() {
		return nil
	}
	// Notes references carry tool-managed content, not source files.
	if u.Transition() == TransitionDelete || (u.Kind != KindBranch && !u.Kind.IsTag()) {
		return nil
	}
	exempt, err := g.refMatches("no-style-checks", u.RefName)
	if err != nil {
		return err
	}
	if exempt {
		return nil
	}

	if g.checker.Combined {
		paths, err := g.collectPaths(ctx, cs.NewCommits())
		if err != nil {
			return err
		}
		return g.runChecker(ctx, u, u.NewRev.String(), paths)
	}

	// Every commit is checked even after a failure, so one push
	// surfaces every violation; any failure rejects the reference.
	var failed *InvalidUpdate
	for _, c := range cs.NewCommits() {
		paths, err := g.collectPaths(ctx, []*CommitInfo{c})
		if err != nil {
			return err
		}
		err = g.runChecker(ctx, u, c.ID, paths)
		if err == nil {
			continue
		}
		inv, ok := err.(*InvalidUpdate)
		if !ok {
			return err
		}
		if failed == nil {
			failed = inv
			continue
		}
		failed.Lines = append(failed.Lines, "")
		failed.Lines = append(failed.Lines, inv.Lines...)
	}
	if failed != nil {
		return failed
	}
	return nil
}

// collectPaths gathers the non-deleted paths touched by the given
// commits, deduplicated, in first-seen order.
func (g *Gate) collectPaths(ctx context.Context, commits []*CommitInfo) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range commits {
		changes, err := g.env.Graph.ChangedPaths(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		for _, fc := range changes {
			if fc.IsDelete() || seen[fc.Path] {
				continue
			}
			seen[fc.Path] = true
			paths = append(paths, fc.Path)
		}
	}
	return g.checker.Filter(ctx, paths)
}

func (g *Gate) runChecker(ctx context.Context, u *Update, commitID string, paths []string) error {
	err := g.checker.Check(ctx, commitID, paths)
	if err == nil {
		return nil
	}
	if cerr, ok := err.(*stylecheck.CheckError); ok {
		lines := []string{
			fmt.Sprintf("Style check failed for commit %s:", cerr.Commit),
			"",
		}
		lines = append(lines, cerr.Output...)
		return &InvalidUpdate{RefName: u.RefName, Lines: lines}
	}
	return &ConfigError{Msg: "unable to run the style checker", Err: err}
}
