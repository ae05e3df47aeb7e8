package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
)

// Email rendering building blocks shared by the update variants. All
// sections are plain text; the notification sink is indifferent to the
// transport.

func subjectLine(e *Env, verb string, u *Update) string {
	return fmt.Sprintf("[%s] %s %s '%s'", e.RepoName, verb, u.Kind, u.ShortRef())
}

// nonFastForwardWarning is the conspicuous block preceding the body of a
// non-fast-forward update email.
func nonFastForwardWarning(u *Update) []string {
	return []string{
		"!!! WARNING: This update is NOT a fast-forward of the previous revision.",
		fmt.Sprintf("!!! The history of '%s' has been rewritten; anyone who already", u.ShortRef()),
		"!!! fetched the old revisions must rebase their local work.",
		"",
	}
}

// tagRewriteNotice is the block warning about an in-place tag value
// change, which does not propagate to clients that already fetched the
// old tag.
func tagRewriteNotice(u *Update) []string {
	return []string{
		"IMPORTANT NOTICE:",
		"",
		fmt.Sprintf("The %s '%s' was modified in place. Tag updates do not", u.Kind, u.ShortRef()),
		"propagate: clients that already fetched the old tag will keep it",
		"until they delete it locally and fetch again.",
		"",
	}
}

// lostBanner flags commits that became permanently unreachable.
const lostBanner = "!!! THE FOLLOWING COMMITS ARE NO LONGER ACCESSIBLE (LOST):"

func lostSection(cs *ChangeSet) []string {
	if len(cs.Lost) == 0 {
		return nil
	}
	lines := []string{
		lostBanner,
		strings.Repeat("-", len(lostBanner)),
		"",
	}
	for _, ci := range cs.Lost {
		lines = append(lines, "  "+ci.Oneline())
	}
	lines = append(lines, "")
	return lines
}

// summarySection renders the "Summary of changes" narrative, oldest
// commit first. It is emitted iff the update added or lost commits.
func summarySection(cs *ChangeSet) []string {
	if !cs.NeedsSummary() {
		return nil
	}
	lines := []string{
		"Summary of changes:",
		"-------------------",
		"",
	}
	preExisting := false
	for _, ci := range cs.Added {
		line := "  " + ci.Oneline()
		if ci.PreExisting {
			line += " (*)"
			preExisting = true
		}
		lines = append(lines, line)
	}
	if preExisting {
		lines = append(lines,
			"",
			"(*) This commit already exists in another reference of this",
			"    repository; no separate commit email is sent for it.")
	}
	lines = append(lines, "")
	lines = append(lines, lostSection(cs)...)
	return lines
}

// changedFilesSection summarizes the union of files touched by the added
// commits, skipping pre-existing ones.
func changedFilesSection(ctx context.Context, e *Env, cs *ChangeSet) ([]string, error) {
	type entry struct {
		status string
		path   string
	}
	seen := make(map[string]int)
	entries := make([]entry, 0)
	for _, ci := range cs.Added {
		if ci.PreExisting {
			continue
		}
		changes, err := e.Graph.ChangedPaths(ctx, ci.ID)
		if err != nil {
			return nil, fmt.Errorf("changed paths of %s: %w", ci.ShortID(), err)
		}
		for _, c := range changes {
			if i, ok := seen[c.Path]; ok {
				entries[i].status = c.Status
				continue
			}
			seen[c.Path] = len(entries)
			entries = append(entries, entry{status: c.Status, path: c.Path})
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	lines := []string{
		fmt.Sprintf("%s changed:", english.Plural(len(entries), "file", "")),
		"",
	}
	for _, en := range entries {
		lines = append(lines, fmt.Sprintf("  %s  %s", en.status, en.path))
	}
	lines = append(lines, "")
	return lines, nil
}

func pointerLine(ctx context.Context, e *Env, rev string) (string, error) {
	ci, err := e.Graph.CommitInfo(ctx, rev)
	if err != nil {
		return "", fmt.Errorf("commit info of %s: %w", rev, err)
	}
	return "  " + ci.Oneline(), nil
}
