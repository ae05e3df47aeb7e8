package gate

import (
	"context"
	"fmt"
	"strings"
)

// Branch update variants.

func branchSanity(u *Update, tr Transition) {
	if u.Kind != KindBranch {
		defectf("branch handler attached to a %s update of %s", u.Kind, u.RefName)
	}
	if !strings.HasPrefix(u.RefName, "refs/") {
		defectf("branch reference %q outside refs/", u.RefName)
	}
	checkRevShape(u, tr)
}

type branchCreate struct{ baseHandler }

func (branchCreate) sanityCheck(u *Update) {
	branchSanity(u, TransitionCreate)
}

func (branchCreate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (branchCreate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Created", u)
	body := make([]string, 0)
	if u.NonFastForward {
		body = append(body, nonFastForwardWarning(u)...)
	}
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body = append(body,
		fmt.Sprintf("The branch '%s' was created pointing to:", u.ShortRef()),
		"",
		ptr,
		"",
	)
	if cs.NeedsSummary() {
		files, err := changedFilesSection(ctx, e, cs)
		if err != nil {
			return "", "", err
		}
		body = append(body, files...)
		body = append(body, summarySection(cs)...)
	}
	return subject, strings.Join(body, "\n"), nil
}

type branchUpdate struct{ baseHandler }

func (branchUpdate) sanityCheck(u *Update) {
	branchSanity(u, TransitionUpdate)
}

func (branchUpdate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (branchUpdate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Updated", u)
	if len(cs.Added) == 1 {
		subject = fmt.Sprintf("[%s/%s] %s", e.RepoName, u.ShortRef(), cs.Added[0].Subject)
	}
	body := make([]string, 0)
	if u.NonFastForward {
		body = append(body, nonFastForwardWarning(u)...)
	}
	newPtr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	oldPtr, err := pointerLine(ctx, e, u.OldRev.String())
	if err != nil {
		return "", "", err
	}
	body = append(body,
		fmt.Sprintf("The branch '%s' was updated to point to:", u.ShortRef()),
		"",
		newPtr,
		"",
		"It previously pointed to:",
		"",
		oldPtr,
		"",
	)
	if len(cs.Added) > 0 {
		files, err := changedFilesSection(ctx, e, cs)
		if err != nil {
			return "", "", err
		}
		body = append(body, files...)
	}
	body = append(body, summarySection(cs)...)
	return subject, strings.Join(body, "\n"), nil
}

type branchDelete struct{ baseHandler }

func (branchDelete) sanityCheck(u *Update) {
	branchSanity(u, TransitionDelete)
}

func (branchDelete) validate(_ context.Context, e *Env, u *Update) error {
	if !e.Options.Bool("allow-delete-branch") {
		return invalidf(u.RefName,
			"Deleting a branch is not allowed in this repository.",
			fmt.Sprintf("The branch '%s' therefore cannot be deleted.", u.ShortRef()),
		)
	}
	return nil
}

func (branchDelete) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Deleted", u)
	oldPtr, err := pointerLine(ctx, e, u.OldRev.String())
	if err != nil {
		return "", "", err
	}
	body := []string{
		fmt.Sprintf("The branch '%s' was deleted.", u.ShortRef()),
		"",
		"It previously pointed to:",
		"",
		oldPtr,
		"",
	}
	// Deletion emails always carry the summary.
	body = append(body, summarySection(cs)...)
	if len(cs.Lost) == 0 {
		body = append(body,
			"All commits that were reachable from it are still reachable",
			"from other references.",
			"")
	}
	return subject, strings.Join(body, "\n"), nil
}
