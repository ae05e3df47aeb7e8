package gate

import (
	"context"
	"fmt"
	"strings"
)

// Notes references track git-notes history. They behave mostly like
// branches, except that deleting them is never allowed: the notes
// history is the only record of the notes' contents.

func notesSanity(u *Update, tr Transition) {
	if u.Kind != KindNotes {
		defectf("notes handler attached to a %s update of %s", u.Kind, u.RefName)
	}
	checkRevShape(u, tr)
}

type notesCreate struct{ baseHandler }

func (notesCreate) sanityCheck(u *Update) {
	notesSanity(u, TransitionCreate)
}

func (notesCreate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (notesCreate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Created", u)
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body := []string{
		fmt.Sprintf("The notes reference '%s' was created pointing to:", u.RefName),
		"",
		ptr,
		"",
	}
	if cs.NeedsSummary() {
		body = append(body, summarySection(cs)...)
	}
	return subject, strings.Join(body, "\n"), nil
}

type notesUpdate struct{ baseHandler }

func (notesUpdate) sanityCheck(u *Update) {
	notesSanity(u, TransitionUpdate)
}

func (notesUpdate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (notesUpdate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Updated", u)
	body := make([]string, 0)
	if u.NonFastForward {
		body = append(body, nonFastForwardWarning(u)...)
	}
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body = append(body,
		fmt.Sprintf("The notes reference '%s' was updated to point to:", u.RefName),
		"",
		ptr,
		"",
		fmt.Sprintf("It previously pointed to %s.", u.OldRev),
		"",
	)
	body = append(body, summarySection(cs)...)
	return subject, strings.Join(body, "\n"), nil
}

type notesDelete struct{ baseHandler }

func (notesDelete) sanityCheck(u *Update) {
	notesSanity(u, TransitionDelete)
}

func (notesDelete) validate(_ context.Context, _ *Env, u *Update) error {
	return invalidf(u.RefName,
		"Deleting a notes reference is not allowed.",
		"",
		"Notes references carry the history of the notes attached to your",
		fmt.Sprintf("commits, and deleting '%s' would discard that history.", u.RefName),
	)
}

func (notesDelete) emailContents(context.Context, *Env, *Update, *ChangeSet) (string, string, error) {
	// Deletion is always rejected, so no notification is ever built.
	defectf("emailContents called for a notes deletion")
	return "", "", nil
}
