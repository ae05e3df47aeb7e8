package gate

import (
	"context"
	"fmt"
	"strings"
)

// Tag update variants. Annotated tags point at tag objects, lightweight
// tags at commits, unannotated tags at anything else.

func tagSanity(u *Update, kind RefKind, tr Transition) {
	if u.Kind != kind {
		defectf("%s handler attached to a %s update of %s", kind, u.Kind, u.RefName)
	}
	checkRevShape(u, tr)
}

func validateTagDeletion(e *Env, u *Update) error {
	if !e.Options.Bool("allow-delete-tag") {
		return invalidf(u.RefName,
			"Deleting a tag is not allowed in this repository.",
			fmt.Sprintf("The tag '%s' therefore cannot be deleted.", u.ShortRef()),
		)
	}
	return nil
}

func tagDeletionEmail(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Deleted", u)
	body := []string{
		fmt.Sprintf("The %s '%s' was deleted.", u.Kind, u.ShortRef()),
		fmt.Sprintf("It previously pointed to %s.", u.OldRev),
		"",
	}
	body = append(body, summarySection(cs)...)
	return subject, strings.Join(body, "\n"), nil
}

// Annotated tags.

type annotatedTagCreate struct{ baseHandler }

func (annotatedTagCreate) sanityCheck(u *Update) {
	tagSanity(u, KindAnnotatedTag, TransitionCreate)
}

func (annotatedTagCreate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (annotatedTagCreate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Created", u)
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body := []string{
		fmt.Sprintf("The annotated tag '%s' was created pointing to:", u.ShortRef()),
		"",
		ptr,
		"",
	}
	if cs.NeedsSummary() {
		body = append(body, summarySection(cs)...)
	}
	return subject, strings.Join(body, "\n"), nil
}

type annotatedTagUpdate struct{ baseHandler }

func (annotatedTagUpdate) sanityCheck(u *Update) {
	tagSanity(u, KindAnnotatedTag, TransitionUpdate)
}

func (annotatedTagUpdate) validate(context.Context, *Env, *Update) error {
	return nil
}

func (annotatedTagUpdate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Updated", u)
	body := make([]string, 0)
	body = append(body, tagRewriteNotice(u)...)
	if u.NonFastForward {
		body = append(body, nonFastForwardWarning(u)...)
	}
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body = append(body,
		fmt.Sprintf("The annotated tag '%s' now points to:", u.ShortRef()),
		"",
		ptr,
		"",
		fmt.Sprintf("It previously pointed to %s.", u.OldRev),
		"",
	)
	body = append(body, summarySection(cs)...)
	return subject, strings.Join(body, "\n"), nil
}

type annotatedTagDelete struct{ baseHandler }

func (annotatedTagDelete) sanityCheck(u *Update) {
	tagSanity(u, KindAnnotatedTag, TransitionDelete)
}

func (annotatedTagDelete) validate(_ context.Context, e *Env, u *Update) error {
	return validateTagDeletion(e, u)
}

func (annotatedTagDelete) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	return tagDeletionEmail(ctx, e, u, cs)
}

// Lightweight tags.

type lightweightTagCreate struct{ baseHandler }

func (lightweightTagCreate) sanityCheck(u *Update) {
	tagSanity(u, KindLightweightTag, TransitionCreate)
}

func (lightweightTagCreate) validate(_ context.Context, e *Env, u *Update) error {
	if !e.Options.Bool("allow-lightweight-tag") {
		return invalidf(u.RefName,
			fmt.Sprintf("Lightweight tags ('%s' in this push) are not allowed in this", u.ShortRef()),
			"repository. Use 'git tag [-a|-s]' to create an annotated tag",
			"instead, and push again.",
		)
	}
	return nil
}

func (lightweightTagCreate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Created", u)
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body := []string{
		fmt.Sprintf("The lightweight tag '%s' was created pointing to:", u.ShortRef()),
		"",
		ptr,
		"",
	}
	if cs.NeedsSummary() {
		body = append(body, summarySection(cs)...)
	}
	return subject, strings.Join(body, "\n"), nil
}

type lightweightTagUpdate struct{ baseHandler }

func (lightweightTagUpdate) sanityCheck(u *Update) {
	tagSanity(u, KindLightweightTag, TransitionUpdate)
}

func (lightweightTagUpdate) validate(_ context.Context, e *Env, u *Update) error {
	if !e.Options.Bool("allow-lightweight-tag") {
		return invalidf(u.RefName,
			fmt.Sprintf("Lightweight tags ('%s' in this push) are not allowed in this", u.ShortRef()),
			"repository. Use 'git tag [-a|-s]' to create an annotated tag",
			"instead, and push again.",
		)
	}
	return nil
}

func (lightweightTagUpdate) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Updated", u)
	body := make([]string, 0)
	body = append(body, tagRewriteNotice(u)...)
	if u.NonFastForward {
		body = append(body, nonFastForwardWarning(u)...)
	}
	ptr, err := pointerLine(ctx, e, u.NewRev.String())
	if err != nil {
		return "", "", err
	}
	body = append(body,
		fmt.Sprintf("The lightweight tag '%s' now points to:", u.ShortRef()),
		"",
		ptr,
		"",
		fmt.Sprintf("It previously pointed to %s.", u.OldRev),
		"",
	)
	body = append(body, summarySection(cs)...)
	return subject, strings.Join(body, "\n"), nil
}

type lightweightTagDelete struct{ baseHandler }

func (lightweightTagDelete) sanityCheck(u *Update) {
	tagSanity(u, KindLightweightTag, TransitionDelete)
}

func (lightweightTagDelete) validate(_ context.Context, e *Env, u *Update) error {
	return validateTagDeletion(e, u)
}

func (lightweightTagDelete) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	return tagDeletionEmail(ctx, e, u, cs)
}

// Unannotated tags point at tree or blob objects.

type unannotatedTagCreate struct{ baseHandler }

func (unannotatedTagCreate) sanityCheck(u *Update) {
	tagSanity(u, KindUnannotatedTag, TransitionCreate)
}

func (unannotatedTagCreate) validate(_ context.Context, e *Env, u *Update) error {
	if !e.Options.Bool("allow-unannotated-tag") {
		return invalidf(u.RefName,
			fmt.Sprintf("Unannotated tags ('%s' in this push) are not allowed in this", u.ShortRef()),
			"repository. Use 'git tag [-a|-s]' to create an annotated tag",
			"instead, and push again.",
		)
	}
	return nil
}

func (unannotatedTagCreate) emailContents(_ context.Context, e *Env, u *Update, _ *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Created", u)
	body := strings.Join([]string{
		fmt.Sprintf("The unannotated tag '%s' was created pointing to the", u.ShortRef()),
		fmt.Sprintf("object %s.", u.NewRev),
		"",
	}, "\n")
	return subject, body, nil
}

type unannotatedTagUpdate struct{ baseHandler }

func (unannotatedTagUpdate) sanityCheck(u *Update) {
	tagSanity(u, KindUnannotatedTag, TransitionUpdate)
}

func (unannotatedTagUpdate) validate(_ context.Context, e *Env, u *Update) error {
	if !e.Options.Bool("allow-unannotated-tag") {
		return invalidf(u.RefName,
			fmt.Sprintf("Unannotated tags ('%s' in this push) are not allowed in this", u.ShortRef()),
			"repository. Use 'git tag [-a|-s]' to create an annotated tag",
			"instead, and push again.",
		)
	}
	return nil
}

func (unannotatedTagUpdate) emailContents(_ context.Context, e *Env, u *Update, _ *ChangeSet) (string, string, error) {
	subject := subjectLine(e, "Updated", u)
	body := make([]string, 0)
	body = append(body, tagRewriteNotice(u)...)
	body = append(body,
		fmt.Sprintf("The unannotated tag '%s' now points to the object %s.", u.ShortRef(), u.NewRev),
		fmt.Sprintf("It previously pointed to %s.", u.OldRev),
		"",
	)
	return subject, strings.Join(body, "\n"), nil
}

type unannotatedTagDelete struct{ baseHandler }

func (unannotatedTagDelete) sanityCheck(u *Update) {
	tagSanity(u, KindUnannotatedTag, TransitionDelete)
}

func (unannotatedTagDelete) validate(_ context.Context, e *Env, u *Update) error {
	return validateTagDeletion(e, u)
}

func (unannotatedTagDelete) emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (string, string, error) {
	return tagDeletionEmail(ctx, e, u, cs)
}
