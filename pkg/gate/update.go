package gate

import (
	"context"
	"fmt"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/policy"
)

// Transition is the shape of a reference update.
type Transition int

// Transitions.
const (
	TransitionCreate Transition = iota
	TransitionUpdate
	TransitionDelete
)

// String implements fmt.Stringer.
func (t Transition) String() string {
	switch t {
	case TransitionCreate:
		return "create"
	case TransitionUpdate:
		return "update"
	case TransitionDelete:
		return "delete"
	}
	return "unknown"
}

// Env carries the collaborators an update consults during validation and
// email generation. It is owned by the orchestrator for the duration of
// one push.
type Env struct {
	Options *policy.Options
	Graph   Graph
	Refs    *References

	// RepoName names the repository in email subjects.
	RepoName string
}

// Update represents one reference transition within a push. It is
// constructed once per reference after classification, validated
// synchronously, and discarded when the push completes.
type Update struct {
	RefName string
	Kind    RefKind
	OldRev  git.Hash
	NewRev  git.Hash

	// NonFastForward is set by the orchestrator when the transition
	// rewinds history but is allowed by configuration; the email body
	// then carries a conspicuous warning block.
	NonFastForward bool

	h handler
}

// Transition derives the transition shape from the revision pair.
func (u *Update) Transition() Transition {
	switch {
	case u.OldRev.IsZero():
		return TransitionCreate
	case u.NewRev.IsZero():
		return TransitionDelete
	}
	return TransitionUpdate
}

// ShortRef returns the short reference name, i.e. master.
func (u *Update) ShortRef() string {
	return git.ReferenceName(u.RefName).Short()
}

// handler is the kind-and-transition specific behavior of an update.
// Variants that do not override a capability inherit the defaulting base
// implementation, which fails loudly: an unimplemented capability being
// reached is a bug in the gate, never a user error.
type handler interface {
	sanityCheck(u *Update)
	validate(ctx context.Context, e *Env, u *Update) error
	emailContents(ctx context.Context, e *Env, u *Update, cs *ChangeSet) (subject, body string, err error)
}

// baseHandler is the defaulting implementation standing in for an
// abstract method that was not overridden.
type baseHandler struct {
	kind RefKind
	tr   Transition
}

func (h baseHandler) sanityCheck(u *Update) {
	defectf("sanity check not implemented for %s %s of %s", h.kind, h.tr, u.RefName)
}

func (h baseHandler) validate(context.Context, *Env, *Update) error {
	defectf("validation not implemented for %s %s", h.kind, h.tr)
	return nil
}

func (h baseHandler) emailContents(context.Context, *Env, *Update, *ChangeSet) (string, string, error) {
	defectf("email contents not implemented for %s %s", h.kind, h.tr)
	return "", "", nil
}

// handlerFor selects the variant for a (kind, transition) pair. Pairs
// outside the supported matrix fall through to the defaulting base.
func handlerFor(kind RefKind, tr Transition) handler {
	base := baseHandler{kind: kind, tr: tr}
	switch kind {
	case KindBranch:
		switch tr {
		case TransitionCreate:
			return branchCreate{base}
		case TransitionUpdate:
			return branchUpdate{base}
		case TransitionDelete:
			return branchDelete{base}
		}
	case KindAnnotatedTag:
		switch tr {
		case TransitionCreate:
			return annotatedTagCreate{base}
		case TransitionUpdate:
			return annotatedTagUpdate{base}
		case TransitionDelete:
			return annotatedTagDelete{base}
		}
	case KindLightweightTag:
		switch tr {
		case TransitionCreate:
			return lightweightTagCreate{base}
		case TransitionUpdate:
			return lightweightTagUpdate{base}
		case TransitionDelete:
			return lightweightTagDelete{base}
		}
	case KindUnannotatedTag:
		switch tr {
		case TransitionCreate:
			return unannotatedTagCreate{base}
		case TransitionUpdate:
			return unannotatedTagUpdate{base}
		case TransitionDelete:
			return unannotatedTagDelete{base}
		}
	case KindNotes:
		switch tr {
		case TransitionCreate:
			return notesCreate{base}
		case TransitionUpdate:
			return notesUpdate{base}
		case TransitionDelete:
			return notesDelete{base}
		}
	}
	return base
}

// NewUpdate classifies a reference transition and constructs its Update.
// It returns an *InvalidUpdate for unrecognized references; violated
// construction invariants are defects.
func NewUpdate(ctx context.Context, e *Env, ns Namespaces, refName, oldRev, newRev string) (*Update, error) {
	if refName == "" {
		defectf("empty reference name")
	}
	if oldRev == newRev {
		defectf("no-op transition for %s (%s)", refName, oldRev)
	}
	old, new := git.Hash(oldRev), git.Hash(newRev)
	if old.IsZero() && new.IsZero() {
		defectf("transition for %s with both revisions absent", refName)
	}

	u := &Update{
		RefName: refName,
		OldRev:  old,
		NewRev:  new,
	}

	kind, err := classify(ctx, e.Graph, ns, u)
	if err != nil {
		return nil, err
	}
	u.Kind = kind
	u.h = handlerFor(kind, u.Transition())
	u.h.sanityCheck(u)

	return u, nil
}

// classify maps the reference to its kind. For tag namespaces the kind
// depends on the relevant object's type: a tag object is an annotated
// tag, a commit is a lightweight tag, and anything else is an
// unannotated tag.
func classify(ctx context.Context, g Graph, ns Namespaces, u *Update) (RefKind, error) {
	switch ns.group(u.RefName) {
	case "branches":
		return KindBranch, nil
	case "notes":
		return KindNotes, nil
	case "tags":
		rev := u.NewRev
		if rev.IsZero() {
			rev = u.OldRev
		}
		typ, err := g.ObjectType(ctx, rev.String())
		if err != nil {
			return KindUnrecognized, fmt.Errorf("determine object type of %s: %w", rev, err)
		}
		switch typ {
		case git.ObjectTag:
			return KindAnnotatedTag, nil
		case git.ObjectCommit:
			return KindLightweightTag, nil
		}
		return KindUnannotatedTag, nil
	}

	lines := []string{
		fmt.Sprintf("Unable to determine the type of reference for: %s", u.RefName),
		"",
		"This repository currently recognizes the following reference namespaces:",
	}
	lines = append(lines, ns.Describe()...)
	return KindUnrecognized, &InvalidUpdate{RefName: u.RefName, Lines: lines}
}

// checkRevShape asserts the revision pair matches the transition the
// variant was selected for.
func checkRevShape(u *Update, tr Transition) {
	if got := u.Transition(); got != tr {
		defectf("%s handler invoked for a %s of %s", tr, got, u.RefName)
	}
}
