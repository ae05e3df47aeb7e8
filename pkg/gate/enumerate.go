package gate

import (
	"context"
)

// ChangeSet holds the commits a single reference update adds to or
// removes from the repository, oldest first.
type ChangeSet struct {
	// Added lists the commits reachable from the new revision that
	// were not reachable from the old one. Commits already reachable
	// from some other reference are included with PreExisting set.
	Added []*CommitInfo

	// Lost lists the commits that were reachable from the old
	// revision but are reachable from nowhere after the update.
	Lost []*CommitInfo
}

// NeedsSummary reports whether the change set warrants a
// "Summary of changes" section in notifications.
func (cs *ChangeSet) NeedsSummary() bool {
	return len(cs.Added) > 0 || len(cs.Lost) > 0
}

// NotificationCount returns the number of commits that are new to the
// repository as a whole, the ones individual commit emails cover.
func (cs *ChangeSet) NotificationCount() int {
	n := 0
	for _, c := range cs.Added {
		if !c.PreExisting {
			n++
		}
	}
	return n
}

// NewCommits returns the added commits that are new to the repository,
// oldest first.
func (cs *ChangeSet) NewCommits() []*CommitInfo {
	out := make([]*CommitInfo, 0, len(cs.Added))
	for _, c := range cs.Added {
		if !c.PreExisting {
			out = append(out, c)
		}
	}
	return out
}

// Enumerate computes the change set of a reference update. The refs
// snapshot must describe the repository with all updates of the push
// already applied, so that commits pushed to a sibling reference in
// the same push are seen as pre-existing rather than new.
func Enumerate(ctx context.Context, g Graph, refs *References, u *Update) (*ChangeSet, error) {
	cs := &ChangeSet{}
	others := refs.Except(u.RefName)

	switch u.Transition() {
	case TransitionCreate:
		// Everything reachable from the new revision but from no
		// other reference is new to this reference; whether it is
		// new to the repository is the same question here.
		ids, err := g.RevList(ctx, u.NewRev.String(), others...)
		if err != nil {
			return nil, err
		}
		cs.Added, err = resolveCommits(ctx, g, ids)
		if err != nil {
			return nil, err
		}

	case TransitionUpdate:
		ids, err := g.RevList(ctx, u.NewRev.String(), u.OldRev.String())
		if err != nil {
			return nil, err
		}
		exclude := append([]string{u.OldRev.String()}, others...)
		newIDs, err := g.RevList(ctx, u.NewRev.String(), exclude...)
		if err != nil {
			return nil, err
		}
		newToRepo := make(map[string]bool, len(newIDs))
		for _, id := range newIDs {
			newToRepo[id] = true
		}
		cs.Added = make([]*CommitInfo, 0, len(ids))
		for _, id := range ids {
			ci, err := g.CommitInfo(ctx, id)
			if err != nil {
				return nil, err
			}
			if !newToRepo[id] {
				// The graph may cache and share CommitInfo values,
				// so never flag the shared copy.
				dup := *ci
				dup.PreExisting = true
				ci = &dup
			}
			cs.Added = append(cs.Added, ci)
		}

	case TransitionDelete:
		// Nothing added; fall through to the lost computation.
	}

	if u.Transition() != TransitionCreate && !u.OldRev.IsZero() {
		exclude := others
		if !u.NewRev.IsZero() {
			exclude = append([]string{u.NewRev.String()}, others...)
		}
		ids, err := g.RevList(ctx, u.OldRev.String(), exclude...)
		if err != nil {
			return nil, err
		}
		cs.Lost, err = resolveCommits(ctx, g, ids)
		if err != nil {
			return nil, err
		}
	}

	return cs, nil
}

func resolveCommits(ctx context.Context, g Graph, ids []string) ([]*CommitInfo, error) {
	out := make([]*CommitInfo, 0, len(ids))
	for _, id := range ids {
		ci, err := g.CommitInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, nil
}
