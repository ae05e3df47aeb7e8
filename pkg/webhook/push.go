package webhook

import (
	"github.com/refgate/refgate/pkg/gate"
)

// Commit is one commit carried by a push event.
type Commit struct {
	// ID is the commit SHA.
	ID string `json:"id" url:"id"`
	// Title is the commit subject.
	Title string `json:"title" url:"title"`
	// Message is the full commit message.
	Message string `json:"message" url:"message"`
	// Author is the commit author.
	Author string `json:"author" url:"author"`
}

// PushEvent is a push event.
type PushEvent struct {
	// Repo is the repository name.
	Repo string `json:"repo" url:"repo"`
	// Ref is the full reference name.
	Ref string `json:"ref" url:"ref"`
	// RefKind is the classified reference kind.
	RefKind string `json:"ref_kind" url:"ref_kind"`
	// Before is the previous commit SHA.
	Before string `json:"before" url:"before"`
	// After is the current commit SHA.
	After string `json:"after" url:"after"`
	// Pusher is the user the push ran as.
	Pusher string `json:"pusher" url:"pusher"`
	// Commits is the list of commits new to the repository.
	Commits []Commit `json:"commits" url:"commits"`
}

// maxEventCommits bounds the payload size of a single event.
const maxEventCommits = 20

// NewPushEvent builds the push event payload for one checked update.
func NewPushEvent(repoName, pusher string, u *gate.Update, cs *gate.ChangeSet) PushEvent {
	payload := PushEvent{
		Repo:    repoName,
		Ref:     u.RefName,
		RefKind: u.Kind.String(),
		Before:  u.OldRev.String(),
		After:   u.NewRev.String(),
		Pusher:  pusher,
	}

	for _, c := range cs.NewCommits() {
		if len(payload.Commits) == maxEventCommits {
			break
		}
		payload.Commits = append(payload.Commits, Commit{
			ID:      c.ID,
			Title:   c.Subject,
			Message: c.Message,
			Author:  c.Author,
		})
	}

	return payload
}
