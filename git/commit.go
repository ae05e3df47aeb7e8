package git

import (
	git "github.com/aymanbagabas/git-module"
)

// Commit is a wrapper around git.Commit with helper methods.
type Commit = git.Commit

// Signature is a commit author or committer signature.
type Signature = git.Signature

// Commits is a list of commits.
type Commits []*Commit

// Len implements sort.Interface.
func (cl Commits) Len() int { return len(cl) }

// Swap implements sort.Interface.
func (cl Commits) Swap(i, j int) { cl[i], cl[j] = cl[j], cl[i] }

// Less implements sort.Interface.
func (cl Commits) Less(i, j int) bool {
	return cl[i].Author.When.After(cl[j].Author.When)
}
