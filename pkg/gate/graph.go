package gate

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/refgate/refgate/git"
)

// CommitInfo is a single commit's metadata as needed for validation and
// notification. Produced lazily by the graph accessor and never mutated
// after creation, except for the PreExisting mark set during enumeration.
type CommitInfo struct {
	ID      string
	Author  string
	Subject string
	Message string

	// PreExisting is set when the commit was already reachable from
	// another reference at the time this reference was processed.
	PreExisting bool
}

// ShortID returns an abbreviated commit id.
func (c *CommitInfo) ShortID() string {
	if len(c.ID) > 10 {
		return c.ID[:10]
	}
	return c.ID
}

// Oneline returns the commit in "shortid subject" form.
func (c *CommitInfo) Oneline() string {
	return fmt.Sprintf("%s... %s", c.ShortID(), c.Subject)
}

// FileChange is one path touched by a commit, with its git status letter
// (A, M, D, ...).
type FileChange struct {
	Path   string
	Status string
}

// IsDelete reports whether the change removes the path.
func (f FileChange) IsDelete() bool {
	return strings.HasPrefix(f.Status, "D")
}

// Graph is the commit graph accessor consumed by the gate. It wraps the
// underlying version control system's plumbing as a pure query interface;
// no caching is carried across push invocations.
type Graph interface {
	// ObjectType returns the object type at the given revision.
	ObjectType(ctx context.Context, rev string) (git.ObjectType, error)

	// IsAncestor reports whether a is an ancestor of b.
	IsAncestor(ctx context.Context, a, b string) (bool, error)

	// RevList returns the ids of commits reachable from include but from
	// none of the excluded revisions, most ancestral first.
	RevList(ctx context.Context, include string, exclude ...string) ([]string, error)

	// CommitInfo returns the commit's metadata.
	CommitInfo(ctx context.Context, rev string) (*CommitInfo, error)

	// ChangedPaths returns the files changed by the given commit.
	ChangedPaths(ctx context.Context, rev string) ([]FileChange, error)
}

// commitCacheSize bounds the per-push commit metadata cache.
const commitCacheSize = 1024

type repoGraph struct {
	repo    *git.Repository
	commits *lru.Cache[string, *CommitInfo]
}

// NewGraph returns a Graph backed by the given repository.
func NewGraph(repo *git.Repository) (Graph, error) {
	cache, err := lru.New[string, *CommitInfo](commitCacheSize)
	if err != nil {
		return nil, err
	}
	return &repoGraph{repo: repo, commits: cache}, nil
}

func (g *repoGraph) ObjectType(_ context.Context, rev string) (git.ObjectType, error) {
	return g.repo.ObjectType(rev)
}

func (g *repoGraph) IsAncestor(_ context.Context, a, b string) (bool, error) {
	return g.repo.IsAncestor(a, b), nil
}

func (g *repoGraph) RevList(_ context.Context, include string, exclude ...string) ([]string, error) {
	return g.repo.RevList(include, exclude...)
}

func (g *repoGraph) CommitInfo(_ context.Context, rev string) (*CommitInfo, error) {
	if ci, ok := g.commits.Get(rev); ok {
		return ci, nil
	}
	c, err := g.repo.CatFileCommit(rev)
	if err != nil {
		return nil, err
	}
	ci := &CommitInfo{
		ID:      c.ID.String(),
		Author:  fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		Subject: c.Summary(),
		Message: c.Message,
	}
	g.commits.Add(rev, ci)
	return ci, nil
}

func (g *repoGraph) ChangedPaths(_ context.Context, rev string) ([]FileChange, error) {
	raw, err := g.repo.ChangedPaths(rev)
	if err != nil {
		return nil, err
	}
	changes := make([]FileChange, 0, len(raw))
	for _, c := range raw {
		changes = append(changes, FileChange{Status: c[0], Path: c[1]})
	}
	return changes, nil
}
