package git

import (
	"path/filepath"
	"strings"

	git "github.com/aymanbagabas/git-module"
)

// Repository is a wrapper around git.Repository with helper methods.
type Repository struct {
	*git.Repository
	Path   string
	IsBare bool
}

// Init initializes and opens a new git repository.
func Init(path string, bare bool) (*Repository, error) {
	if bare {
		path = strings.TrimSuffix(path, ".git") + ".git"
	}

	err := git.Init(path, git.InitOptions{Bare: bare})
	if err != nil {
		return nil, err
	}
	return Open(path)
}

func isInsideWorkTree(r *git.Repository) bool {
	out, err := r.RevParse("--is-inside-work-tree")
	return err == nil && out == "true"
}

func gitDir(r *git.Repository) (string, error) {
	return r.RevParse("--git-dir")
}

// Open opens a git repository at the given path.
func Open(path string) (*Repository, error) {
	repo, err := git.Open(path)
	if err != nil {
		return nil, err
	}
	gp, err := gitDir(repo)
	if err != nil || (gp != "." && gp != ".git") {
		return nil, ErrNotAGitRepository
	}
	return &Repository{
		Repository: repo,
		Path:       path,
		IsBare:     gp == ".",
	}, nil
}

// Name returns the name of the repository.
func (r *Repository) Name() string {
	return strings.TrimSuffix(filepath.Base(r.Path), ".git")
}

// HEAD returns the HEAD reference for a repository.
func (r *Repository) HEAD() (*Reference, error) {
	rn, err := r.Repository.SymbolicRef(git.SymbolicRefOptions{Name: HEAD})
	if err != nil {
		return nil, err
	}
	hash, err := r.ShowRefVerify(rn)
	if err != nil {
		return nil, err
	}
	return &Reference{
		Reference: &git.Reference{
			ID:      hash,
			Refspec: rn,
		},
		Hash: Hash(hash),
		path: r.Path,
	}, nil
}

// References returns the references for a repository.
func (r *Repository) References() ([]*Reference, error) {
	refs, err := r.ShowRef()
	if err != nil {
		return nil, err
	}
	rrefs := make([]*Reference, 0, len(refs))
	for _, ref := range refs {
		rrefs = append(rrefs, &Reference{
			Reference: ref,
			Hash:      Hash(ref.ID),
			path:      r.Path,
		})
	}
	return rrefs, nil
}

// ObjectType returns the type of the object at the given revision.
func (r *Repository) ObjectType(rev string) (ObjectType, error) {
	out, err := NewCommand("cat-file", "-t", rev).RunInDir(r.Path)
	if err != nil {
		return "", err
	}
	return ObjectType(strings.TrimSpace(string(out))), nil
}

// IsAncestor reports whether a is an ancestor of b.
func (r *Repository) IsAncestor(a, b string) bool {
	_, err := NewCommand("merge-base", "--is-ancestor", a, b).RunInDir(r.Path)
	return err == nil
}

// RevList lists commit ids reachable from include but from none of the
// excluded revisions, ordered from most ancestral to most recent.
func (r *Repository) RevList(include string, exclude ...string) ([]string, error) {
	cmd := NewCommand("rev-list", "--topo-order", "--reverse", include)
	for _, e := range exclude {
		cmd.AddArgs("^" + e)
	}
	out, err := cmd.RunInDir(r.Path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

// ChangedPaths returns the files changed by the given commit, with their
// change status (A, M, D...). Works for root commits as well.
func (r *Repository) ChangedPaths(rev string) ([][2]string, error) {
	out, err := NewCommand("diff-tree", "--no-commit-id", "--name-status", "-r", "--root", rev).
		RunInDir(r.Path)
	if err != nil {
		return nil, err
	}
	changes := make([][2]string, 0)
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(strings.TrimRight(line, "\n"), "\t", 2)
		if len(parts) != 2 {
			continue
		}
		changes = append(changes, [2]string{parts[0], parts[1]})
	}
	return changes, nil
}

// ShowBlob returns the contents of a blob at the given revision path,
// i.e. "refs/meta/config:project.config".
func (r *Repository) ShowBlob(spec string) ([]byte, error) {
	return NewCommand("cat-file", "blob", spec).RunInDir(r.Path)
}

// Show returns the stat and patch output for the given commit.
func (r *Repository) Show(rev string) ([]byte, error) {
	return NewCommand("show", "--stat", "--patch", rev).RunInDir(r.Path)
}

// DiffStat returns the diffstat between two revisions.
func (r *Repository) DiffStat(old, new string) ([]byte, error) {
	return NewCommand("diff", "--stat", old, new).RunInDir(r.Path)
}

// UpdateServerInfo updates the repository server info.
func (r *Repository) UpdateServerInfo() error {
	_, err := NewCommand("update-server-info").RunInDir(r.Path)
	return err
}

// SymbolicRef returns or updates the symbolic reference for the given name.
// Both name and ref can be empty.
func (r *Repository) SymbolicRef(name string, ref string) (string, error) {
	opt := git.SymbolicRefOptions{
		Name: name,
		Ref:  ref,
	}
	return r.Repository.SymbolicRef(opt)
}
