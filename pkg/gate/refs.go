package gate

import (
	"sort"

	"github.com/refgate/refgate/git"
)

// References is a snapshot of every reference in the repository, taken
// once at the start of a push. It is updated in memory as each
// reference's transition is accepted so later enumeration steps see the
// cumulative effect of earlier updates within the same push.
type References struct {
	refs map[string]string
}

// NewReferences takes a snapshot of the repository's references.
func NewReferences(repo *git.Repository) (*References, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(refs))
	for _, ref := range refs {
		m[ref.Name().String()] = ref.Hash.String()
	}
	return &References{refs: m}, nil
}

// NewReferencesMap builds a snapshot from a name to revision map.
func NewReferencesMap(m map[string]string) *References {
	refs := make(map[string]string, len(m))
	for name, hash := range m {
		refs[name] = hash
	}
	return &References{refs: refs}
}

// Get returns the revision the named reference points to.
func (r *References) Get(name string) (string, bool) {
	hash, ok := r.refs[name]
	return hash, ok
}

// Set records a new value for the named reference. A zero hash removes
// the reference from the snapshot.
func (r *References) Set(name, hash string) {
	if git.IsZeroHash(hash) {
		delete(r.refs, name)
		return
	}
	r.refs[name] = hash
}

// Len returns the number of references in the snapshot.
func (r *References) Len() int {
	return len(r.refs)
}

// Except returns the revisions of every reference other than the named
// ones, deduplicated, in stable order.
func (r *References) Except(names ...string) []string {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	seen := make(map[string]struct{}, len(r.refs))
	hashes := make([]string, 0, len(r.refs))
	for n, hash := range r.refs {
		if _, ok := skip[n]; ok {
			continue
		}
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}
