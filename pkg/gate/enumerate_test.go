package gate

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/policy"
)

func mustUpdate(t *testing.T, e *Env, refName, oldRev, newRev string) *Update {
	t.Helper()
	ns, err := NewNamespaces(e.Options)
	if err != nil {
		t.Fatal(err)
	}
	u, err := NewUpdate(context.TODO(), e, ns, refName, oldRev, newRev)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func ids(cis []*CommitInfo) []string {
	out := make([]string, 0, len(cis))
	for _, ci := range cis {
		out = append(out, ci.ID)
	}
	return out
}

func TestEnumerateCreate(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{
		"refs/heads/master":  c3,
		"refs/heads/feature": c5,
	})
	u := mustUpdate(t, e, "refs/heads/feature", git.ZeroHash, c5)
	cs, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	is.Equal(ids(cs.Added), []string{c4, c5}) // oldest first
	is.Equal(len(cs.Lost), 0)
	for _, ci := range cs.Added {
		is.True(!ci.PreExisting)
	}
}

func TestEnumerateUpdatePreExisting(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	// feature already holds c4 and c5, so a master move to c7 only
	// introduces c7 to the repository.
	e := testEnv(testOptions(t, ""), g, map[string]string{
		"refs/heads/master":  c7,
		"refs/heads/feature": c5,
	})
	u := mustUpdate(t, e, "refs/heads/master", c3, c7)
	cs, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	is.Equal(ids(cs.Added), []string{c4, c5, c7})

	byID := map[string]*CommitInfo{}
	for _, ci := range cs.Added {
		byID[ci.ID] = ci
	}
	is.True(byID[c4].PreExisting)
	is.True(byID[c5].PreExisting)
	is.True(!byID[c7].PreExisting)

	// The marker must never leak into the shared graph entries.
	is.True(!g.info[c4].PreExisting)
	is.True(!g.info[c5].PreExisting)

	is.Equal(ids(cs.NewCommits()), []string{c7})
	is.Equal(cs.NotificationCount(), 1)
}

func TestEnumerateRewindLost(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	// master rewinds from c6 to c3; nothing else retains c6.
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c3})
	u := mustUpdate(t, e, "refs/heads/master", c6, c3)
	cs, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	is.Equal(len(cs.Added), 0)
	is.Equal(ids(cs.Lost), []string{c6})
	is.True(cs.NeedsSummary())
}

func TestEnumerateDelete(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "allow-delete-branch = true\n")

	// Deleting feature loses c4 and c5.
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c3})
	u := mustUpdate(t, e, "refs/heads/feature", c5, git.ZeroHash)
	cs, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	is.Equal(ids(cs.Lost), []string{c4, c5})

	// With another reference still holding the commits, nothing is lost.
	e = testEnv(opts, g, map[string]string{
		"refs/heads/master": c3,
		"refs/heads/keep":   c5,
	})
	u = mustUpdate(t, e, "refs/heads/feature", c5, git.ZeroHash)
	cs, err = Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	is.Equal(len(cs.Lost), 0)
	is.True(!cs.NeedsSummary())
}

func TestEnumerateIdempotent(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{
		"refs/heads/master":  c7,
		"refs/heads/feature": c5,
	})
	u := mustUpdate(t, e, "refs/heads/master", c3, c7)

	first, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)
	second, err := Enumerate(context.TODO(), g, e.Refs, u)
	is.NoErr(err)

	is.Equal(ids(first.Added), ids(second.Added))
	is.Equal(ids(first.Lost), ids(second.Lost))
	for i := range first.Added {
		is.Equal(first.Added[i].PreExisting, second.Added[i].PreExisting)
	}
}

func TestNewUpdateClassification(t *testing.T) {
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c3})

	cases := []struct {
		name    string
		ref     string
		old     string
		new     string
		kind    RefKind
		deleted bool
	}{
		{"branch", "refs/heads/topic", git.ZeroHash, c5, KindBranch, false},
		{"notes", "refs/notes/commits", git.ZeroHash, c3, KindNotes, false},
		{"annotated tag", "refs/tags/v1", git.ZeroHash, t1, KindAnnotatedTag, false},
		{"lightweight tag", "refs/tags/v1", git.ZeroHash, c5, KindLightweightTag, false},
		{"unannotated tag", "refs/tags/v1", git.ZeroHash, b1, KindUnannotatedTag, false},
		{"deleted annotated tag", "refs/tags/v1", t1, git.ZeroHash, KindAnnotatedTag, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			ns, err := NewNamespaces(e.Options)
			is.NoErr(err)
			u, err := NewUpdate(context.TODO(), e, ns, c.ref, c.old, c.new)
			is.NoErr(err)
			is.Equal(u.Kind, c.kind)
			if c.deleted {
				is.Equal(u.Transition(), TransitionDelete)
			}
		})
	}
}

func TestNewUpdateDefects(t *testing.T) {
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c3})
	ns, err := NewNamespaces(e.Options)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		ref  string
		old  string
		new  string
	}{
		{"empty ref", "", c3, c6},
		{"no-op", "refs/heads/master", c3, c3},
		{"both absent", "refs/heads/master", git.ZeroHash, git.ZeroHash},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer func() {
				if _, ok := recover().(*Defect); !ok {
					t.Fatal("expected a defect panic")
				}
			}()
			_, _ = NewUpdate(context.TODO(), e, ns, c.ref, c.old, c.new)
		})
	}
}

func TestNamespacesRejectBadPattern(t *testing.T) {
	is := is.New(t)
	opts, err := policy.Parse([]byte("[hooks]\n\tbranch-namespaces = refs/heads/(\n"))
	is.NoErr(err)
	_, err = NewNamespaces(opts)
	is.True(err != nil)
}
