package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/matryer/is"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/policy"
	"github.com/refgate/refgate/pkg/stylecheck"
)

// Test revisions. The shared history is:
//
//	c1 -- c2 -- c3 (master)      c6 extends c3
//	       \
//	        c4 -- c5 (feature)   c7 merges c3 and c5
const (
	c1 = "1111111111111111111111111111111111111111"
	c2 = "2222222222222222222222222222222222222222"
	c3 = "3333333333333333333333333333333333333333"
	c4 = "4444444444444444444444444444444444444444"
	c5 = "5555555555555555555555555555555555555555"
	c6 = "6666666666666666666666666666666666666666"
	c7 = "7777777777777777777777777777777777777777"

	t1 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // tag object peeling to c5
	b1 = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" // blob
)

// fakeGraph is an in-memory commit graph.
type fakeGraph struct {
	parents map[string][]string
	info    map[string]*CommitInfo
	types   map[string]git.ObjectType
	peel    map[string]string
	order   []string
	files   map[string][]FileChange
}

func newFakeGraph() *fakeGraph {
	g := &fakeGraph{
		parents: map[string][]string{
			c1: {},
			c2: {c1},
			c3: {c2},
			c4: {c2},
			c5: {c4},
			c6: {c3},
			c7: {c3, c5},
		},
		types: map[string]git.ObjectType{
			t1: git.ObjectTag,
			b1: git.ObjectBlob,
		},
		peel:  map[string]string{t1: c5},
		order: []string{c1, c2, c3, c4, c5, c6, c7},
		info:  map[string]*CommitInfo{},
		files: map[string][]FileChange{
			c4: {{Path: "pkg/a.go", Status: "M"}},
			c5: {{Path: "pkg/b.go", Status: "A"}, {Path: "pkg/gone.go", Status: "D"}},
			c6: {{Path: "docs/readme.txt", Status: "M"}},
			c7: {},
		},
	}
	for i, id := range g.order {
		g.info[id] = &CommitInfo{
			ID:      id,
			Author:  "Jane Doe <jane@example.com>",
			Subject: fmt.Sprintf("Commit number %d", i+1),
			Message: fmt.Sprintf("Commit number %d\n\nLonger description.\n", i+1),
		}
	}
	return g
}

func (g *fakeGraph) resolve(rev string) string {
	if p, ok := g.peel[rev]; ok {
		return p
	}
	return rev
}

func (g *fakeGraph) reach(rev string) map[string]bool {
	out := map[string]bool{}
	stack := []string{g.resolve(rev)}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[id] {
			continue
		}
		if _, ok := g.parents[id]; !ok {
			continue
		}
		out[id] = true
		stack = append(stack, g.parents[id]...)
	}
	return out
}

func (g *fakeGraph) ObjectType(_ context.Context, rev string) (git.ObjectType, error) {
	if t, ok := g.types[rev]; ok {
		return t, nil
	}
	if _, ok := g.parents[rev]; ok {
		return git.ObjectCommit, nil
	}
	return "", fmt.Errorf("unknown object %s", rev)
}

func (g *fakeGraph) IsAncestor(_ context.Context, a, b string) (bool, error) {
	return g.reach(b)[g.resolve(a)], nil
}

func (g *fakeGraph) RevList(_ context.Context, include string, exclude ...string) ([]string, error) {
	set := g.reach(include)
	for _, ex := range exclude {
		for id := range g.reach(ex) {
			delete(set, id)
		}
	}
	out := make([]string, 0, len(set))
	for _, id := range g.order {
		if set[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (g *fakeGraph) CommitInfo(_ context.Context, rev string) (*CommitInfo, error) {
	ci, ok := g.info[g.resolve(rev)]
	if !ok {
		return nil, fmt.Errorf("unknown commit %s", rev)
	}
	// Deliberately shared, like a cached entry.
	return ci, nil
}

func (g *fakeGraph) ChangedPaths(_ context.Context, rev string) ([]FileChange, error) {
	return g.files[g.resolve(rev)], nil
}

func testOptions(t *testing.T, body string) *policy.Options {
	t.Helper()
	opts, err := policy.Parse([]byte("[hooks]\n" + body))
	if err != nil {
		t.Fatal(err)
	}
	return opts
}

func testEnv(opts *policy.Options, g Graph, refs map[string]string) *Env {
	return &Env{
		Options:  opts,
		Graph:    g,
		Refs:     NewReferencesMap(refs),
		RepoName: "widgets",
	}
}

func testGate(t *testing.T, e *Env) *Gate {
	t.Helper()
	gt, err := New(e, &stylecheck.Checker{}, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	return gt
}

func TestCheckNoop(t *testing.T) {
	is := is.New(t)
	e := testEnv(testOptions(t, "mailing-list = commits@example.com\n"), newFakeGraph(), map[string]string{"refs/heads/master": c3})
	gt := testGate(t, e)
	u, cs, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c3})
	is.NoErr(err)
	is.True(u == nil)
	is.True(cs == nil)
}

func TestCheckFastForwardRejected(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	// master moves from c3 to c5: c3 is not an ancestor of c5.
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c5})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c5})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Non-fast-forward updates are not allowed on branch 'master'."))
}

func TestCheckFastForwardAllowedByPattern(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "allow-non-fast-forward = refs/heads/topic/.*\n")
	e := testEnv(opts, g, map[string]string{
		"refs/heads/master":    c3,
		"refs/heads/topic/wip": c5,
	})
	gt := testGate(t, e)
	u, cs, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/topic/wip", OldRev: c6, NewRev: c5})
	is.NoErr(err)
	is.True(u.NonFastForward)
	is.True(cs != nil)
}

func TestCheckFastForwardShortPatternIgnored(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	// Patterns must name full references; short names never match.
	opts := testOptions(t, "allow-non-fast-forward = master\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c5})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c5})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
}

func TestCheckFastForwardOK(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c6})
	gt := testGate(t, e)
	u, cs, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	is.NoErr(err)
	is.True(!u.NonFastForward)
	is.Equal(len(cs.Added), 1)
	is.Equal(cs.Added[0].ID, c6)
}

func TestCheckPushRequiresMailingList(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c3})
	gt := testGate(t, e)
	err := gt.CheckPush(context.TODO(), nil)
	var cerr *ConfigError
	is.True(errors.As(err, &cerr))
}

func TestCheckPushCeiling(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	mk := func(limit int) *Gate {
		opts := testOptions(t, fmt.Sprintf("mailing-list = commits@example.com\nmax-commit-emails = %d\n", limit))
		e := testEnv(opts, g, map[string]string{
			"refs/heads/master":  c3,
			"refs/heads/feature": c5,
		})
		return testGate(t, e)
	}
	// Creating feature at c5 introduces c4 and c5.
	changes := []RefChange{{RefName: "refs/heads/feature", OldRev: git.ZeroHash, NewRev: c5}}

	is.NoErr(mk(2).CheckPush(context.TODO(), changes))

	err := mk(1).CheckPush(context.TODO(), changes)
	var perr *PushError
	is.True(errors.As(err, &perr))
	is.True(containsLine(perr.Lines, "This update introduces 2 new commits, which would send"))
}

func TestCheckPushDeduplicatesAcrossRefs(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "mailing-list = commits@example.com\nmax-commit-emails = 2\n")
	// Both branches are pushed pointing at the same history.
	e := testEnv(opts, g, map[string]string{
		"refs/heads/master": c3,
		"refs/heads/one":    c5,
		"refs/heads/two":    c5,
	})
	gt := testGate(t, e)
	changes := []RefChange{
		{RefName: "refs/heads/one", OldRev: git.ZeroHash, NewRev: c5},
		{RefName: "refs/heads/two", OldRev: git.ZeroHash, NewRev: c5},
	}
	is.NoErr(gt.CheckPush(context.TODO(), changes))
}

func TestScreenMergeCommits(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	g.info[c7].Subject = "Merge branch 'feature'"
	g.info[c7].Message = "Merge branch 'feature'\n"
	opts := testOptions(t, "reject-merge-commits = refs/heads/master\n")
	e := testEnv(opts, g, map[string]string{
		"refs/heads/master":  c7,
		"refs/heads/feature": c5,
	})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c7})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Merge commits are not allowed on refs/heads/master."))
}

func TestScreenMergeCommitsUnrestrictedRef(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	g.info[c7].Subject = "Merge branch 'feature'"
	opts := testOptions(t, "reject-merge-commits = refs/heads/release\n")
	e := testEnv(opts, g, map[string]string{
		"refs/heads/master":  c7,
		"refs/heads/feature": c5,
	})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c7})
	is.NoErr(err)
}

func TestScreenCharset(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	g.info[c6].Message = "Caf\xc3\xa9 fixes\n" // UTF-8 é
	opts := testOptions(t, "commit-log-charset = UTF-8\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c6})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	is.NoErr(err)

	// Invalid UTF-8 is rejected when the declared charset is UTF-8.
	g.info[c6].Message = "Caf\xe9 fixes\n"
	_, _, err = gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, fmt.Sprintf("The description of commit %s", c6)))
}

func TestScreenBadCharsetName(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "commit-log-charset = KLINGON-1\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c6})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	var cerr *ConfigError
	is.True(errors.As(err, &cerr))
}

func TestScreenTicketRequired(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "ticket-required = true\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c6})
	gt := testGate(t, e)

	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "The following commit is missing a ticket number:"))

	g.info[c6].Message = "Fix the frobnicator\n\nCloses WID-123.\n"
	_, _, err = gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	is.NoErr(err)

	g.info[c6].Message = "Fix the frobnicator\n\nno-ticket-check\n"
	_, _, err = gt.Check(context.TODO(), RefChange{RefName: "refs/heads/master", OldRev: c3, NewRev: c6})
	is.NoErr(err)
}

func TestScreenTicketRequiredOnTag(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "ticket-required = true\nallow-lightweight-tag = true\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c3})
	gt := testGate(t, e)

	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/tags/v1.0", OldRev: git.ZeroHash, NewRev: c5})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "The following commit is missing a ticket number:"))
}

func TestBranchDeleteDisallowed(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "allow-delete-branch = false\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c3})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/heads/feature", OldRev: c5, NewRev: git.ZeroHash})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Deleting a branch is not allowed in this repository."))
}

func TestNotesDeleteAlwaysRejected(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	// Notes deletion is rejected even with the tag and branch deletion
	// switches wide open.
	opts := testOptions(t, "allow-delete-tag = true\nallow-delete-branch = true\n")
	e := testEnv(opts, g, map[string]string{"refs/notes/commits": c3})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/notes/commits", OldRev: c3, NewRev: git.ZeroHash})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Deleting a notes reference is not allowed."))
}

func TestTagPolicies(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()

	check := func(body, ref, old, new string) error {
		opts := testOptions(t, "mailing-list = commits@example.com\n"+body)
		e := testEnv(opts, g, map[string]string{"refs/heads/master": c5, ref: new})
		gt := testGate(t, e)
		_, _, err := gt.Check(context.TODO(), RefChange{RefName: ref, OldRev: old, NewRev: new})
		return err
	}

	var inv *InvalidUpdate

	// Lightweight tags are rejected unless explicitly allowed.
	err := check("", "refs/tags/v1", git.ZeroHash, c5)
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Lightweight tags ('v1' in this push) are not allowed in this"))
	is.NoErr(check("allow-lightweight-tag = true\n", "refs/tags/v1", git.ZeroHash, c5))

	// Annotated tags are fine by default.
	is.NoErr(check("", "refs/tags/v2", git.ZeroHash, t1))

	// Deleting a tag requires allow-delete-tag.
	err = check("", "refs/tags/v2", t1, git.ZeroHash)
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Deleting a tag is not allowed in this repository."))
	is.NoErr(check("allow-delete-tag = true\n", "refs/tags/v2", t1, git.ZeroHash))

	// Unannotated tags point at non-commit objects.
	err = check("", "refs/tags/blobtag", git.ZeroHash, b1)
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Unannotated tags ('blobtag' in this push) are not allowed in this"))
	is.NoErr(check("allow-unannotated-tag = true\n", "refs/tags/blobtag", git.ZeroHash, b1))

	// Moving a lightweight tag is gated like creating one.
	err = check("", "refs/tags/v1", c3, c5)
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Lightweight tags ('v1' in this push) are not allowed in this"))
	is.NoErr(check("allow-lightweight-tag = true\n", "refs/tags/v1", c3, c5))

	// Deleting an unannotated tag is still a tag deletion.
	err = check("", "refs/tags/blobtag", b1, git.ZeroHash)
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Deleting a tag is not allowed in this repository."))
	is.NoErr(check("allow-delete-tag = true\n", "refs/tags/blobtag", b1, git.ZeroHash))
}

func TestCheckUnrecognizedRef(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	e := testEnv(testOptions(t, ""), g, map[string]string{"refs/heads/master": c3})
	gt := testGate(t, e)
	_, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/for/master", OldRev: git.ZeroHash, NewRev: c5})
	var inv *InvalidUpdate
	is.True(errors.As(err, &inv))
	is.True(containsLine(inv.Lines, "Unable to determine the type of reference for: refs/for/master"))
}

func TestCustomNamespaces(t *testing.T) {
	is := is.New(t)
	g := newFakeGraph()
	opts := testOptions(t, "branch-namespaces = refs/for/.*\n")
	e := testEnv(opts, g, map[string]string{"refs/heads/master": c3, "refs/for/master": c5})
	gt := testGate(t, e)
	u, _, err := gt.Check(context.TODO(), RefChange{RefName: "refs/for/master", OldRev: git.ZeroHash, NewRev: c5})
	is.NoErr(err)
	is.Equal(u.Kind, KindBranch)
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
