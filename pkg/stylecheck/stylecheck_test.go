package stylecheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/matryer/is"

	"github.com/refgate/refgate/pkg/policy"
)

func TestFromOptions(t *testing.T) {
	is := is.New(t)
	opts, err := policy.Parse([]byte(`
[hooks]
	style-checker = /usr/local/bin/check-style
	combined-style-checking = true
	style-check-exclude = third_party/**
	style-check-exclude = *.min.js
`))
	is.NoErr(err)
	c, err := FromOptions(opts, "/srv/git/widgets.git")
	is.NoErr(err)
	is.True(c.Enabled())
	is.True(c.Combined)
	is.Equal(c.Program, "/usr/local/bin/check-style")
	is.Equal(len(c.excludes), 2)
}

func TestFromOptionsBadGlob(t *testing.T) {
	is := is.New(t)
	opts, err := policy.Parse([]byte("[hooks]\n\tstyle-check-exclude = [\n"))
	is.NoErr(err)
	_, err = FromOptions(opts, "/srv/git/widgets.git")
	is.True(err != nil)
}

func TestDisabledByDefault(t *testing.T) {
	is := is.New(t)
	c, err := FromOptions(policy.NewOptions(), "/srv/git/widgets.git")
	is.NoErr(err)
	is.True(!c.Enabled())
	is.NoErr(c.Check(context.TODO(), "deadbeef", []string{"main.go"}))
}

func TestFilter(t *testing.T) {
	is := is.New(t)
	opts, err := policy.Parse([]byte("[hooks]\n\tstyle-check-exclude = vendor/**\n"))
	is.NoErr(err)
	c, err := FromOptions(opts, "/srv/git/widgets.git")
	is.NoErr(err)
	c.Exempt = func(_ context.Context, path string) (bool, error) {
		return filepath.Ext(path) == ".gen", nil
	}

	got, err := c.Filter(context.TODO(), []string{
		"pkg/a.go",
		"vendor/lib/b.go",
		"api/schema.gen",
		"docs/readme.txt",
	})
	is.NoErr(err)
	is.Equal(got, []string{"pkg/a.go", "docs/readme.txt"})
}

func TestFilterExemptError(t *testing.T) {
	is := is.New(t)
	c := &Checker{Program: "/bin/true"}
	boom := errors.New("attribute lookup failed")
	c.Exempt = func(context.Context, string) (bool, error) { return false, boom }
	_, err := c.Filter(context.TODO(), []string{"pkg/a.go"})
	is.True(errors.Is(err, boom))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path := filepath.Join(t.TempDir(), "checker")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckPassing(t *testing.T) {
	is := is.New(t)
	c := &Checker{
		Program:  writeScript(t, "exit 0\n"),
		RepoPath: "/srv/git/widgets.git",
	}
	is.NoErr(c.Check(context.TODO(), "deadbeef", []string{"pkg/a.go"}))
}

func TestCheckFailing(t *testing.T) {
	is := is.New(t)
	// The checker sees the repository and commit as arguments and the
	// paths on stdin; everything it prints is relayed back.
	c := &Checker{
		Program:  writeScript(t, `echo "checking $2 in $1"`+"\ncat\nexit 1\n"),
		RepoPath: "/srv/git/widgets.git",
	}
	err := c.Check(context.TODO(), "deadbeef", []string{"pkg/a.go", "pkg/b.go"})
	var cerr *CheckError
	is.True(errors.As(err, &cerr))
	is.Equal(cerr.Commit, "deadbeef")
	is.Equal(cerr.Output, []string{
		"checking deadbeef in /srv/git/widgets.git",
		"pkg/a.go",
		"pkg/b.go",
	})
}

func TestCheckMissingProgram(t *testing.T) {
	is := is.New(t)
	c := &Checker{
		Program:  filepath.Join(t.TempDir(), "no-such-checker"),
		RepoPath: "/srv/git/widgets.git",
	}
	err := c.Check(context.TODO(), "deadbeef", []string{"pkg/a.go"})
	is.True(err != nil)
	var cerr *CheckError
	is.True(!errors.As(err, &cerr))
}

func TestCheckSkipsEmptyPathList(t *testing.T) {
	is := is.New(t)
	c := &Checker{Program: "/no/such/program"}
	is.NoErr(c.Check(context.TODO(), "deadbeef", nil))
}
