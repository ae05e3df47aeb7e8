package policy

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	o := NewOptions()
	is.True(!o.Bool("allow-delete-tag"))
	is.True(o.Bool("allow-delete-branch"))
	is.Equal(o.Int("max-commit-emails"), 100)
	is.Equal(o.String("commit-log-charset"), "ISO-8859-15")
	is.Equal(o.String("ticket-bypass"), "no-ticket-check")
	is.Equal(o.Path("style-checker"), "")
	is.Equal(o.BoolOrInt("debug-level"), 0)
	is.Equal(len(o.List("mailing-list")), 0)
}

func TestParse(t *testing.T) {
	is := is.New(t)
	o, err := Parse([]byte(`
[hooks]
	allow-delete-tag = yes
	max-commit-emails = 42
	mailing-list = commits@example.com
	mailing-list = audit@example.com
	Commit-Log-Charset = UTF-8

[core]
	bare = true
`))
	is.NoErr(err)
	is.True(o.Bool("allow-delete-tag"))
	is.Equal(o.Int("max-commit-emails"), 42)
	is.Equal(o.List("mailing-list"), []string{"commits@example.com", "audit@example.com"})
	// Option names are case-insensitive, like the rest of git config.
	is.Equal(o.String("commit-log-charset"), "UTF-8")
}

func TestParseLastValueWins(t *testing.T) {
	is := is.New(t)
	o, err := Parse([]byte("[hooks]\n\tmax-commit-emails = 1\n\tmax-commit-emails = 7\n"))
	is.NoErr(err)
	is.Equal(o.Int("max-commit-emails"), 7)
}

func TestParseBadValues(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"bad bool", "[hooks]\n\tallow-delete-tag = maybe\n"},
		{"bad int", "[hooks]\n\tmax-commit-emails = many\n"},
		{"bad bool-or-int", "[hooks]\n\tdebug-level = loud\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, err := Parse([]byte(c.blob))
			var verr *ValueError
			is.True(errors.As(err, &verr))
		})
	}
}

func TestParseBoolSpellings(t *testing.T) {
	is := is.New(t)
	for _, v := range []string{"true", "YES", "on", "1"} {
		o, err := Parse([]byte("[hooks]\n\tticket-required = " + v + "\n"))
		is.NoErr(err)
		is.True(o.Bool("ticket-required"))
	}
	for _, v := range []string{"false", "No", "off", "0"} {
		o, err := Parse([]byte("[hooks]\n\tticket-required = " + v + "\n"))
		is.NoErr(err)
		is.True(!o.Bool("ticket-required"))
	}
}

func TestParseUnknownOptionsIgnored(t *testing.T) {
	is := is.New(t)
	o, err := Parse([]byte("[hooks]\n\tfrom-the-future = whatever\n"))
	is.NoErr(err)
	is.True(o != nil)
}

func TestBoolOrInt(t *testing.T) {
	is := is.New(t)
	o, err := Parse([]byte("[hooks]\n\tdebug-level = true\n"))
	is.NoErr(err)
	is.Equal(o.BoolOrInt("debug-level"), 1)

	o, err = Parse([]byte("[hooks]\n\tdebug-level = 3\n"))
	is.NoErr(err)
	is.Equal(o.BoolOrInt("debug-level"), 3)
}

func TestListDropsEmptyValues(t *testing.T) {
	is := is.New(t)
	o, err := Parse([]byte("[hooks]\n\tno-emails =\n\tno-emails = refs/heads/wip/.*\n"))
	is.NoErr(err)
	is.Equal(o.List("no-emails"), []string{"refs/heads/wip/.*"})
}

func TestUnregisteredNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	NewOptions().Bool("no-such-option")
}

func TestKindMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	NewOptions().Int("mailing-list")
}

func TestRegistryIsACopy(t *testing.T) {
	is := is.New(t)
	r := Registry()
	r[0].Name = "clobbered"
	is.True(Registry()[0].Name != "clobbered")
}
