// Package policy implements the repository policy option registry. The
// registry is a fixed set of recognized option names, each with a
// declared type and default value. Values come from the versioned
// configuration blob stored in the repository itself; unset options
// silently yield their default. Requesting an unregistered name is a
// programming error, not a user error.
package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the declared type of a policy option.
type Kind int

// Option kinds.
const (
	Bool Kind = iota
	Int
	BoolOrInt
	String
	Path
	StringList
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case BoolOrInt:
		return "bool-or-int"
	case String:
		return "string"
	case Path:
		return "path"
	case StringList:
		return "string list"
	}
	return "unknown"
}

// Option is one registered policy option.
type Option struct {
	Name    string
	Kind    Kind
	Default string
	Help    string
}

// Section is the git-config section holding all policy options.
const Section = "hooks"

var registry = []Option{
	{"allow-delete-tag", Bool, "false", "allow deleting tags"},
	{"allow-delete-branch", Bool, "true", "allow deleting branches"},
	{"allow-lightweight-tag", Bool, "false", "allow pushing lightweight tags"},
	{"allow-unannotated-tag", Bool, "false", "allow pushing unannotated tags"},
	{"allow-non-fast-forward", StringList, "", "full-name reference patterns where non-fast-forward updates are allowed"},
	{"branch-namespaces", StringList, "", "extra branch reference name patterns"},
	{"notes-namespaces", StringList, "", "extra notes reference name patterns"},
	{"tag-namespaces", StringList, "", "extra tag reference name patterns"},
	{"max-commit-emails", Int, "100", "reject the push when it would send more commit emails than this"},
	{"mailing-list", StringList, "", "notification email recipients"},
	{"email-from", String, "", "notification email sender address"},
	{"no-emails", StringList, "", "reference patterns with email notification disabled"},
	{"reject-merge-commits", StringList, "", "reference patterns where merge commits are rejected"},
	{"commit-log-charset", String, "ISO-8859-15", "charset commit logs must be expressible in"},
	{"ticket-required", Bool, "false", "require a ticket number token in every commit log"},
	{"ticket-pattern", String, `\b[A-Z][A-Z0-9]+-[0-9]+\b`, "pattern recognizing a ticket number token"},
	{"ticket-bypass", String, "no-ticket-check", "marker string bypassing the ticket number check"},
	{"style-checker", Path, "", "external style checker program; empty disables style checking"},
	{"combined-style-checking", Bool, "false", "run the style checker once over the union of changed files"},
	{"no-style-checks", StringList, "", "reference patterns exempt from style checking"},
	{"style-check-exclude", StringList, "", "path globs exempt from style checking"},
	{"debug-level", BoolOrInt, "0", "hook debug verbosity"},
}

// Registry returns the registered options in declaration order.
func Registry() []Option {
	out := make([]Option, len(registry))
	copy(out, registry)
	return out
}

func lookup(name string) Option {
	for _, o := range registry {
		if o.Name == name {
			return o
		}
	}
	panic(fmt.Sprintf("policy: unregistered option %q", name))
}

// ValueError reports a configured option value that cannot be parsed as
// the option's declared type.
type ValueError struct {
	Name  string
	Value string
	Kind  Kind
}

// Error implements error.
func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q for option %s.%s (expected %s)",
		e.Value, Section, e.Name, e.Kind)
}

// Options is an immutable snapshot of the repository's policy options.
// It is constructed once per process invocation and threaded explicitly
// into every component that needs it.
type Options struct {
	values map[string][]string
}

// NewOptions returns an options snapshot holding only defaults.
func NewOptions() *Options {
	return &Options{values: map[string][]string{}}
}

// newOptions builds and validates a snapshot from raw config values.
// Keys must be lower case. Unknown keys are ignored for forward
// compatibility; known keys with unparsable values are an error.
func newOptions(values map[string][]string) (*Options, error) {
	o := &Options{values: values}
	for _, spec := range registry {
		raw, ok := values[spec.Name]
		if !ok {
			continue
		}
		for _, v := range raw {
			if err := checkValue(spec, v); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func checkValue(spec Option, v string) error {
	switch spec.Kind {
	case Bool:
		if _, err := parseBool(v); err != nil {
			return &ValueError{Name: spec.Name, Value: v, Kind: spec.Kind}
		}
	case Int:
		if _, err := strconv.Atoi(v); err != nil {
			return &ValueError{Name: spec.Name, Value: v, Kind: spec.Kind}
		}
	case BoolOrInt:
		if _, err := parseBool(v); err != nil {
			if _, err := strconv.Atoi(v); err != nil {
				return &ValueError{Name: spec.Name, Value: v, Kind: spec.Kind}
			}
		}
	}
	return nil
}

// parseBool parses a git-config style boolean.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// raw returns the effective single value for the option, i.e. the last
// configured value or the default.
func (o *Options) raw(spec Option) string {
	if vs, ok := o.values[spec.Name]; ok && len(vs) > 0 {
		return vs[len(vs)-1]
	}
	return spec.Default
}

// Bool returns a bool option. Panics when name is not a registered bool.
func (o *Options) Bool(name string) bool {
	spec := lookup(name)
	if spec.Kind != Bool {
		panic(fmt.Sprintf("policy: option %q is %s, not bool", name, spec.Kind))
	}
	b, err := parseBool(o.raw(spec))
	if err != nil {
		// Values are validated at construction time.
		panic(fmt.Sprintf("policy: %v", err))
	}
	return b
}

// Int returns an int option. Panics when name is not a registered int.
func (o *Options) Int(name string) int {
	spec := lookup(name)
	if spec.Kind != Int {
		panic(fmt.Sprintf("policy: option %q is %s, not int", name, spec.Kind))
	}
	n, err := strconv.Atoi(o.raw(spec))
	if err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return n
}

// BoolOrInt returns a bool-or-int option as an int, with plain booleans
// mapped to 0 and 1.
func (o *Options) BoolOrInt(name string) int {
	spec := lookup(name)
	if spec.Kind != BoolOrInt {
		panic(fmt.Sprintf("policy: option %q is %s, not bool-or-int", name, spec.Kind))
	}
	v := o.raw(spec)
	if b, err := parseBool(v); err == nil {
		if b {
			return 1
		}
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return n
}

// String returns a string option.
func (o *Options) String(name string) string {
	spec := lookup(name)
	if spec.Kind != String {
		panic(fmt.Sprintf("policy: option %q is %s, not string", name, spec.Kind))
	}
	return o.raw(spec)
}

// Path returns a path option.
func (o *Options) Path(name string) string {
	spec := lookup(name)
	if spec.Kind != Path {
		panic(fmt.Sprintf("policy: option %q is %s, not path", name, spec.Kind))
	}
	return o.raw(spec)
}

// List returns all configured values of a string list option.
func (o *Options) List(name string) []string {
	spec := lookup(name)
	if spec.Kind != StringList {
		panic(fmt.Sprintf("policy: option %q is %s, not a string list", name, spec.Kind))
	}
	vs, ok := o.values[spec.Name]
	if !ok {
		if spec.Default == "" {
			return nil
		}
		return []string{spec.Default}
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
