package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/refgate/refgate/pkg/policy"
)

// RefKind is the kind of a reference, as determined by the configured
// namespace patterns and, for tags, the pointed-to object type.
type RefKind int

// Reference kinds.
const (
	KindUnrecognized RefKind = iota
	KindBranch
	KindNotes
	KindAnnotatedTag
	KindLightweightTag
	KindUnannotatedTag
)

// String implements fmt.Stringer.
func (k RefKind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindNotes:
		return "notes"
	case KindAnnotatedTag:
		return "annotated tag"
	case KindLightweightTag:
		return "lightweight tag"
	case KindUnannotatedTag:
		return "unannotated tag"
	}
	return "unrecognized"
}

// IsTag returns true for the three tag kinds.
func (k RefKind) IsTag() bool {
	return k == KindAnnotatedTag || k == KindLightweightTag || k == KindUnannotatedTag
}

// refGroup is a namespace pattern group. Groups are evaluated in a fixed
// priority order (branches, notes, tags); within a group the patterns are
// ordered and the first match wins.
type refGroup struct {
	name     string
	patterns []*regexp.Regexp
}

// Namespaces is the ordered set of configured reference namespaces.
type Namespaces struct {
	groups []refGroup
}

// Default namespace patterns per group.
var (
	defaultBranchPatterns = []string{`refs/heads/.*`}
	defaultNotesPatterns  = []string{`refs/notes/.*`}
	defaultTagPatterns    = []string{`refs/tags/.*`}
)

// NewNamespaces builds the namespace groups from the built-in defaults
// extended by the configured extra patterns. Patterns match the full
// reference name.
func NewNamespaces(opts *policy.Options) (Namespaces, error) {
	var ns Namespaces
	for _, g := range []struct {
		name     string
		defaults []string
		option   string
	}{
		{"branches", defaultBranchPatterns, "branch-namespaces"},
		{"notes", defaultNotesPatterns, "notes-namespaces"},
		{"tags", defaultTagPatterns, "tag-namespaces"},
	} {
		pats := append([]string{}, g.defaults...)
		if opts != nil {
			pats = append(pats, opts.List(g.option)...)
		}
		group := refGroup{name: g.name}
		for _, p := range pats {
			re, err := regexp.Compile("^(?:" + p + ")$")
			if err != nil {
				return Namespaces{}, &ConfigError{
					Msg: fmt.Sprintf("invalid %s namespace pattern %q", g.name, p),
					Err: err,
				}
			}
			group.patterns = append(group.patterns, re)
		}
		ns.groups = append(ns.groups, group)
	}
	return ns, nil
}

// group returns the name of the first group with a pattern matching
// refName, or "" when no group matches.
func (ns Namespaces) group(refName string) string {
	for _, g := range ns.groups {
		for _, re := range g.patterns {
			if re.MatchString(refName) {
				return g.name
			}
		}
	}
	return ""
}

// Describe renders the recognized namespaces grouped by kind, for the
// unrecognized-reference diagnostic.
func (ns Namespaces) Describe() []string {
	lines := make([]string, 0, len(ns.groups))
	for _, g := range ns.groups {
		pats := make([]string, 0, len(g.patterns))
		for _, re := range g.patterns {
			p := strings.TrimSuffix(strings.TrimPrefix(re.String(), "^(?:"), ")$")
			pats = append(pats, p)
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", g.name, strings.Join(pats, ", ")))
	}
	return lines
}
