// Package git provides git repository operations and utilities.
package git

import (
	"regexp"

	git "github.com/aymanbagabas/git-module"
)

// ZeroHash is the zero hash, denoting an absent revision.
const ZeroHash = git.EmptyID

// Hash represents a git object hash.
type Hash string

// String returns the string representation of a hash.
func (h Hash) String() string {
	return string(h)
}

// IsZero returns whether the hash is a zero hash.
func (h Hash) IsZero() bool {
	return IsZeroHash(string(h))
}

var zeroPattern = regexp.MustCompile(`^0{40,}$`)

// IsZeroHash returns whether the hash is a zero hash.
func IsZeroHash(h string) bool {
	return zeroPattern.MatchString(h)
}

// ObjectType is a git object type.
type ObjectType string

// Object types.
const (
	ObjectCommit ObjectType = "commit"
	ObjectTree   ObjectType = "tree"
	ObjectBlob   ObjectType = "blob"
	ObjectTag    ObjectType = "tag"
)
