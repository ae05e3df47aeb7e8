package git

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Attribute represents a Git attribute.
type Attribute struct {
	Name  string
	Value string
}

// CheckAttributes checks the attributes of the given ref and path.
func (r *Repository) CheckAttributes(ref string, path string) ([]Attribute, error) {
	tmpindex := filepath.Join(os.TempDir(), "refgate-index-"+uuid.New().String())

	defer os.Remove(tmpindex) //nolint: errcheck

	readTree := NewCommand("read-tree", "--reset", "-i", ref).
		AddEnvs("GIT_INDEX_FILE=" + tmpindex)
	if _, err := readTree.RunInDir(r.Path); err != nil {
		return nil, err //nolint:wrapcheck
	}

	checkAttr := NewCommand("check-attr", "--cached", "-a", "--", path).
		AddEnvs("GIT_INDEX_FILE=" + tmpindex)
	out, err := checkAttr.RunInDir(r.Path)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return parseAttributes(path, out), nil
}

func parseAttributes(path string, buf []byte) []Attribute {
	attrs := make([]Attribute, 0)
	for _, line := range strings.Split(string(buf), "\n") {
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(line, path+": ")
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			continue
		}

		attrs = append(attrs, Attribute{
			Name:  parts[0],
			Value: parts[1],
		})
	}

	return attrs
}
