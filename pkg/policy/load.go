package policy

import (
	"bytes"
	"fmt"
	"strings"

	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/refgate/refgate/git"
)

const (
	// ConfigRef is the reference holding the repository policy blob.
	ConfigRef = "refs/meta/config"
	// ConfigFile is the policy file path within ConfigRef.
	ConfigFile = "project.config"
)

// Load reads the policy options from the repository's configuration
// reference. A repository without a policy blob yields the defaults.
func Load(repo *git.Repository) (*Options, error) {
	blob, err := repo.ShowBlob(ConfigRef + ":" + ConfigFile)
	if err != nil {
		// No configuration reference means no policy overrides.
		return NewOptions(), nil
	}
	return Parse(blob)
}

// Parse decodes a git-config formatted policy blob and validates the
// recognized options against the registry.
func Parse(blob []byte) (*Options, error) {
	cfg := format.New()
	if err := format.NewDecoder(bytes.NewReader(blob)).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s:%s: %w", ConfigRef, ConfigFile, err)
	}

	values := make(map[string][]string)
	for _, s := range cfg.Sections {
		if !strings.EqualFold(s.Name, Section) {
			continue
		}
		for _, opt := range s.Options {
			key := strings.ToLower(opt.Key)
			values[key] = append(values[key], opt.Value)
		}
	}

	return newOptions(values)
}
