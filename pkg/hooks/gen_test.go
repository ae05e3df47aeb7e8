package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/config"
)

func TestGenerateHooks(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataPath = tmp
	repoPath := filepath.Join(tmp, "repos", "test.git")
	if _, err := git.Init(repoPath, true); err != nil {
		t.Fatal(err)
	}

	if err := GenerateHooks(context.TODO(), cfg, repoPath); err != nil {
		t.Fatal(err)
	}

	for _, hn := range []string{
		PreReceiveHook,
		UpdateHook,
		PostReceiveHook,
		PostUpdateHook,
	} {
		if _, err := os.Stat(filepath.Join(repoPath, "hooks", hn)); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(repoPath, "hooks", hn+".d", "refgate")); err != nil {
			t.Fatal(err)
		}
	}
}
