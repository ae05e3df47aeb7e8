package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"

	"github.com/refgate/refgate/pkg/config"
)

// hookTemplate is the top-level hook script. It chains every
// executable in the hook's .d directory, feeding each one the hook's
// standard input.
var hookTemplate = template.Must(template.New("hook").Parse(`#!/usr/bin/env bash
# AUTO GENERATED BY REFGATE, DO NOT MODIFY
data=$(cat)
exitcodes=""
hookname=$(basename $0)
GIT_DIR=${GIT_DIR:-$(dirname $0)/..}
for hook in ${GIT_DIR}/hooks/${hookname}.d/*; do
  test -x "${hook}" && test -f "${hook}" || continue
  echo "${data}" | "${hook}" "$@"
  exitcodes="${exitcodes} $?"
done
for i in ${exitcodes}; do
  [ ${i} -eq 0 ] || exit ${i}
done
`))

// dotTemplate is the refgate entry in the hook's .d directory. Only
// the data path is baked in; the rest of the configuration is read
// from it at hook time.
var dotTemplate = template.Must(template.New("hook.d").Parse(`#!/usr/bin/env bash
# AUTO GENERATED BY REFGATE, DO NOT MODIFY
export REFGATE_DATA_PATH="{{ .DataPath }}"
exec "{{ .BinPath }}" hook {{ .HookName }} "$@"
`))

// GenerateHooks installs the hook scripts into the repository. Other
// hook entries already present in the .d directories are left alone.
func GenerateHooks(_ context.Context, cfg *config.Config, repoPath string) error {
	hooksPath := filepath.Join(repoPath, "hooks")
	if err := os.MkdirAll(hooksPath, os.ModePerm); err != nil {
		return err
	}

	for _, hookName := range []string{
		PreReceiveHook,
		UpdateHook,
		PostReceiveHook,
		PostUpdateHook,
	} {
		var out bytes.Buffer
		if err := hookTemplate.Execute(&out, nil); err != nil {
			return err
		}
		hookPath := filepath.Join(hooksPath, hookName)
		if err := os.WriteFile(hookPath, out.Bytes(), 0o755); err != nil { //nolint:gosec
			return err
		}

		dotDir := filepath.Join(hooksPath, hookName+".d")
		if err := os.MkdirAll(dotDir, os.ModePerm); err != nil {
			return err
		}

		out.Reset()
		if err := dotTemplate.Execute(&out, struct {
			DataPath string
			BinPath  string
			HookName string
		}{
			DataPath: cfg.DataPath,
			BinPath:  config.BinPath(),
			HookName: hookName,
		}); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dotDir, "refgate"), out.Bytes(), 0o755); err != nil { //nolint:gosec
			return err
		}
	}

	return nil
}
