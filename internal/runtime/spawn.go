package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"auroraview/internal/aerrors"
)

// BackendTarget is either an entry file ("entry_file.py") or a
// "module:function" invocation string (spec §4.2 step 6).
type BackendTarget struct {
	EntryFile   string
	EntryModule string // "module:function" form
}

// SpawnBackend starts the scripting backend as a child process running
// under env. The module-function form is represented here as an
// invocation through the interpreter's "-c" runner (since this Go
// runtime has no in-process Python import machinery of its own); the
// entry-file form runs the interpreter directly against the file.
func SpawnBackend(ctx context.Context, interpreterPath string, target BackendTarget, extractDir string, env Environment) (*exec.Cmd, error) {
	var args []string
	switch {
	case target.EntryFile != "":
		args = []string{filepath.Join(extractDir, target.EntryFile)}
	case target.EntryModule != "":
		module, fn, ok := splitModuleFunction(target.EntryModule)
		if !ok {
			return nil, aerrors.New(aerrors.InvalidArgument, "runtime.spawn_backend", "entry_module must be module:function")
		}
		args = []string{"-c", fmt.Sprintf("import sys; sys.path.insert(0, %q); import %s; %s.%s()", extractDir, module, module, fn)}
	default:
		return nil, aerrors.New(aerrors.InvalidArgument, "runtime.spawn_backend", "one of entry_file or entry_module is required")
	}

	cmd := exec.CommandContext(ctx, interpreterPath, args...)
	cmd.Dir = extractDir
	cmd.Env = env.asEnvSlice()
	return cmd, nil
}

func splitModuleFunction(spec string) (module, fn string, ok bool) {
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return "", "", false
	}
	return spec[:idx], spec[idx+1:], true
}

func (e Environment) asEnvSlice() []string {
	out := []string{"PATH=" + e.Path, "PYTHONPATH=" + e.ModuleSearch}
	for k, v := range e.Env {
		out = append(out, k+"="+v)
	}
	return out
}
